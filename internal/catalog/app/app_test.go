package app

import (
	"fmt"
	"sync"
	"testing"
)

func testID(name string) ID {
	return ID{Scope: ScopeSystem, Kind: BundlePackage, Origin: "main", Name: name, Branch: "stable"}
}

func TestQualityPrecedence(t *testing.T) {
	a := New(testID("vim"))

	a.SetName(QualityNormal, "vim")
	if got := a.Name(); got != "vim" {
		t.Fatalf("expected vim, got %q", got)
	}

	// lower quality never overwrites
	a.SetName(QualityLowest, "VIM (lowest)")
	if got := a.Name(); got != "vim" {
		t.Errorf("lowest-quality write overwrote normal, got %q", got)
	}

	// equal quality keeps the first value
	a.SetName(QualityNormal, "vim-enhanced")
	if got := a.Name(); got != "vim" {
		t.Errorf("equal-quality write overwrote first value, got %q", got)
	}

	// higher quality wins
	a.SetName(QualityHighest, "Vim")
	if got := a.Name(); got != "Vim" {
		t.Errorf("highest-quality write did not win, got %q", got)
	}

	// empty values are never recorded
	a.SetName(QualityHighest, "")
	if got := a.Name(); got != "Vim" {
		t.Errorf("empty write changed value, got %q", got)
	}
}

func TestListAddMergesSameIdentity(t *testing.T) {
	// two backends produce partial views of the same identity
	fromPkg := New(testID("gimp"))
	fromPkg.SetName(QualityNormal, "gimp")
	fromPkg.SetVersion(QualityHighest, "2.10.38")
	fromPkg.SetManagedBy("pkgdb")
	fromPkg.SetState(StateInstalled)

	fromCatalog := New(testID("gimp"))
	fromCatalog.SetName(QualityHighest, "GIMP")
	fromCatalog.SetDescription(QualityHighest, "Image editor")
	fromCatalog.SetRating(80)

	l := NewList()
	l.Add(fromPkg)
	merged := l.Add(fromCatalog)

	if l.Len() != 1 {
		t.Fatalf("expected a single merged entry, got %d", l.Len())
	}
	if merged != fromPkg {
		t.Fatal("merge should fold into the existing record")
	}
	if got := merged.Name(); got != "GIMP" {
		t.Errorf("expected catalog name to win, got %q", got)
	}
	if got := merged.Version(); got != "2.10.38" {
		t.Errorf("expected package version to survive, got %q", got)
	}
	if got := merged.Description(); got != "Image editor" {
		t.Errorf("description not merged, got %q", got)
	}
	if got := merged.Rating(); got != 80 {
		t.Errorf("rating not merged, got %d", got)
	}
	if got := merged.ManagedBy(); got != "pkgdb" {
		t.Errorf("management owner lost in merge, got %q", got)
	}
	if got := merged.State(); got != StateInstalled {
		t.Errorf("state lost in merge, got %s", got)
	}
}

func TestMergeOrderIndependence(t *testing.T) {
	build := func() (*App, *App) {
		x := New(testID("inkscape"))
		x.SetName(QualityNormal, "inkscape")
		x.SetSummary(QualityNormal, "from pkgdb")
		x.SetInstalledSize(1024)

		y := New(testID("inkscape"))
		y.SetName(QualityHighest, "Inkscape")
		y.SetIcon(QualityHighest, "inkscape.svg")
		y.SetRating(90)
		return x, y
	}

	x1, y1 := build()
	l1 := NewList()
	l1.Add(x1)
	l1.Add(y1)

	x2, y2 := build()
	l2 := NewList()
	l2.Add(y2)
	l2.Add(x2)

	a1, _ := l1.Lookup(testID("inkscape").Key())
	a2, _ := l2.Lookup(testID("inkscape").Key())

	checks := []struct {
		attr     string
		from     func(*App) string
		expected string
	}{
		{"name", (*App).Name, "Inkscape"},
		{"summary", (*App).Summary, "from pkgdb"},
		{"icon", (*App).Icon, "inkscape.svg"},
	}
	for _, c := range checks {
		if got1, got2 := c.from(a1), c.from(a2); got1 != got2 || got1 != c.expected {
			t.Errorf("%s differs by merge order: %q vs %q (want %q)", c.attr, got1, got2, c.expected)
		}
	}
	if a1.Rating() != a2.Rating() || a1.InstalledSize() != a2.InstalledSize() {
		t.Error("numeric attributes differ by merge order")
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := New(testID("vlc"))
	a.SetName(QualityNormal, "VLC")
	a.SetRating(75)

	l := NewList()
	l.Add(a)
	for i := 0; i < 3; i++ {
		dup := New(testID("vlc"))
		dup.SetName(QualityNormal, "VLC duplicate")
		dup.SetRating(75)
		l.Add(dup)
	}

	if l.Len() != 1 {
		t.Fatalf("expected 1 entry after repeated merges, got %d", l.Len())
	}
	got, _ := l.Lookup(testID("vlc").Key())
	if got.Name() != "VLC" {
		t.Errorf("repeated equal-quality merges changed the name: %q", got.Name())
	}
	if got.Rating() != 75 {
		t.Errorf("rating drifted under repeated merges: %d", got.Rating())
	}
}

func TestPlaceholderAdoption(t *testing.T) {
	id := testID("krita")
	ph := NewPlaceholder(id)
	if !ph.HasQuirk(QuirkPlaceholder) {
		t.Fatal("placeholder must carry the placeholder quirk")
	}

	l := NewList()
	l.Add(ph)

	real := New(id)
	real.SetName(QualityHighest, "Krita")
	real.SetVersion(QualityHighest, "5.2")
	real.SetState(StateAvailable)

	got := l.Add(real)
	if got != ph {
		t.Fatal("adoption should keep the original pointer callers hold")
	}
	if got.HasQuirk(QuirkPlaceholder) {
		t.Error("placeholder quirk must clear on adoption")
	}
	if got.Name() != "Krita" || got.Version() != "5.2" {
		t.Errorf("placeholder content not replaced: name=%q version=%q", got.Name(), got.Version())
	}

	// a late placeholder never degrades authoritative data
	late := NewPlaceholder(id)
	l.Add(late)
	if got.Name() != "Krita" {
		t.Errorf("late placeholder degraded the record: %q", got.Name())
	}
}

func TestMergeQuirkUnion(t *testing.T) {
	x := New(testID("firmware-x"))
	x.AddQuirk(QuirkNotLaunchable)

	y := New(testID("firmware-x"))
	y.AddQuirk(QuirkDoNotAutoUpdate | QuirkNeedsReboot)

	l := NewList()
	l.Add(x)
	merged := l.Add(y)

	for _, q := range []Quirk{QuirkNotLaunchable, QuirkDoNotAutoUpdate, QuirkNeedsReboot} {
		if !merged.HasQuirk(q) {
			t.Errorf("quirk %v lost in merge", q)
		}
	}
}

func TestListLookupByProvidedID(t *testing.T) {
	a := New(testID("org.gnome.Builder"))
	a.AddProvidedID("gnome-builder")

	l := NewList()
	l.Add(a)

	if _, ok := l.LookupByName("gnome-builder"); !ok {
		t.Error("lookup by provided id failed")
	}
	if _, ok := l.LookupByName("org.gnome.Builder"); !ok {
		t.Error("lookup by identity name failed")
	}
	if _, ok := l.LookupByName("nope"); ok {
		t.Error("lookup matched a name nothing provides")
	}
}

func TestListConcurrentAdd(t *testing.T) {
	l := NewList()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a := New(testID(fmt.Sprintf("app-%d", j%10)))
				a.SetName(QualityNormal, fmt.Sprintf("writer-%d", i))
				l.Add(a)
			}
		}()
	}
	wg.Wait()

	if l.Len() != 10 {
		t.Fatalf("expected 10 unique identities, got %d", l.Len())
	}
}

func TestManagedByFirstWriteWins(t *testing.T) {
	a := New(testID("htop"))
	a.SetManagedBy("pkgdb")
	a.SetManagedBy("flatpak")
	if got := a.ManagedBy(); got != "pkgdb" {
		t.Errorf("management owner must be immutable once set, got %q", got)
	}
}
