package app

import "sync"

// List is an identity-unique collection of apps. Adding an app whose
// identity key already exists merges the two records instead of
// duplicating them. Insertion order is preserved for stable output only;
// it carries no semantic meaning.
type List struct {
	mu    sync.RWMutex
	byKey map[string]*App
	order []string
}

// NewList returns an empty List.
func NewList() *List {
	return &List{byKey: map[string]*App{}}
}

// Add inserts a into the list or merges it into the existing entry with
// the same identity key. It returns the app now representing that
// identity in the list.
func (l *List) Add(a *App) *App {
	if a == nil {
		return nil
	}
	key := a.Key()

	l.mu.Lock()
	existing, ok := l.byKey[key]
	if !ok {
		l.byKey[key] = a
		l.order = append(l.order, key)
		l.mu.Unlock()
		return a
	}
	l.mu.Unlock()

	// Merging can block on the app's own mutex; do it outside the list
	// lock so unrelated identities are never serialized.
	if existing == a {
		return existing
	}
	if existing.HasQuirk(QuirkPlaceholder) && !a.HasQuirk(QuirkPlaceholder) {
		existing.adoptFrom(a)
		return existing
	}
	if !existing.HasQuirk(QuirkPlaceholder) && a.HasQuirk(QuirkPlaceholder) {
		// never let placeholder content degrade an authoritative record
		return existing
	}
	existing.mergeFrom(a)
	return existing
}

// AddList merges every app of other into l.
func (l *List) AddList(other *List) {
	if other == nil {
		return
	}
	for _, a := range other.Apps() {
		l.Add(a)
	}
}

// Lookup returns the app stored under key, if any.
func (l *List) Lookup(key string) (*App, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.byKey[key]
	return a, ok
}

// LookupByName returns the first app whose identity name or provided IDs
// match name.
func (l *List) LookupByName(name string) (*App, bool) {
	for _, a := range l.Apps() {
		if a.ID().Name == name {
			return a, true
		}
		for _, p := range a.ProvidedIDs() {
			if p == name {
				return a, true
			}
		}
	}
	return nil, false
}

// Len returns the number of unique identities in the list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byKey)
}

// Apps returns a snapshot slice of the list's apps in insertion order.
// The slice is owned by the caller; the apps are shared.
func (l *List) Apps() []*App {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*App, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.byKey[key])
	}
	return out
}

// Filter returns a new list containing the apps keep reports true for.
func (l *List) Filter(keep func(*App) bool) *List {
	out := NewList()
	for _, a := range l.Apps() {
		if keep(a) {
			out.Add(a)
		}
	}
	return out
}
