// Package app holds the shared application record that every backend
// contributes to, plus the identity-unique List used to merge the
// per-backend views of one job into a single result.
package app

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Scope says which installation scope an app belongs to.
type Scope int

const (
	ScopeUnknown Scope = iota
	ScopeUser
	ScopeSystem
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeSystem:
		return "system"
	default:
		return "*"
	}
}

// BundleKind says how an app is packaged.
type BundleKind int

const (
	BundleUnknown BundleKind = iota
	BundleNone
	BundlePackage
	BundleFlatpak
	BundleFirmware
)

func (k BundleKind) String() string {
	switch k {
	case BundleNone:
		return "none"
	case BundlePackage:
		return "package"
	case BundleFlatpak:
		return "flatpak"
	case BundleFirmware:
		return "firmware"
	default:
		return "*"
	}
}

// ID is the stable identity of an app. Two apps with an equal Key refer
// to the same real-world object and must be merged, never duplicated.
type ID struct {
	Scope  Scope
	Kind   BundleKind
	Origin string
	Name   string
	Branch string
}

// Key returns the stable unique key for this identity.
func (id ID) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", id.Scope, id.Kind, id.Origin, id.Name, id.Branch)
}

// Quality ranks the source of an attribute write. A write at a lower
// quality than the recorded one is ignored; an equal-quality write keeps
// the first value. Backends writing placeholder data use QualityLowest so
// an authoritative source can overwrite it later.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityLowest
	QualityNormal
	QualityHighest
)

// Review is one user review of an app.
type Review struct {
	Reviewer string    `json:"reviewer"`
	Summary  string    `json:"summary"`
	Text     string    `json:"text"`
	Rating   int       `json:"rating"`
	Date     time.Time `json:"date"`
}

type qualityString struct {
	value   string
	quality Quality
}

// set applies the precedence rule and reports whether the value changed.
func (s *qualityString) set(q Quality, v string) bool {
	if v == "" || q <= s.quality {
		return false
	}
	s.value = v
	s.quality = q
	return true
}

// App is one installable, updatable or reviewable unit. All mutation goes
// through the setters; the struct is shared between the dispatcher, the
// result cache and the presentation layer for as long as any of them
// holds it.
type App struct {
	mu sync.RWMutex

	id     ID
	state  State
	quirks Quirk

	name        qualityString
	summary     qualityString
	description qualityString
	icon        qualityString
	version     qualityString

	updateVersion string
	updateDetails string

	installedSize uint64
	downloadSize  uint64

	rating        int // percentage, -1 when unset
	reviewRatings []int
	reviews       []Review

	providedIDs []string
	managedBy   string
	progress    int

	metadata map[string]string
}

// New creates an App with the given identity.
func New(id ID) *App {
	return &App{
		id:       id,
		rating:   -1,
		metadata: map[string]string{},
	}
}

// NewPlaceholder creates a low-quality stand-in record for an identity
// whose authoritative data has not arrived yet. The first merge with a
// non-placeholder app replaces its content wholesale.
func NewPlaceholder(id ID) *App {
	a := New(id)
	a.quirks = QuirkPlaceholder
	a.name.set(QualityLowest, "Unknown Application")
	a.summary.set(QualityLowest, "Application not found")
	return a
}

// ID returns the app's identity.
func (a *App) ID() ID {
	return a.id
}

// Key returns the app's stable unique key.
func (a *App) Key() string {
	return a.id.Key()
}

func (a *App) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.name.value
}

// SetName records the display name if q beats the recorded quality.
func (a *App) SetName(q Quality, v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name.set(q, v)
}

func (a *App) Summary() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary.value
}

func (a *App) SetSummary(q Quality, v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.set(q, v)
}

func (a *App) Description() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.description.value
}

func (a *App) SetDescription(q Quality, v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.description.set(q, v)
}

func (a *App) Icon() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.icon.value
}

func (a *App) SetIcon(q Quality, v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.icon.set(q, v)
}

func (a *App) Version() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version.value
}

func (a *App) SetVersion(q Quality, v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.version.set(q, v)
}

func (a *App) UpdateVersion() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.updateVersion
}

func (a *App) SetUpdateVersion(v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v != "" {
		a.updateVersion = v
	}
}

func (a *App) UpdateDetails() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.updateDetails
}

func (a *App) SetUpdateDetails(v string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v != "" {
		a.updateDetails = v
	}
}

func (a *App) InstalledSize() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.installedSize
}

func (a *App) SetInstalledSize(v uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v > 0 {
		a.installedSize = v
	}
}

func (a *App) DownloadSize() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.downloadSize
}

func (a *App) SetDownloadSize(v uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v > 0 {
		a.downloadSize = v
	}
}

// Rating returns the aggregate rating percentage, or -1 when unset.
func (a *App) Rating() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rating
}

func (a *App) SetRating(v int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v >= 0 {
		a.rating = v
	}
}

// ReviewRatings returns the star histogram, or nil when unset.
func (a *App) ReviewRatings() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.reviewRatings)
}

func (a *App) SetReviewRatings(v []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(v) > 0 {
		a.reviewRatings = slices.Clone(v)
	}
}

func (a *App) Reviews() []Review {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.reviews)
}

func (a *App) SetReviews(v []Review) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(v) > 0 {
		a.reviews = slices.Clone(v)
	}
}

// ProvidedIDs returns alternative identifiers other backends know this
// app by (e.g. a package name for a desktop id).
func (a *App) ProvidedIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.providedIDs)
}

func (a *App) AddProvidedID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id != "" && !slices.Contains(a.providedIDs, id) {
		a.providedIDs = append(a.providedIDs, id)
	}
}

// ManagedBy names the single backend that owns install/remove for this app.
func (a *App) ManagedBy() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.managedBy
}

func (a *App) SetManagedBy(backend string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.managedBy == "" {
		a.managedBy = backend
	}
}

// Progress returns the install/remove progress percentage.
func (a *App) Progress() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress
}

func (a *App) SetProgress(v int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v >= 0 && v <= 100 {
		a.progress = v
	}
}

// Metadata returns the backend-private value stored under key.
func (a *App) Metadata(key string) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metadata[key]
}

// SetMetadata stashes backend-private state on the shared record.
// Keys are conventionally prefixed with the backend name ("odrs::user-skey").
func (a *App) SetMetadata(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// mergeFrom folds other's attributes into a, attribute by attribute,
// honoring the quality precedence rule. Both orders of merging two apps
// produce the same attribute set as long as conflicting writers used
// distinct qualities.
func (a *App) mergeFrom(other *App) {
	other.mu.RLock()
	snap := struct {
		state         State
		quirks        Quirk
		name          qualityString
		summary       qualityString
		description   qualityString
		icon          qualityString
		version       qualityString
		updateVersion string
		updateDetails string
		installedSize uint64
		downloadSize  uint64
		rating        int
		reviewRatings []int
		reviews       []Review
		providedIDs   []string
		managedBy     string
		metadata      map[string]string
	}{
		other.state, other.quirks,
		other.name, other.summary, other.description, other.icon, other.version,
		other.updateVersion, other.updateDetails,
		other.installedSize, other.downloadSize,
		other.rating, slices.Clone(other.reviewRatings), slices.Clone(other.reviews),
		slices.Clone(other.providedIDs), other.managedBy,
		maps.Clone(other.metadata),
	}
	other.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.name.set(snap.name.quality, snap.name.value)
	a.summary.set(snap.summary.quality, snap.summary.value)
	a.description.set(snap.description.quality, snap.description.value)
	a.icon.set(snap.icon.quality, snap.icon.value)
	a.version.set(snap.version.quality, snap.version.value)

	if a.updateVersion == "" {
		a.updateVersion = snap.updateVersion
	}
	if a.updateDetails == "" {
		a.updateDetails = snap.updateDetails
	}
	if a.installedSize == 0 {
		a.installedSize = snap.installedSize
	}
	if a.downloadSize == 0 {
		a.downloadSize = snap.downloadSize
	}
	if a.rating < 0 {
		a.rating = snap.rating
	}
	if len(a.reviewRatings) == 0 {
		a.reviewRatings = snap.reviewRatings
	}
	if len(a.reviews) == 0 {
		a.reviews = snap.reviews
	}
	for _, id := range snap.providedIDs {
		if !slices.Contains(a.providedIDs, id) {
			a.providedIDs = append(a.providedIDs, id)
		}
	}
	if a.managedBy == "" {
		a.managedBy = snap.managedBy
	}
	for k, v := range snap.metadata {
		if _, ok := a.metadata[k]; !ok {
			a.metadata[k] = v
		}
	}

	// quirks never conflict, union them (placeholder handled by adoptFrom)
	a.quirks |= snap.quirks &^ QuirkPlaceholder

	if a.state == StateUnknown {
		a.state = snap.state
	}
}

// adoptFrom replaces a's content wholesale with other's. Used when a is a
// placeholder and authoritative data arrives for the first time.
func (a *App) adoptFrom(other *App) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = other.state
	a.quirks = other.quirks &^ QuirkPlaceholder
	a.name = other.name
	a.summary = other.summary
	a.description = other.description
	a.icon = other.icon
	a.version = other.version
	a.updateVersion = other.updateVersion
	a.updateDetails = other.updateDetails
	a.installedSize = other.installedSize
	a.downloadSize = other.downloadSize
	a.rating = other.rating
	a.reviewRatings = slices.Clone(other.reviewRatings)
	a.reviews = slices.Clone(other.reviews)
	a.providedIDs = slices.Clone(other.providedIDs)
	a.managedBy = other.managedBy
	a.metadata = maps.Clone(other.metadata)
}
