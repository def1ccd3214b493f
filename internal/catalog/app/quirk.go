package app

// Quirk is an orthogonal boolean property of an app, independent of the
// state machine. Quirks are set once, read widely, and union on merge.
type Quirk uint32

const (
	// QuirkNotLaunchable marks apps with no desktop entry point (firmware,
	// runtimes).
	QuirkNotLaunchable Quirk = 1 << iota
	// QuirkCompulsory marks apps that cannot be removed.
	QuirkCompulsory
	// QuirkDoNotAutoUpdate excludes the app from unattended updates.
	QuirkDoNotAutoUpdate
	// QuirkNeedsUserAction means the update cannot proceed without manual
	// intervention (e.g. unplug and replug the device).
	QuirkNeedsUserAction
	// QuirkNeedsReboot means the update applies on the next boot.
	QuirkNeedsReboot
	// QuirkPlaceholder marks a stand-in record created before authoritative
	// data arrived; the first authoritative merge replaces it wholesale.
	QuirkPlaceholder
)

// HasQuirk reports whether all bits of q are set.
func (a *App) HasQuirk(q Quirk) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.quirks&q == q
}

// AddQuirk sets the given quirk bits.
func (a *App) AddQuirk(q Quirk) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quirks |= q
}

// RemoveQuirk clears the given quirk bits.
func (a *App) RemoveQuirk(q Quirk) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quirks &^= q
}
