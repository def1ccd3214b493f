// Package backend defines the capability interface every data source
// implements. The core treats backends as opaque capability providers:
// it knows which actions and refine flags a backend serves, never how.
package backend

import (
	"context"
	"time"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/job"
)

// Capabilities declares what a backend can serve.
type Capabilities struct {
	// Actions the backend's Execute accepts.
	Actions []job.Action
	// Refine flags the backend's Refine can satisfy.
	Refine job.RefineFlags
}

// ServesAction reports whether the capability set includes action.
func (c Capabilities) ServesAction(action job.Action) bool {
	for _, a := range c.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Backend is one independently-failing data source. Execute must be safe
// for concurrent invocation with other backends' Execute, must respect
// ctx cancellation at safe points, and returns its partial view of the
// result; the dispatcher merges partial views by identity.
type Backend interface {
	Name() string
	Capabilities() Capabilities
	Execute(ctx context.Context, j *job.Job) (*app.List, error)
}

// Refiner is implemented by backends that can enrich apps on demand.
// Refine is invoked once per app with the subset of requested flags this
// backend declared; it must be idempotent.
type Refiner interface {
	Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error
}

// Setuper is an optional lifecycle hook run once at registry setup.
type Setuper interface {
	Setup(ctx context.Context) error
}

// Teardowner is an optional lifecycle hook run at shutdown.
type Teardowner interface {
	Teardown(ctx context.Context) error
}

// Refresher is implemented by backends holding persisted snapshots.
// Refresh must re-download data older than maxCacheAge and may no-op when
// the snapshot is fresh enough.
type Refresher interface {
	Refresh(ctx context.Context, maxCacheAge time.Duration) error
}
