// Package dummy is a deterministic in-memory backend for the test suite.
// It serves canned apps, can be told to fail or block, and counts its
// invocations so tests can assert on them.
package dummy

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/internal/catalog/job"
)

// Backend is a configurable in-memory capability provider.
type Backend struct {
	name string
	caps backend.Capabilities

	apps     []*app.App
	execErr  error
	refErr   error
	execGate chan struct{} // when set, Execute blocks until closed or ctx done
	delay    time.Duration

	refineFn func(a *app.App, flags job.RefineFlags)

	executeCalls int64
	refineCalls  int64
}

// Option configures the dummy backend.
type Option func(*Backend)

// WithApps seeds the apps Execute returns.
func WithApps(apps ...*app.App) Option {
	return func(b *Backend) { b.apps = apps }
}

// WithExecuteError makes Execute always fail.
func WithExecuteError(err error) Option {
	return func(b *Backend) { b.execErr = err }
}

// WithRefineError makes Refine always fail.
func WithRefineError(err error) Option {
	return func(b *Backend) { b.refErr = err }
}

// WithExecuteGate makes Execute block until the gate closes or the
// context is cancelled.
func WithExecuteGate(gate chan struct{}) Option {
	return func(b *Backend) { b.execGate = gate }
}

// WithDelay makes Execute sleep before returning.
func WithDelay(d time.Duration) Option {
	return func(b *Backend) { b.delay = d }
}

// WithCapabilities overrides the default capability set.
func WithCapabilities(caps backend.Capabilities) Option {
	return func(b *Backend) { b.caps = caps }
}

// WithRefineFunc sets the attribute writes Refine performs.
func WithRefineFunc(fn func(a *app.App, flags job.RefineFlags)) Option {
	return func(b *Backend) { b.refineFn = fn }
}

// New creates a dummy backend with the given name.
func New(name string, opts ...Option) *Backend {
	b := &Backend{
		name: name,
		caps: backend.Capabilities{
			Actions: []job.Action{
				job.ActionGetInstalled, job.ActionGetUpdates, job.ActionSearch,
				job.ActionInstall, job.ActionRemove, job.ActionRefresh,
			},
			Refine: job.RefineRequireName | job.RefineRequireDescription |
				job.RefineRequireIcon | job.RefineRequireRating,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) Capabilities() backend.Capabilities {
	return b.caps
}

// ExecuteCalls returns how many times Execute ran.
func (b *Backend) ExecuteCalls() int {
	return int(atomic.LoadInt64(&b.executeCalls))
}

// RefineCalls returns how many times Refine ran.
func (b *Backend) RefineCalls() int {
	return int(atomic.LoadInt64(&b.refineCalls))
}

func (b *Backend) Execute(ctx context.Context, j *job.Job) (*app.List, error) {
	atomic.AddInt64(&b.executeCalls, 1)

	if b.execGate != nil {
		select {
		case <-b.execGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.execErr != nil {
		return nil, b.execErr
	}

	out := app.NewList()
	for _, a := range b.apps {
		out.Add(a)
	}
	return out, nil
}

func (b *Backend) Refine(ctx context.Context, a *app.App, flags job.RefineFlags) error {
	atomic.AddInt64(&b.refineCalls, 1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.refErr != nil {
		return b.refErr
	}
	if b.refineFn != nil {
		b.refineFn(a, flags)
	}
	return nil
}
