// Package registry holds the dependency-resolved set of registered
// backends. Ordering constraints ("run after X") form a DAG validated at
// setup time; resolution during job execution is read-only and lock-free.
package registry

import (
	"context"

	"github.com/pkg/errors"

	"github.com/appdex/appdex/internal/backend"
	"github.com/appdex/appdex/internal/catalog/job"
	"github.com/appdex/appdex/internal/catalog/settings"
	"github.com/appdex/appdex/pkg/dag"
	"github.com/appdex/appdex/pkg/log"
)

// Registration binds a backend to its ordering constraints and
// enablement state.
type Registration struct {
	Backend  backend.Backend
	RunAfter []string
	Disabled bool
}

// NodeName implements dag.NamedNode.
func (r *Registration) NodeName() string {
	return r.Backend.Name()
}

// PrevNodeNames implements dag.NamedNode.
func (r *Registration) PrevNodeNames() []string {
	return r.RunAfter
}

// RegisterOption configures one registration.
type RegisterOption func(*Registration)

// WithRunAfter declares that the backend must run after the named ones.
func WithRunAfter(names ...string) RegisterOption {
	return func(r *Registration) {
		r.RunAfter = append(r.RunAfter, names...)
	}
}

// WithDisabled registers the backend in a disabled state.
func WithDisabled() RegisterOption {
	return func(r *Registration) {
		r.Disabled = true
	}
}

// Registry is the explicitly constructed, owned set of backends passed to
// the dispatcher. There is no ambient process-wide table. It is mutable
// until Setup and read-only afterwards.
type Registry struct {
	settings settings.Store

	regs  []*Registration
	byNme map[string]*Registration

	order  []string // topological order, valid after Setup
	setUp  bool
	closed bool
}

// New creates an empty Registry reading enablement from st.
func New(st settings.Store) *Registry {
	if st == nil {
		st = settings.NewMapStore()
	}
	return &Registry{
		settings: st,
		byNme:    map[string]*Registration{},
	}
}

// Register adds a backend. It must be called before Setup.
func (r *Registry) Register(b backend.Backend, opts ...RegisterOption) error {
	if r.setUp {
		return errors.New("registry is sealed after setup")
	}
	if b == nil || b.Name() == "" {
		return errors.New("backend must have a name")
	}
	if _, exists := r.byNme[b.Name()]; exists {
		return errors.Errorf("backend %q already registered", b.Name())
	}
	reg := &Registration{Backend: b}
	for _, opt := range opts {
		opt(reg)
	}
	r.regs = append(r.regs, reg)
	r.byNme[b.Name()] = reg
	return nil
}

// Setup resolves the dependency order and runs optional backend setup
// hooks. A cycle in the run-after constraints is a fatal configuration
// error reported here, never at job time.
func (r *Registry) Setup(ctx context.Context) error {
	if r.setUp {
		return errors.New("registry already set up")
	}

	nodes := make([]dag.NamedNode, 0, len(r.regs))
	for _, reg := range r.regs {
		nodes = append(nodes, reg)
	}
	graph, err := dag.New(nodes)
	if err != nil {
		return errors.Wrap(err, "invalid backend ordering constraints")
	}
	r.order = graph.TopoSort()

	for _, name := range r.order {
		reg := r.byNme[name]
		if !r.enabled(reg) {
			continue
		}
		if s, ok := reg.Backend.(backend.Setuper); ok {
			if err := s.Setup(ctx); err != nil {
				return errors.Wrapf(err, "backend %q setup failed", name)
			}
		}
	}

	r.setUp = true
	log.Infow("backend registry ready", "order", r.order)
	return nil
}

// Teardown runs optional backend teardown hooks in reverse order.
func (r *Registry) Teardown(ctx context.Context) {
	if r.closed {
		return
	}
	r.closed = true
	for i := len(r.order) - 1; i >= 0; i-- {
		reg := r.byNme[r.order[i]]
		if t, ok := reg.Backend.(backend.Teardowner); ok {
			if err := t.Teardown(ctx); err != nil {
				log.Warnw("backend teardown failed", "backend", reg.Backend.Name(), "error", err)
			}
		}
	}
}

func (r *Registry) enabled(reg *Registration) bool {
	if reg.Disabled {
		return false
	}
	return r.settings.GetBool(settings.BackendEnabledKey(reg.Backend.Name()), true)
}

// ResolveOrder returns the enabled backends whose capability set includes
// action, in dependency order. An empty result is not an error; the
// dispatcher decides whether the action tolerates no results.
func (r *Registry) ResolveOrder(action job.Action) []backend.Backend {
	var out []backend.Backend
	for _, name := range r.order {
		reg := r.byNme[name]
		if !r.enabled(reg) {
			continue
		}
		if reg.Backend.Capabilities().ServesAction(action) {
			out = append(out, reg.Backend)
		}
	}
	return out
}

// RefinerBinding pairs a refiner with its name and the flag subset it
// declared.
type RefinerBinding struct {
	Name    string
	Flags   job.RefineFlags
	Refiner backend.Refiner
}

// ResolveRefiners returns the enabled refiner backends able to satisfy at
// least one of the requested flags, in dependency order. The ordering is
// a hard dependency property: a later refiner may rely on attributes an
// earlier one set.
func (r *Registry) ResolveRefiners(flags job.RefineFlags) []RefinerBinding {
	var out []RefinerBinding
	for _, name := range r.order {
		reg := r.byNme[name]
		if !r.enabled(reg) {
			continue
		}
		ref, ok := reg.Backend.(backend.Refiner)
		if !ok {
			continue
		}
		serves := reg.Backend.Capabilities().Refine & flags
		if serves != 0 {
			out = append(out, RefinerBinding{Name: name, Flags: serves, Refiner: ref})
		}
	}
	return out
}

// Refreshers returns the enabled backends holding persisted snapshots.
func (r *Registry) Refreshers() []backend.Refresher {
	var out []backend.Refresher
	for _, name := range r.order {
		reg := r.byNme[name]
		if !r.enabled(reg) {
			continue
		}
		if ref, ok := reg.Backend.(backend.Refresher); ok {
			out = append(out, ref)
		}
	}
	return out
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (backend.Backend, bool) {
	reg, ok := r.byNme[name]
	if !ok || !r.enabled(reg) {
		return nil, false
	}
	return reg.Backend, true
}

// Names returns the resolved backend order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
