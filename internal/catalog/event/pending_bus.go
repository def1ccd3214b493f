package event

import (
	"sync"

	"github.com/appdex/appdex/internal/catalog/app"
	"github.com/appdex/appdex/pkg/safe"
)

// PendingListener receives the current pending set whenever background
// state (install progress, queueing) changes outside an explicit job.
type PendingListener func(pending *app.List)

// PendingBus fans pending-changed notifications out to subscribers.
// Listeners run on their own goroutine so a slow presentation layer can
// never block a backend.
type PendingBus struct {
	mu        sync.RWMutex
	listeners []PendingListener
}

// NewPendingBus returns an empty bus.
func NewPendingBus() *PendingBus {
	return &PendingBus{}
}

// Subscribe registers a listener for pending-changed notifications.
func (b *PendingBus) Subscribe(fn PendingListener) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Publish notifies every subscriber with the given pending set.
func (b *PendingBus) Publish(pending *app.List) {
	b.mu.RLock()
	listeners := make([]PendingListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn := fn
		safe.Go(func() { fn(pending) })
	}
}
