// Package cache provides the per-backend result cache. The in-process
// Memo guarantees at-most-one concurrent production per key; the
// BlobStore persists opaque backend snapshots on disk with an age-based
// staleness check.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/metrics"
)

// Class selects the TTL policy for a cache entry.
type Class int

const (
	// ClassDefault covers ordinary per-session lookups.
	ClassDefault Class = iota
	// ClassMetadata covers catalog metadata snapshots.
	ClassMetadata
	// ClassRatings covers review/rating data, refreshed weekly.
	ClassRatings
)

// TTL returns the time-to-live for the class.
func (c Class) TTL() time.Duration {
	switch c {
	case ClassMetadata:
		return 24 * time.Hour
	case ClassRatings:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Memo is a namespaced result cache. Concurrent Do calls for the same key
// share a single production: the second caller waits for and receives the
// first caller's result instead of triggering duplicate expensive work.
// Failed productions are not stored, so the next request retries.
type Memo struct {
	namespace string

	mu      sync.RWMutex
	entries map[string]*entry

	group singleflight.Group
}

// NewMemo creates a Memo scoped to the given backend namespace.
func NewMemo(namespace string) *Memo {
	return &Memo{
		namespace: namespace,
		entries:   map[string]*entry{},
	}
}

// Lookup returns the cached value for key, if present and fresh.
func (m *Memo) Lookup(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues(m.namespace, "miss").Inc()
		return nil, false
	}
	if e.expired(time.Now()) {
		m.Invalidate(key)
		metrics.CacheLookupsTotal.WithLabelValues(m.namespace, "expired").Inc()
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues(m.namespace, "hit").Inc()
	return e.value, true
}

// Store records a produced value under key with the class TTL.
func (m *Memo) Store(key string, value any, class Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = &entry{value: value, storedAt: time.Now(), ttl: class.TTL()}
}

// Invalidate drops the entry stored under key.
func (m *Memo) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// InvalidateAll drops every entry, e.g. after a settings change or an
// explicit refresh.
func (m *Memo) InvalidateAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]*entry{}
	log.Debugw("cache invalidated", "namespace", m.namespace)
}

// Do returns the cached value for key or produces it, guaranteeing that
// concurrent callers for the same key trigger exactly one production.
// A production failure is returned to all waiters and not cached.
func (m *Memo) Do(ctx context.Context, key string, class Class, produce func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := m.Lookup(key); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// the winner re-checks: a racing caller may have stored by now
		if v, ok := m.Lookup(key); ok {
			return v, nil
		}
		v, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		m.Store(key, v, class)
		return v, nil
	})
	return v, err
}
