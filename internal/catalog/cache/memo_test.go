package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
)

func TestMemoLookupMissAndHit(t *testing.T) {
	m := NewMemo("test")

	if _, ok := m.Lookup("k"); ok {
		t.Fatal("lookup on empty memo must miss")
	}

	m.Store("k", 42, ClassDefault)
	v, ok := m.Lookup("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("lookup after store: got %v, %v", v, ok)
	}

	m.Invalidate("k")
	if _, ok := m.Lookup("k"); ok {
		t.Fatal("lookup after invalidate must miss")
	}
}

func TestMemoDoSingleProduction(t *testing.T) {
	m := NewMemo("test")

	var productions int64
	gate := make(chan struct{})

	const callers = 16
	var wg sync.WaitGroup
	results := make([]any, callers)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.Do(context.Background(), "k", ClassDefault, func(ctx context.Context) (any, error) {
				atomic.AddInt64(&productions, 1)
				<-gate
				return "value", nil
			})
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = v
		}()
	}

	close(gate)
	wg.Wait()

	if got := atomic.LoadInt64(&productions); got != 1 {
		t.Fatalf("expected exactly one production for concurrent callers, got %d", got)
	}
	for i, v := range results {
		if v != "value" {
			t.Errorf("caller %d received %v", i, v)
		}
	}
}

func TestMemoDoFailureNotCached(t *testing.T) {
	m := NewMemo("test")

	var calls int
	produce := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	if _, err := m.Do(context.Background(), "k", ClassDefault, produce); err == nil {
		t.Fatal("first production should fail")
	}
	v, err := m.Do(context.Background(), "k", ClassDefault, produce)
	if err != nil {
		t.Fatalf("second production should retry and succeed: %v", err)
	}
	if v != "ok" || calls != 2 {
		t.Fatalf("failure was cached: v=%v calls=%d", v, calls)
	}
}

func TestMemoInvalidateAll(t *testing.T) {
	m := NewMemo("test")
	m.Store("a", 1, ClassDefault)
	m.Store("b", 2, ClassMetadata)
	m.InvalidateAll()
	if _, ok := m.Lookup("a"); ok {
		t.Error("entry a survived InvalidateAll")
	}
	if _, ok := m.Lookup("b"); ok {
		t.Error("entry b survived InvalidateAll")
	}
}

func TestClassTTL(t *testing.T) {
	if ClassRatings.TTL() <= ClassMetadata.TTL() || ClassMetadata.TTL() <= ClassDefault.TTL() {
		t.Error("TTL classes must be strictly ordered default < metadata < ratings")
	}
}
