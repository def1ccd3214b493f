// Copyright 2026 Appdex Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statemachine

import (
	"sync"
	"testing"
)

func TestTransit(t *testing.T) {
	m := New[string]().
		Allow("idle", "running").
		Allow("running", "done", "failed")

	if err := m.Transit("idle", "running"); err != nil {
		t.Fatalf("valid transition rejected: %v", err)
	}
	if err := m.Transit("idle", "done"); err == nil {
		t.Fatal("invalid transition accepted")
	}
	if err := m.Transit("running", "running"); err != nil {
		t.Fatal("same-state transition must be a no-op")
	}
}

func TestCanTransition(t *testing.T) {
	m := New[int]().Allow(1, 2, 3)

	if !m.CanTransition(1, 2) || !m.CanTransition(1, 3) {
		t.Error("registered transitions not allowed")
	}
	if m.CanTransition(2, 1) {
		t.Error("reverse transition must not be implied")
	}
}

func TestOnTransitionHook(t *testing.T) {
	var got [][2]string
	m := New[string]().
		Allow("a", "b").
		OnTransition(func(from, to string) {
			got = append(got, [2]string{from, to})
		})

	if err := m.Transit("a", "b"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != [2]string{"a", "b"} {
		t.Errorf("hook not fired correctly: %v", got)
	}

	// hooks must not fire for rejected or no-op transitions
	_ = m.Transit("b", "a")
	_ = m.Transit("a", "a")
	if len(got) != 1 {
		t.Errorf("hook fired for invalid or no-op transition: %v", got)
	}
}

func TestNextStates(t *testing.T) {
	m := New[string]().Allow("a", "b", "c")
	next := m.NextStates("a")
	if len(next) != 2 {
		t.Fatalf("expected 2 next states, got %v", next)
	}
	if len(m.NextStates("b")) != 0 {
		t.Error("terminal state must have no next states")
	}
}

func TestAllowDeduplicates(t *testing.T) {
	m := New[string]().Allow("a", "b").Allow("a", "b")
	if got := m.NextStates("a"); len(got) != 1 {
		t.Errorf("duplicate Allow must not duplicate targets: %v", got)
	}
}

func TestConcurrentUse(t *testing.T) {
	m := New[int]().Allow(0, 1).Allow(1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Transit(0, 1)
				_ = m.CanTransition(1, 0)
			}
		}()
	}
	wg.Wait()
}
