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
	"fmt"
	"slices"
	"sync"
)

// TransitionHook is triggered after a successful state transition.
type TransitionHook[T comparable] func(from, to T)

// Machine is a generic finite state machine definition. One Machine can
// validate transitions for many independent subjects; it holds the
// transition table, not the current state.
//
// Machine is safe for concurrent use.
type Machine[T comparable] struct {
	mu sync.RWMutex

	// from state -> list of valid next states
	validTransitions map[T][]T

	onTransition []TransitionHook[T]
}

// New creates an empty Machine.
func New[T comparable]() *Machine[T] {
	return &Machine[T]{
		validTransitions: make(map[T][]T),
	}
}

// Allow registers valid transitions from a source state.
func (m *Machine[T]) Allow(from T, to ...T) *Machine[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, target := range to {
		if !slices.Contains(m.validTransitions[from], target) {
			m.validTransitions[from] = append(m.validTransitions[from], target)
		}
	}
	return m
}

// OnTransition registers a hook invoked after every successful transition.
func (m *Machine[T]) OnTransition(hook TransitionHook[T]) *Machine[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = append(m.onTransition, hook)
	return m
}

// CanTransition reports whether from -> to is a valid transition.
func (m *Machine[T]) CanTransition(from, to T) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.validTransitions[from], to)
}

// Transit validates the transition and fires hooks. It returns an error
// for invalid transitions and leaves the caller's state untouched.
func (m *Machine[T]) Transit(from, to T) error {
	if from == to {
		return nil
	}
	if !m.CanTransition(from, to) {
		return fmt.Errorf("invalid state transition: %v -> %v", from, to)
	}
	m.mu.RLock()
	hooks := slices.Clone(m.onTransition)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(from, to)
	}
	return nil
}

// NextStates returns all valid next states from the given state.
func (m *Machine[T]) NextStates(from T) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.validTransitions[from])
}
