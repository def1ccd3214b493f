package app

import (
	"github.com/appdex/appdex/pkg/log"
	"github.com/appdex/appdex/pkg/statemachine"
)

// State is the installation lifecycle state of an app.
type State int

const (
	StateUnknown State = iota
	StateAvailable
	StateQueued
	StateInstalling
	StateInstalled
	StateUpdatable
	StateUpdatableLive
	StateRemoving
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateQueued:
		return "queued"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateUpdatable:
		return "updatable"
	case StateUpdatableLive:
		return "updatable-live"
	case StateRemoving:
		return "removing"
	default:
		return "unknown"
	}
}

// stateMachine is the shared transition table for all apps. StateUnknown
// acts as a reset target: any state may fall back to it when a backend
// loses track of an app.
var stateMachine = statemachine.New[State]().
	Allow(StateUnknown,
		StateAvailable, StateQueued, StateInstalling, StateInstalled,
		StateUpdatable, StateUpdatableLive, StateRemoving).
	Allow(StateAvailable, StateQueued, StateInstalling, StateUnknown).
	Allow(StateQueued, StateInstalling, StateRemoving, StateAvailable, StateUnknown).
	Allow(StateInstalling, StateInstalled, StateUpdatable, StateAvailable, StateUnknown).
	Allow(StateInstalled, StateQueued, StateRemoving, StateUpdatable, StateUpdatableLive, StateUnknown).
	Allow(StateUpdatable, StateQueued, StateInstalling, StateRemoving, StateUnknown).
	Allow(StateUpdatableLive, StateQueued, StateInstalling, StateRemoving, StateUnknown).
	Allow(StateRemoving, StateAvailable, StateInstalled, StateUnknown)

// State returns the current lifecycle state.
func (a *App) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// SetState applies a validated state transition and reports whether the
// state changed. Invalid transitions are logged and ignored so a confused
// backend cannot corrupt the lifecycle.
func (a *App) SetState(st State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == st {
		return false
	}
	if err := stateMachine.Transit(a.state, st); err != nil {
		log.Warnw("rejected app state transition",
			"app", a.id.Key(), "from", a.state.String(), "to", st.String())
		return false
	}
	a.state = st
	if st != StateInstalling && st != StateRemoving {
		a.progress = 0
	}
	return true
}

// InstallPending reports whether the app is queued or mid-operation,
// which is what the pending-changed notification tracks.
func (a *App) InstallPending() bool {
	switch a.State() {
	case StateQueued, StateInstalling, StateRemoving:
		return true
	default:
		return false
	}
}
