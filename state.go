// Package artifact is the top-level controller of the installation: the
// application state machine, the mode selection flow and the observer-based
// diagnostics surface. The controller owns the single source of truth for
// what the device is doing; everything reaches it as bus events and every
// decision leaves it as bus events.
package artifact

import (
	"fmt"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// State is the top-level application state. Exactly one value holds at any
// instant; it is mutated only through Transition.
type State string

const (
	// StateIdle is the resting attract state. A primary button press opens
	// mode selection.
	StateIdle State = "idle"

	// StateModeSelect is the menu: the visitor picks an experience or the
	// selection times out back to idle.
	StateModeSelect State = "mode_select"

	// StateModeActive means a mode instance is running interactively.
	StateModeActive State = "mode_active"

	// StateProcessing means the active mode is waiting on background work.
	StateProcessing State = "processing"

	// StateResult shows the outcome of the finished experience.
	StateResult State = "result"

	// StatePrinting runs the physical print of a result.
	StatePrinting State = "printing"

	// StateError is the user-visible fallback after an unhandled fault. It
	// always has an escape: recovery timeout, explicit reset or reboot hold.
	StateError State = "error"
)

// transitions is the legal state transition table, keyed by current state
// then event kind. Pairs absent from the table are illegal. The two global
// overrides (reboot hold, unhandled fault) are handled before the table in
// Transition.
var transitions = map[State]map[string]State{
	StateIdle: {
		eventbus.KindButtonPressed: StateModeSelect,
	},
	StateModeSelect: {
		eventbus.KindModeConfirmed: StateModeActive,
		eventbus.KindStateTimeout:  StateIdle,
		eventbus.KindBack:          StateIdle,
	},
	StateModeActive: {
		eventbus.KindModeAsyncRequested: StateProcessing,
		eventbus.KindModeCompleted:      StateResult,
	},
	StateProcessing: {
		eventbus.KindTaskSucceeded: StateResult,
		eventbus.KindTaskFailed:    StateError,
		eventbus.KindStateTimeout:  StateError,
	},
	StateResult: {
		eventbus.KindPrintRequested: StatePrinting,
		eventbus.KindStateTimeout:   StateIdle,
		eventbus.KindBack:           StateIdle,
	},
	StatePrinting: {
		eventbus.KindPrintDone:    StateIdle,
		eventbus.KindPrintSkipped: StateIdle,
	},
	StateError: {
		eventbus.KindStateTimeout: StateIdle,
		eventbus.KindSystemReset:  StateIdle,
	},
}

// Transition resolves the next state for an event kind arriving in the
// current state. Illegal pairs return ErrIllegalTransition and leave the
// decision to log-and-ignore or escalate with the caller.
//
// Two kinds are legal from every state: a reboot hold always lands in idle,
// and an unhandled fault always lands in error.
func Transition(current State, kind string) (State, error) {
	switch kind {
	case eventbus.KindRebootHold:
		return StateIdle, nil
	case eventbus.KindModeFault:
		return StateError, nil
	}

	next, ok := transitions[current][kind]
	if !ok {
		return current, fmt.Errorf("%w: %q in state %q", ErrIllegalTransition, kind, current)
	}
	return next, nil
}

// HoldsMode reports whether a mode instance exists in the given state. The
// single-mode invariant ties instance lifetime to exactly these states.
func HoldsMode(s State) bool {
	return s == StateModeActive || s == StateProcessing || s == StateResult
}
