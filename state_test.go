package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/artifact/eventbus"
)

var allStates = []State{
	StateIdle, StateModeSelect, StateModeActive, StateProcessing,
	StateResult, StatePrinting, StateError,
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from State
		kind string
		to   State
	}{
		{StateIdle, eventbus.KindButtonPressed, StateModeSelect},
		{StateModeSelect, eventbus.KindModeConfirmed, StateModeActive},
		{StateModeSelect, eventbus.KindStateTimeout, StateIdle},
		{StateModeSelect, eventbus.KindBack, StateIdle},
		{StateModeActive, eventbus.KindModeAsyncRequested, StateProcessing},
		{StateModeActive, eventbus.KindModeCompleted, StateResult},
		{StateProcessing, eventbus.KindTaskSucceeded, StateResult},
		{StateProcessing, eventbus.KindTaskFailed, StateError},
		{StateProcessing, eventbus.KindStateTimeout, StateError},
		{StateResult, eventbus.KindPrintRequested, StatePrinting},
		{StateResult, eventbus.KindStateTimeout, StateIdle},
		{StateResult, eventbus.KindBack, StateIdle},
		{StatePrinting, eventbus.KindPrintDone, StateIdle},
		{StatePrinting, eventbus.KindPrintSkipped, StateIdle},
		{StateError, eventbus.KindStateTimeout, StateIdle},
		{StateError, eventbus.KindSystemReset, StateIdle},
	}

	for _, tc := range cases {
		next, err := Transition(tc.from, tc.kind)
		require.NoError(t, err, "%s on %s", tc.kind, tc.from)
		assert.Equal(t, tc.to, next, "%s on %s", tc.kind, tc.from)
	}
}

func TestTransitionGlobalOverrides(t *testing.T) {
	for _, state := range allStates {
		next, err := Transition(state, eventbus.KindRebootHold)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, next)

		next, err = Transition(state, eventbus.KindModeFault)
		require.NoError(t, err)
		assert.Equal(t, StateError, next)
	}
}

// Every (state, kind) pair outside the table is rejected and leaves the
// state unchanged.
func TestTransitionTableClosure(t *testing.T) {
	kinds := []string{
		eventbus.KindButtonPressed,
		eventbus.KindButtonReleased,
		eventbus.KindKeypadDigit,
		eventbus.KindBack,
		eventbus.KindModeConfirmed,
		eventbus.KindModeAsyncRequested,
		eventbus.KindModeCompleted,
		eventbus.KindTaskSucceeded,
		eventbus.KindTaskFailed,
		eventbus.KindPrintRequested,
		eventbus.KindPrintDone,
		eventbus.KindPrintSkipped,
		eventbus.KindStateTimeout,
		eventbus.KindSystemReset,
		eventbus.KindTick,
		eventbus.KindConfigChanged,
		"mode.private.something",
	}

	for _, state := range allStates {
		for _, kind := range kinds {
			if _, legal := transitions[state][kind]; legal {
				continue
			}
			next, err := Transition(state, kind)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s on %s", kind, state)
			assert.Equal(t, state, next, "%s on %s", kind, state)
		}
	}
}

func TestHoldsMode(t *testing.T) {
	holding := map[State]bool{
		StateModeActive: true,
		StateProcessing: true,
		StateResult:     true,
	}
	for _, state := range allStates {
		assert.Equal(t, holding[state], HoldsMode(state), string(state))
	}
}
