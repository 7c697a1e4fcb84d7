package eventbus

import "time"

// Event kinds form the shared vocabulary of the installation. Producers and
// consumers agree on dotted kind strings; wildcard predicates can match on a
// prefix (for example "input.*").
const (
	// Input events published by the hardware-facing input drivers.
	KindButtonPressed  = "input.button.pressed"
	KindButtonReleased = "input.button.released"
	KindKeypadDigit    = "input.keypad.digit"
	KindBack           = "input.back"
	KindRebootHold     = "input.reboot.hold"

	// Mode lifecycle events.
	KindModeConfirmed      = "mode.confirmed"
	KindModeRejected       = "mode.rejected"
	KindModeAsyncRequested = "mode.processing.requested"
	KindModeCompleted      = "mode.completed"
	KindModeFault          = "mode.fault"

	// Background task terminal events. Every spawned task publishes exactly
	// one of these, tagged with the originating mode's epoch.
	KindTaskSucceeded    = "task.succeeded"
	KindTaskFailed       = "task.failed"
	KindTaskStaleDropped = "task.stale.dropped"

	// Printing flow events.
	KindPrintRequested = "print.requested"
	KindPrintDone      = "print.done"
	KindPrintSkipped   = "print.skipped"

	// Controller events.
	KindStateChanged = "state.changed"
	KindStateTimeout = "state.timeout"
	KindSystemReset  = "system.reset"

	// Frame clock tick, published once per compositor tick.
	KindTick = "clock.tick"

	// Configuration and schedule events.
	KindConfigChanged  = "config.changed"
	KindScheduleFired  = "schedule.fired"
	KindQuietEnter     = "schedule.quiet.enter"
	KindQuietLeave     = "schedule.quiet.leave"
	KindNightlyReset   = "schedule.nightly.reset"
	KindAmbientRotated = "schedule.ambient.rotate"
)

// Event is an immutable fact published on the bus. Events are created by
// producers, delivered to every matching subscriber, then discarded; they are
// never mutated after publish.
type Event struct {
	// Kind is the dotted event kind, one of the Kind constants above or a
	// mode-private kind.
	Kind string `json:"kind"`

	// Payload carries kind-specific data. It may be nil.
	Payload any `json:"payload,omitempty"`

	// Source identifies the publishing component, for diagnostics.
	Source string `json:"source,omitempty"`

	// Epoch tags events originating from a mode instance or its background
	// tasks. Zero means the event has no owning epoch.
	Epoch uint64 `json:"epoch,omitempty"`

	// Timestamp is set by the bus at publish time if the producer left it
	// zero.
	Timestamp time.Time `json:"timestamp"`
}

// TickPayload is the payload of KindTick events.
type TickPayload struct {
	Delta time.Duration `json:"delta"`
	Frame uint64        `json:"frame"`
}

// ModePayload is the payload of mode selection events (KindModeConfirmed,
// KindModeRejected).
type ModePayload struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// StatePayload is the payload of KindStateChanged and KindStateTimeout
// events. States are carried as strings so consumers outside the controller
// do not need its types.
type StatePayload struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Cause string `json:"cause,omitempty"`
}

// TaskPayload is the payload of task terminal events.
type TaskPayload struct {
	TaskID string `json:"taskId"`
	Kind   string `json:"kind"`
	Result any    `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}
