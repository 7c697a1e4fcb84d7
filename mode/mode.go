// Package mode imposes a uniform lifecycle contract on otherwise arbitrary
// experience implementations and mediates their access to the shared
// services: the event bus, the animation engine and the background task
// spawner. The manager is the only component that instantiates and tears
// down experiences; faults inside a mode's callbacks are contained here and
// surface only as bus events, never as escaping panics.
package mode

import (
	"time"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// Phase is a mode instance's position in the fixed lifecycle
// Intro -> Active -> {Processing -> Result | Result} -> Outro.
type Phase string

const (
	PhaseIntro      Phase = "intro"
	PhaseActive     Phase = "active"
	PhaseProcessing Phase = "processing"
	PhaseResult     Phase = "result"
	PhaseOutro      Phase = "outro"
)

var phaseSuccessors = map[Phase][]Phase{
	PhaseIntro:      {PhaseActive, PhaseOutro},
	PhaseActive:     {PhaseProcessing, PhaseResult, PhaseOutro},
	PhaseProcessing: {PhaseResult, PhaseOutro},
	PhaseResult:     {PhaseOutro},
	PhaseOutro:      {},
}

func phaseAllowed(from, to Phase) bool {
	for _, p := range phaseSuccessors[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Capability names a physical facility an experience needs.
type Capability string

const (
	CapabilityCamera  Capability = "camera"
	CapabilityPrinter Capability = "printer"
	CapabilityAI      Capability = "ai"
	CapabilityAudio   Capability = "audio"
)

// Descriptor is the static metadata for a registered experience. Descriptors
// are registered once at startup and never mutated.
type Descriptor struct {
	// Name is the registry key, stable across sessions.
	Name string `json:"name" yaml:"name" toml:"name"`

	// DisplayName is shown on the selection carousel.
	DisplayName string `json:"displayName" yaml:"displayName" toml:"displayName"`

	// Requires lists capabilities that must be present before the mode may
	// be entered.
	Requires []Capability `json:"requires,omitempty" yaml:"requires,omitempty" toml:"requires,omitempty"`
}

// Result is what a completed (or aborted) mode session leaves behind. The
// controller uses it to drive the result screen and the printing flow.
type Result struct {
	ModeName    string         `json:"modeName"`
	Success     bool           `json:"success"`
	Err         string         `json:"error,omitempty"`
	DisplayText string         `json:"displayText,omitempty"`
	TickerText  string         `json:"tickerText,omitempty"`
	StatusText  string         `json:"statusText,omitempty"`
	ShouldPrint bool           `json:"shouldPrint,omitempty"`
	PrintData   map[string]any `json:"printData,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Mode is the capability interface every experience implements. The manager
// drives it; implementations never see the engine internals, only the narrow
// Context handles.
type Mode interface {
	// OnEnter initializes the mode. It must not block: long-running setup
	// belongs in a background task spawned through the context.
	OnEnter(ctx *Context) error

	// OnUpdate runs once per frame with the time since the previous frame.
	OnUpdate(delta time.Duration, ctx *Context) error

	// OnInput offers the mode an input event. It reports whether the event
	// was consumed.
	OnInput(event eventbus.Event, ctx *Context) (bool, error)

	// OnExit releases the mode's resources and returns the session result.
	// It is called exactly once, on normal completion and on forced
	// teardown alike.
	OnExit(ctx *Context) Result
}

// Factory constructs a fresh, un-entered mode instance.
type Factory func() Mode
