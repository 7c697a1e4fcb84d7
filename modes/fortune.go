package modes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/mode"
	"github.com/GoCodeAlone/artifact/task"
)

// FortuneDescriptor describes the fortune teller experience.
var FortuneDescriptor = mode.Descriptor{
	Name:        "fortune",
	DisplayName: "Fortune Teller",
	Requires:    []mode.Capability{mode.CapabilityAI, mode.CapabilityPrinter},
}

// Generator produces a fortune for the pressed keypad digit. The production
// generator talks to an external service; tests and the simulator inject a
// canned one.
type Generator func(ctx context.Context, digit string) (string, error)

// CannedGenerator cycles a fixed set of lines, keyed by digit.
func CannedGenerator() Generator {
	lines := []string{
		"A quiet machine dreams loudest.",
		"The next print you make will surprise you.",
		"Patience: the strip scrolls for everyone.",
		"What you animate today will loop tomorrow.",
		"Someone is thinking about your pixel grid.",
		"Ask again after the nightly reset.",
		"Yours is the brightest keyframe.",
		"The easing out is always the hardest part.",
		"Back out now and nobody drops your epoch.",
		"A held button reveals more than a pressed one.",
	}
	return func(_ context.Context, digit string) (string, error) {
		idx := 0
		if len(digit) == 1 && digit[0] >= '0' && digit[0] <= '9' {
			idx = int(digit[0] - '0')
		}
		return lines[idx%len(lines)], nil
	}
}

// Fortune asks the visitor for a lucky digit, sends it to the generator in
// the background and offers the returned line for printing.
type Fortune struct {
	generate Generator
	deadline time.Duration

	mu      sync.Mutex
	digit   string
	fortune string
	failure string
}

// NewFortune constructs the fortune mode. A nil generator uses the canned
// set; a non-positive deadline falls back to ten seconds.
func NewFortune(generate Generator, deadline time.Duration) *Fortune {
	if generate == nil {
		generate = CannedGenerator()
	}
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	return &Fortune{generate: generate, deadline: deadline}
}

func (f *Fortune) OnEnter(ctx *mode.Context) error {
	intro, err := animation.NewTimeline("fortune.intro", 1200*time.Millisecond)
	if err != nil {
		return err
	}
	tr := intro.AddTrack(animation.RolePrimary)
	if err := tr.AddKeyframe(0, map[string]float64{"brightness": 0, "swirl": 0}, animation.EasingOutCubic); err != nil {
		return err
	}
	if err := tr.AddKeyframe(1, map[string]float64{"brightness": 1, "swirl": 1}, animation.EasingLinear); err != nil {
		return err
	}
	if err := ctx.RegisterTimeline(intro); err != nil {
		return err
	}

	// The completion watcher keys on the mode's own epoch; a stale
	// completion after teardown never reaches it because the subscription
	// dies with the instance.
	epoch := ctx.Epoch()
	if _, err := ctx.Subscribe(
		eventbus.MatchKind(eventbus.KindTaskSucceeded, eventbus.KindTaskFailed),
		func(_ context.Context, ev eventbus.Event) error {
			if ev.Epoch != epoch {
				return nil
			}
			return f.onCompletion(ev, ctx)
		},
	); err != nil {
		return err
	}

	return ctx.AdvancePhase(mode.PhaseActive)
}

func (f *Fortune) OnUpdate(time.Duration, *mode.Context) error { return nil }

func (f *Fortune) OnInput(event eventbus.Event, ctx *mode.Context) (bool, error) {
	if event.Kind != eventbus.KindKeypadDigit || ctx.Phase() != mode.PhaseActive {
		return false, nil
	}
	digit, _ := event.Payload.(string)
	if digit == "" {
		return false, nil
	}

	f.mu.Lock()
	f.digit = digit
	f.mu.Unlock()

	if err := ctx.AdvancePhase(mode.PhaseProcessing); err != nil {
		return true, err
	}
	// Announce the processing hand-off before the task exists, so its
	// completion can never be queued ahead of the request.
	if err := ctx.Publish(eventbus.KindModeAsyncRequested, nil); err != nil {
		return true, err
	}
	if _, err := ctx.SpawnTask(task.Spec{
		Kind:     "fortune.generate",
		Deadline: f.deadline,
		Work: func(workCtx context.Context) (any, error) {
			return f.generate(workCtx, digit)
		},
	}); err != nil {
		return true, err
	}
	return true, nil
}

// onCompletion runs inside bus dispatch when the generation task finishes.
func (f *Fortune) onCompletion(ev eventbus.Event, ctx *mode.Context) error {
	if ctx.Phase() != mode.PhaseProcessing {
		return nil
	}

	payload, _ := ev.Payload.(eventbus.TaskPayload)

	f.mu.Lock()
	if ev.Kind == eventbus.KindTaskSucceeded {
		if text, ok := payload.Result.(string); ok {
			f.fortune = text
		}
	} else {
		f.failure = payload.Err
	}
	f.mu.Unlock()

	if ev.Kind == eventbus.KindTaskSucceeded {
		return ctx.AdvancePhase(mode.PhaseResult)
	}
	// The controller moves to the error state off the same event; the
	// instance just records why for its exit result.
	return nil
}

func (f *Fortune) OnExit(ctx *mode.Context) mode.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failure != "" {
		return mode.Result{
			ModeName:   FortuneDescriptor.Name,
			Success:    false,
			Err:        f.failure,
			StatusText: "the spirits are unavailable",
		}
	}
	if f.fortune == "" {
		return mode.Result{ModeName: FortuneDescriptor.Name, Success: false, Err: "abandoned"}
	}
	return mode.Result{
		ModeName:    FortuneDescriptor.Name,
		Success:     true,
		DisplayText: f.fortune,
		TickerText:  f.fortune,
		StatusText:  fmt.Sprintf("fortune for %s", f.digit),
		ShouldPrint: true,
		PrintData: map[string]any{
			"text":  f.fortune,
			"digit": f.digit,
		},
	}
}
