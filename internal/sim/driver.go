package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// Step is one scripted input: wait After, then publish the event.
type Step struct {
	After   time.Duration
	Kind    string
	Payload any
}

// Driver replays a scripted visitor session onto the bus.
type Driver struct {
	bus    *eventbus.Bus
	logger *slog.Logger
	steps  []Step
}

// NewDriver creates a driver for the given script.
func NewDriver(bus *eventbus.Bus, steps []Step, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{bus: bus, logger: logger, steps: steps}
}

// DefaultScript is a full happy-path session: open the menu, pick the first
// configured mode, let it play out, then return to idle.
func DefaultScript(modeName string) []Step {
	return []Step{
		{After: 2 * time.Second, Kind: eventbus.KindButtonPressed},
		{After: time.Second, Kind: eventbus.KindModeConfirmed, Payload: eventbus.ModePayload{Name: modeName}},
		{After: 12 * time.Second, Kind: eventbus.KindBack},
	}
}

// Run replays the script until it completes or the context is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	for _, step := range d.steps {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(step.After):
		}

		d.logger.Info("scripted input", "kind", step.Kind)
		if err := d.bus.Publish(ctx, eventbus.Event{
			Kind:    step.Kind,
			Payload: step.Payload,
			Source:  "sim",
		}); err != nil {
			return err
		}
	}
	return nil
}
