// Package schedule runs the installation's calendar: cron-driven bus events
// for the nightly reset, quiet hours and ambient rotation. The calendar only
// publishes; whatever reacts to the events lives elsewhere.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// Entry maps a cron spec to the bus event it fires. Standard five-field
// specs are accepted.
type Entry struct {
	Spec  string `json:"spec" yaml:"spec" toml:"spec"`
	Event string `json:"event" yaml:"event" toml:"event"`
}

// FiredPayload is the payload of every event the calendar publishes.
type FiredPayload struct {
	Spec    string    `json:"spec"`
	FiredAt time.Time `json:"firedAt"`
}

// Calendar wraps a cron runner and publishes each entry's event on schedule.
type Calendar struct {
	bus    *eventbus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries []Entry
	fired   uint64
}

// NewCalendar creates a calendar publishing to the given bus.
func NewCalendar(bus *eventbus.Bus, logger *slog.Logger) *Calendar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calendar{bus: bus, logger: logger}
}

// Add registers an entry. Entries must be added before Start.
func (c *Calendar) Add(entry Entry) error {
	if entry.Spec == "" {
		return ErrEntrySpecEmpty
	}
	if entry.Event == "" {
		return ErrEntryEventEmpty
	}
	if _, err := cron.ParseStandard(entry.Spec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", entry.Spec, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

// Start begins firing entries.
func (c *Calendar) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return ErrCalendarStarted
	}

	runner := cron.New()
	for _, entry := range c.entries {
		entry := entry
		if _, err := runner.AddFunc(entry.Spec, func() { c.fire(ctx, entry) }); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", entry.Spec, err)
		}
	}
	runner.Start()
	c.cron = runner

	c.logger.Info("calendar started", "entries", len(c.entries))
	return nil
}

// Stop halts the cron runner and waits for any in-flight firing.
func (c *Calendar) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return ErrCalendarNotStarted
	}

	select {
	case <-runner.Stop().Done():
	case <-ctx.Done():
		return fmt.Errorf("calendar stop interrupted: %w", ctx.Err())
	}
	c.logger.Info("calendar stopped")
	return nil
}

// Fired returns the number of entries fired since start.
func (c *Calendar) Fired() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Entries returns the registered entries.
func (c *Calendar) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Calendar) fire(ctx context.Context, entry Entry) {
	c.mu.Lock()
	c.fired++
	c.mu.Unlock()

	c.logger.Info("calendar entry fired", "spec", entry.Spec, "event", entry.Event)
	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    entry.Event,
		Payload: FiredPayload{Spec: entry.Spec, FiredAt: time.Now()},
		Source:  "schedule",
	}); err != nil {
		c.logger.Error("failed to publish calendar event", "event", entry.Event, "error", err)
	}
}
