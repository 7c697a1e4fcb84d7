// Package compositor owns the frame clock and turns each tick's animation
// output into channel-appropriate render primitives for the three output
// surfaces. Tracks target abstract channel roles, so the same timeline data
// drives a 2-D pixel grid, a 1-D strip and a text line without modification;
// the hardware-facing layer supplies one renderer per role.
package compositor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/eventbus"
)

// Frame is the resolved animation state handed to a role renderer for one
// tick.
type Frame struct {
	// Role is the channel role this frame targets.
	Role animation.ChannelRole

	// Values holds the resolved property values for the role. It may be
	// empty when no active timeline targets the role; renderers should
	// treat that as "clear".
	Values map[string]float64

	// Now is the tick instant; Delta the time since the previous tick;
	// Number the monotonically increasing tick counter.
	Now    time.Time
	Delta  time.Duration
	Number uint64
}

// RoleRenderer rasterizes resolved property values onto one physical
// surface. Implementations live in the hardware-facing layer; the core
// neither knows their resolution nor their technology.
type RoleRenderer interface {
	Render(ctx context.Context, frame Frame) error
}

// RendererFunc adapts a function to the RoleRenderer interface.
type RendererFunc func(ctx context.Context, frame Frame) error

func (f RendererFunc) Render(ctx context.Context, frame Frame) error {
	return f(ctx, frame)
}

// Config controls the frame clock.
type Config struct {
	// TickRate is the target frame rate in Hz. Defaults to 60.
	TickRate int `json:"tickRate" yaml:"tickRate" toml:"tickRate"`
}

func (c Config) withDefaults() Config {
	if c.TickRate <= 0 {
		c.TickRate = 60
	}
	return c
}

// Compositor drives the animation engine from a fixed-rate frame clock and
// fans resolved values out to the registered role renderers. Ticks are
// strictly sequential; Tick is also callable directly for deterministic
// tests.
type Compositor struct {
	config Config
	engine *animation.Engine
	bus    *eventbus.Bus
	logger *slog.Logger

	mu        sync.Mutex
	renderers map[animation.ChannelRole]RoleRenderer
	running   bool

	lastTick  time.Time
	tickCount uint64
}

// New creates a compositor over the given engine and bus.
func New(config Config, engine *animation.Engine, bus *eventbus.Bus, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{
		config:    config.withDefaults(),
		engine:    engine,
		bus:       bus,
		logger:    logger,
		renderers: make(map[animation.ChannelRole]RoleRenderer),
	}
}

// RegisterRenderer attaches the renderer serving a channel role. Each role
// takes exactly one renderer.
func (c *Compositor) RegisterRenderer(role animation.ChannelRole, r RoleRenderer) error {
	if r == nil {
		return ErrRendererNil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.renderers[role]; exists {
		return ErrRoleRegistered
	}
	c.renderers[role] = r
	return nil
}

// Run drives the frame clock until the context is cancelled. The tick
// cadence targets the configured rate but each tick computes animation state
// from the absolute monotonic instant, so scheduling jitter cannot
// accumulate into drift.
func (c *Compositor) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrCompositorRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	interval := time.Second / time.Duration(c.config.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Tick(ctx, now)
		}
	}
}

// Tick performs one frame: the tick event is published first (running the
// cooperative core - mode updates, timeout sweeps - inside the bus dispatch),
// then every active timeline is sampled and the per-role resolved values are
// handed to the renderers.
func (c *Compositor) Tick(ctx context.Context, now time.Time) {
	c.mu.Lock()
	var delta time.Duration
	if !c.lastTick.IsZero() {
		delta = now.Sub(c.lastTick)
	}
	c.lastTick = now
	c.tickCount++
	number := c.tickCount
	c.mu.Unlock()

	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.KindTick,
		Payload: eventbus.TickPayload{Delta: delta, Frame: number},
		Source:  "compositor",
	}); err != nil {
		c.logger.Error("failed to publish tick", "error", err)
	}

	resolved := Resolve(c.engine.Tick(now))

	c.mu.Lock()
	targets := make(map[animation.ChannelRole]RoleRenderer, len(c.renderers))
	for role, r := range c.renderers {
		targets[role] = r
	}
	c.mu.Unlock()

	for role, renderer := range targets {
		values := resolved[role]
		if values == nil {
			values = map[string]float64{}
		}
		frame := Frame{Role: role, Values: values, Now: now, Delta: delta, Number: number}
		if err := renderer.Render(ctx, frame); err != nil {
			c.logger.Error("renderer failed", "role", string(role), "error", err)
		}
	}
}

// TickCount returns the number of completed ticks.
func (c *Compositor) TickCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickCount
}

// Resolve flattens sampled timeline outputs into one value set per role.
// Outputs arrive ordered by registration; for the same role and property a
// later registration wins, except tracks marked additive, which sum on top
// of whatever value is already resolved.
func Resolve(outputs []animation.Output) map[animation.ChannelRole]map[string]float64 {
	resolved := make(map[animation.ChannelRole]map[string]float64)
	for _, out := range outputs {
		for _, sample := range out.Samples {
			if len(sample.Values) == 0 {
				continue
			}
			values := resolved[sample.Role]
			if values == nil {
				values = make(map[string]float64)
				resolved[sample.Role] = values
			}
			for prop, v := range sample.Values {
				if sample.Additive {
					values[prop] += v
				} else {
					values[prop] = v
				}
			}
		}
	}
	return resolved
}
