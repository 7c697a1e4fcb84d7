package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/task"
)

// Context is the narrow capability handle a running mode receives. It
// deliberately exposes only publish, timeline registration, task spawning
// and phase control - never a back-reference to the engine or controller -
// so a mode cannot reach around the lifecycle contract.
type Context struct {
	name    string
	epoch   uint64
	phase   Phase
	bus     *eventbus.Bus
	engine  *animation.Engine
	spawner *task.Spawner
	logger  *slog.Logger
	now     func() time.Time

	timelines []string
	subs      []eventbus.SubscriptionID
}

// Epoch returns the instance's monotonic epoch. Background work spawned
// through this context is tagged with it automatically.
func (c *Context) Epoch() uint64 {
	return c.epoch
}

// Phase returns the instance's current lifecycle phase.
func (c *Context) Phase() Phase {
	return c.phase
}

// AdvancePhase moves the instance along the lifecycle. Jumps outside the
// contract are rejected with ErrIllegalPhase.
func (c *Context) AdvancePhase(to Phase) error {
	if !phaseAllowed(c.phase, to) {
		return ErrIllegalPhase
	}
	c.phase = to
	return nil
}

// Logger returns a logger scoped to the mode instance.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Publish emits an event on the bus, tagged with the instance's epoch.
func (c *Context) Publish(kind string, payload any) error {
	return c.bus.Publish(context.Background(), eventbus.Event{
		Kind:    kind,
		Payload: payload,
		Source:  "mode." + c.name,
		Epoch:   c.epoch,
	})
}

// Subscribe registers a bus handler on the mode's behalf. The subscription
// is revoked automatically when the mode exits.
func (c *Context) Subscribe(predicate eventbus.Predicate, handler eventbus.Handler) (eventbus.SubscriptionID, error) {
	id, err := c.bus.Subscribe(predicate, handler)
	if err != nil {
		return "", err
	}
	c.subs = append(c.subs, id)
	return id, nil
}

// RegisterTimeline anchors the timeline at the current frame instant and
// registers it with the animation engine. Timelines still registered when
// the mode exits are removed automatically.
func (c *Context) RegisterTimeline(tl *animation.Timeline) error {
	if err := c.engine.Register(tl, c.now()); err != nil {
		return err
	}
	c.timelines = append(c.timelines, tl.ID)
	return nil
}

// UnregisterTimeline removes a timeline the mode registered earlier.
func (c *Context) UnregisterTimeline(id string) error {
	return c.engine.Unregister(id)
}

// SpawnTask starts background work tagged with the instance's epoch. The
// spec's epoch field is overwritten; modes cannot spawn work on behalf of
// another instance.
func (c *Context) SpawnTask(spec task.Spec) (*task.Task, error) {
	spec.Epoch = c.epoch
	return c.spawner.Spawn(context.Background(), spec)
}

// teardown revokes everything the mode acquired through this context.
func (c *Context) teardown() {
	for _, id := range c.subs {
		if err := c.bus.Unsubscribe(id); err != nil {
			c.logger.Debug("subscription already gone", "id", string(id))
		}
	}
	c.subs = nil
	for _, id := range c.timelines {
		if err := c.engine.Unregister(id); err != nil {
			// Completed non-looping timelines unregister themselves.
			continue
		}
	}
	c.timelines = nil
	c.spawner.CancelEpoch(c.epoch)
}
