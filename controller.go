package artifact

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/mode"
)

// CapabilityProvider answers whether the hardware behind a capability is
// present and working. The controller consults it before starting a mode;
// the provider implementation lives in the hardware-facing layer.
type CapabilityProvider interface {
	Has(capability mode.Capability) bool
}

// StaticCapabilities implements CapabilityProvider over a fixed set, for
// configuration-driven deployments and tests.
type StaticCapabilities map[mode.Capability]bool

func (s StaticCapabilities) Has(capability mode.Capability) bool {
	return s[capability]
}

type allCapabilities struct{}

func (allCapabilities) Has(mode.Capability) bool { return true }

// Timeouts holds the per-state dwell limits the controller sweeps from the
// frame clock. Zero values fall back to defaults.
type Timeouts struct {
	// Select bounds how long the menu waits for a choice.
	Select time.Duration `json:"select" yaml:"select" toml:"select"`

	// Processing bounds how long background work may keep the processing
	// screen up before the state escalates to error.
	Processing time.Duration `json:"processing" yaml:"processing" toml:"processing"`

	// Result bounds how long a finished experience's outcome stays up.
	Result time.Duration `json:"result" yaml:"result" toml:"result"`

	// Recovery bounds the error state before the automatic return to idle.
	Recovery time.Duration `json:"recovery" yaml:"recovery" toml:"recovery"`
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Select <= 0 {
		t.Select = 30 * time.Second
	}
	if t.Processing <= 0 {
		t.Processing = 60 * time.Second
	}
	if t.Result <= 0 {
		t.Result = 45 * time.Second
	}
	if t.Recovery <= 0 {
		t.Recovery = 10 * time.Second
	}
	return t
}

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// Controller is the application state machine. It consumes bus events,
// applies the transition table, owns the optional current mode instance
// through the manager, sweeps per-state timeouts from the frame clock, and
// reports everything it does as state.changed events and CloudEvents to
// registered observers.
//
// All state mutation happens inside bus dispatch, which the bus serializes,
// so the controller core behaves as a single-threaded loop. The small mutex
// only makes reads from other goroutines (diagnostics) safe.
type Controller struct {
	bus      *eventbus.Bus
	manager  *mode.Manager
	registry *mode.Registry
	caps     CapabilityProvider
	timeouts Timeouts
	logger   Logger
	now      func() time.Time

	observers  map[string]*observerRegistration
	observerMu sync.RWMutex

	mu           sync.RWMutex
	started      bool
	state        State
	enteredAt    time.Time
	staleDropped uint64
	subs         []eventbus.SubscriptionID
}

// NewController wires a controller over its collaborators. A nil capability
// provider grants every capability; a nil logger falls back to slog.
func NewController(bus *eventbus.Bus, manager *mode.Manager, registry *mode.Registry, caps CapabilityProvider, timeouts Timeouts, logger Logger) (*Controller, error) {
	if bus == nil {
		return nil, ErrBusNil
	}
	if manager == nil {
		return nil, ErrManagerNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if caps == nil {
		caps = allCapabilities{}
	}
	if logger == nil {
		logger = NewSlogLogger(nil)
	}
	return &Controller{
		bus:       bus,
		manager:   manager,
		registry:  registry,
		caps:      caps,
		timeouts:  timeouts.withDefaults(),
		logger:    logger,
		now:       time.Now,
		observers: make(map[string]*observerRegistration),
		state:     StateIdle,
	}, nil
}

// SetClock replaces the controller's time source, for deterministic tests.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Start subscribes the controller to the bus and enters the idle state.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrControllerStarted
	}
	c.started = true
	c.state = StateIdle
	c.enteredAt = c.now()
	c.mu.Unlock()

	kinds := []string{
		eventbus.KindButtonPressed,
		eventbus.KindBack,
		eventbus.KindRebootHold,
		eventbus.KindModeConfirmed,
		eventbus.KindModeAsyncRequested,
		eventbus.KindModeCompleted,
		eventbus.KindModeFault,
		eventbus.KindTaskSucceeded,
		eventbus.KindTaskFailed,
		eventbus.KindPrintRequested,
		eventbus.KindPrintDone,
		eventbus.KindPrintSkipped,
		eventbus.KindStateTimeout,
		eventbus.KindSystemReset,
		eventbus.KindNightlyReset,
	}
	eventSub, err := c.bus.Subscribe(eventbus.MatchKind(kinds...), c.handleEvent)
	if err != nil {
		return err
	}
	tickSub, err := c.bus.Subscribe(eventbus.MatchKind(eventbus.KindTick), c.handleTick)
	if err != nil {
		_ = c.bus.Unsubscribe(eventSub)
		return err
	}

	c.mu.Lock()
	c.subs = []eventbus.SubscriptionID{eventSub, tickSub}
	c.mu.Unlock()

	c.emit(ctx, EventTypeControllerStarted, map[string]interface{}{
		"modes": len(c.registry.Descriptors()),
	})
	c.logger.Info("controller started", "state", string(StateIdle))
	return nil
}

// Stop unsubscribes the controller and tears down any live mode instance.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrControllerNotStarted
	}
	c.started = false
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, id := range subs {
		_ = c.bus.Unsubscribe(id)
	}
	if c.manager.Active() {
		if _, err := c.manager.Exit(); err != nil {
			c.logger.Error("mode exit during shutdown failed", "error", err)
		}
	}

	c.emit(ctx, EventTypeControllerStopped, nil)
	c.logger.Info("controller stopped")
	return nil
}

// State returns the current application state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// TimeInState returns how long the current state has held.
func (c *Controller) TimeInState() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Sub(c.enteredAt)
}

// StaleDropped returns the number of stale task completions dropped by the
// epoch guard.
func (c *Controller) StaleDropped() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.staleDropped
}

// handleEvent applies one bus event to the state machine. Runs inside bus
// dispatch.
func (c *Controller) handleEvent(ctx context.Context, ev eventbus.Event) error {
	current := c.State()

	switch ev.Kind {
	case eventbus.KindModeConfirmed:
		if current == StateModeSelect && !c.admitSelection(ctx, ev) {
			return nil
		}
	case eventbus.KindTaskSucceeded, eventbus.KindTaskFailed:
		if c.dropIfStale(ctx, ev) {
			return nil
		}
	case eventbus.KindNightlyReset:
		// The calendar's nightly reset reuses the explicit reset path, but
		// only the error state has that transition; everywhere else it is
		// a reboot-style return to idle.
		ev.Kind = eventbus.KindRebootHold
	}

	// Input lands on the active mode before the table; modes consume their
	// own keypad digits and button presses without involving transitions.
	if c.manager.Active() && isInputKind(ev.Kind) && ev.Kind != eventbus.KindRebootHold {
		if c.manager.HandleInput(ev) {
			return nil
		}
	}

	next, err := Transition(current, ev.Kind)
	if err != nil {
		if errors.Is(err, ErrIllegalTransition) {
			c.logger.Debug("ignoring event", "kind", ev.Kind, "state", string(current))
			return nil
		}
		return err
	}

	c.apply(ctx, current, next, ev)
	return nil
}

// admitSelection runs the capability check for a confirmed mode selection.
// Returns false when the selection is rejected, after publishing the
// feedback event.
func (c *Controller) admitSelection(ctx context.Context, ev eventbus.Event) bool {
	name := selectionName(ev)
	if name == "" {
		c.reject(ctx, name, ErrModeNameMissing.Error())
		return false
	}
	desc, ok := c.registry.Lookup(name)
	if !ok {
		c.reject(ctx, name, "mode not registered")
		return false
	}
	for _, capability := range desc.Requires {
		if !c.caps.Has(capability) {
			c.reject(ctx, name, "missing capability "+string(capability))
			return false
		}
	}
	return true
}

func (c *Controller) reject(ctx context.Context, name, reason string) {
	c.logger.Warn("mode selection rejected", "mode", name, "reason", reason)
	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.KindModeRejected,
		Payload: eventbus.ModePayload{Name: name, Reason: reason},
		Source:  "controller",
	}); err != nil {
		c.logger.Error("failed to publish rejection", "error", err)
	}
	c.emit(ctx, EventTypeModeRejected, map[string]interface{}{
		"mode":   name,
		"reason": reason,
	})
}

// dropIfStale applies the epoch guard to task terminal events. A completion
// whose epoch does not match the live mode instance is recorded and
// swallowed; the visitor who abandoned that mode never sees it.
func (c *Controller) dropIfStale(ctx context.Context, ev eventbus.Event) bool {
	if c.manager.Active() && ev.Epoch == c.manager.ActiveEpoch() {
		return false
	}

	c.mu.Lock()
	c.staleDropped++
	dropped := c.staleDropped
	c.mu.Unlock()

	c.logger.Info("dropped stale task completion",
		"kind", ev.Kind, "epoch", ev.Epoch, "activeEpoch", c.manager.ActiveEpoch())
	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.KindTaskStaleDropped,
		Payload: ev.Payload,
		Source:  "controller",
		Epoch:   ev.Epoch,
	}); err != nil {
		c.logger.Error("failed to publish stale drop", "error", err)
	}
	c.emit(ctx, EventTypeTaskDropped, map[string]interface{}{
		"epoch":   ev.Epoch,
		"dropped": dropped,
	})
	return true
}

// apply commits a legal transition: mode teardown or startup first, then the
// state swap, then the announcements.
func (c *Controller) apply(ctx context.Context, current, next State, cause eventbus.Event) {
	if c.manager.Active() && (!HoldsMode(next) || cause.Kind == eventbus.KindRebootHold) {
		result, err := c.manager.Exit()
		if err != nil {
			c.logger.Error("mode exit failed", "error", err)
		}
		c.emit(ctx, EventTypeModeFinished, map[string]interface{}{
			"mode":    result.ModeName,
			"success": result.Success,
		})
	}

	if next == StateModeActive && current == StateModeSelect {
		name := selectionName(cause)
		if err := c.manager.Start(name); err != nil {
			c.logger.Error("mode start failed", "mode", name, "error", err)
			c.enterState(ctx, current, StateError, cause.Kind)
			c.emit(ctx, EventTypeModeFaulted, map[string]interface{}{
				"mode":  name,
				"error": err.Error(),
			})
			return
		}
		c.emit(ctx, EventTypeModeStarted, map[string]interface{}{
			"mode":  name,
			"epoch": c.manager.ActiveEpoch(),
		})
	}

	c.enterState(ctx, current, next, cause.Kind)
}

// enterState swaps the state and announces the change.
func (c *Controller) enterState(ctx context.Context, from, to State, cause string) {
	c.mu.Lock()
	c.state = to
	c.enteredAt = c.now()
	c.mu.Unlock()

	c.logger.Info("state changed", "from", string(from), "to", string(to), "cause", cause)
	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.KindStateChanged,
		Payload: eventbus.StatePayload{From: string(from), To: string(to), Cause: cause},
		Source:  "controller",
	}); err != nil {
		c.logger.Error("failed to publish state change", "error", err)
	}
	c.emit(ctx, EventTypeStateChanged, eventbus.StatePayload{
		From: string(from), To: string(to), Cause: cause,
	})
}

// handleTick updates the active mode and sweeps the current state's dwell
// timeout. Runs inside bus dispatch, so the timeout event it publishes is
// drained before the next tick can arrive.
func (c *Controller) handleTick(ctx context.Context, ev eventbus.Event) error {
	if payload, ok := ev.Payload.(eventbus.TickPayload); ok && c.manager.Active() {
		c.manager.Update(payload.Delta)
	}

	c.mu.RLock()
	state := c.state
	elapsed := c.now().Sub(c.enteredAt)
	c.mu.RUnlock()

	var limit time.Duration
	switch state {
	case StateModeSelect:
		limit = c.timeouts.Select
	case StateProcessing:
		limit = c.timeouts.Processing
	case StateResult:
		limit = c.timeouts.Result
	case StateError:
		limit = c.timeouts.Recovery
	default:
		return nil
	}
	if elapsed < limit {
		return nil
	}

	c.logger.Info("state timed out", "state", string(state), "after", elapsed)
	if err := c.bus.Publish(ctx, eventbus.Event{
		Kind:    eventbus.KindStateTimeout,
		Payload: eventbus.StatePayload{From: string(state), Cause: "timeout"},
		Source:  "controller",
	}); err != nil {
		c.logger.Error("failed to publish timeout", "error", err)
	}
	c.emit(ctx, EventTypeStateTimeout, map[string]interface{}{
		"state":   string(state),
		"elapsed": elapsed.String(),
	})
	return nil
}

// RegisterObserver adds an observer to receive controller CloudEvents.
// Observers can optionally filter events by type; an empty eventTypes means
// all events.
func (c *Controller) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	c.observerMu.Lock()
	defer c.observerMu.Unlock()

	eventTypeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	c.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: c.now(),
	}

	c.logger.Info("observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. Idempotent.
func (c *Controller) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	c.observerMu.Lock()
	defer c.observerMu.Unlock()

	if _, exists := c.observers[observer.ObserverID()]; exists {
		delete(c.observers, observer.ObserverID())
		c.logger.Info("observer unregistered", "observerID", observer.ObserverID())
	}

	return nil
}

// NotifyObservers sends a CloudEvent to all registered observers. Observers
// run on their own goroutines; their errors and panics are logged, never
// propagated.
func (c *Controller) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	c.observerMu.RLock()
	defer c.observerMu.RUnlock()

	if event.Time().IsZero() {
		event.SetTime(c.now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		c.logger.Error("invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	for _, registration := range c.observers {
		registration := registration

		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}

		go func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
				}
			}()

			if err := registration.observer.OnEvent(ctx, event); err != nil {
				c.logger.Error("observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
			}
		}()
	}

	return nil
}

// GetObservers returns information about currently registered observers.
func (c *Controller) GetObservers() []ObserverInfo {
	c.observerMu.RLock()
	defer c.observerMu.RUnlock()

	info := make([]ObserverInfo, 0, len(c.observers))
	for _, registration := range c.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}

		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}

	return info
}

// emit wraps data in a CloudEvent and notifies observers without blocking
// the dispatch path.
func (c *Controller) emit(ctx context.Context, eventType string, data interface{}) {
	event := NewCloudEvent(eventType, "controller", data, nil)

	go func() {
		if err := c.NotifyObservers(ctx, event); err != nil {
			c.logger.Error("failed to notify observers", "event", eventType, "error", err)
		}
	}()
}

func selectionName(ev eventbus.Event) string {
	switch payload := ev.Payload.(type) {
	case eventbus.ModePayload:
		return payload.Name
	case string:
		return payload
	default:
		return ""
	}
}

func isInputKind(kind string) bool {
	return strings.HasPrefix(kind, "input.")
}
