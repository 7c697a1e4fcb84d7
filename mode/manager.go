package mode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/task"
)

// Manager owns the single live mode instance and enforces the lifecycle
// contract. At most one instance exists at any time; epochs increase
// monotonically across instances so stale background completions can be
// recognized and dropped downstream.
type Manager struct {
	registry *Registry
	bus      *eventbus.Bus
	engine   *animation.Engine
	spawner  *task.Spawner
	logger   *slog.Logger
	now      func() time.Time

	current    Mode
	currentCtx *Context
	lastResult *Result
	nextEpoch  uint64
}

// NewManager wires a manager to the shared services.
func NewManager(registry *Registry, bus *eventbus.Bus, engine *animation.Engine, spawner *task.Spawner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		bus:      bus,
		engine:   engine,
		spawner:  spawner,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the frame instant source, for deterministic tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Active reports whether a mode instance currently exists.
func (m *Manager) Active() bool {
	return m.current != nil
}

// ActiveEpoch returns the live instance's epoch, or zero when none exists.
func (m *Manager) ActiveEpoch() uint64 {
	if m.currentCtx == nil {
		return 0
	}
	return m.currentCtx.epoch
}

// ActivePhase returns the live instance's phase, or "" when none exists.
func (m *Manager) ActivePhase() Phase {
	if m.currentCtx == nil {
		return ""
	}
	return m.currentCtx.phase
}

// ActiveName returns the live instance's registry name, or "".
func (m *Manager) ActiveName() string {
	if m.currentCtx == nil {
		return ""
	}
	return m.currentCtx.name
}

// LastResult returns the result of the most recently exited instance.
func (m *Manager) LastResult() *Result {
	return m.lastResult
}

// Start instantiates the named mode in the Intro phase. OnEnter runs
// immediately and must not block; a panic or error inside it aborts the
// instance and is returned wrapped in ErrModeFault.
func (m *Manager) Start(name string) error {
	if m.current != nil {
		return ErrInstanceActive
	}
	factory, ok := m.registry.factory(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModeUnknown, name)
	}

	m.nextEpoch++
	ctx := &Context{
		name:    name,
		epoch:   m.nextEpoch,
		phase:   PhaseIntro,
		bus:     m.bus,
		engine:  m.engine,
		spawner: m.spawner,
		logger:  m.logger.With("mode", name, "epoch", m.nextEpoch),
		now:     m.now,
	}

	instance := factory()
	err := m.guard("enter", func() error { return instance.OnEnter(ctx) })
	if err != nil {
		ctx.teardown()
		return fmt.Errorf("%w: %v", ErrModeFault, err)
	}

	m.current = instance
	m.currentCtx = ctx
	m.logger.Info("mode started", "mode", name, "epoch", ctx.epoch)
	return nil
}

// Update advances the live instance by delta. Faults are contained: the
// instance is forced to Outro with a failure result and a mode.fault event
// is published; Update itself never panics and never returns a mode error.
func (m *Manager) Update(delta time.Duration) {
	if m.current == nil {
		return
	}
	instance, ctx := m.current, m.currentCtx
	if err := m.guard("update", func() error { return instance.OnUpdate(delta, ctx) }); err != nil {
		m.fault(err)
	}
}

// HandleInput offers an input event to the live instance. Faults are
// contained the same way as in Update.
func (m *Manager) HandleInput(event eventbus.Event) bool {
	if m.current == nil {
		return false
	}
	instance, ctx := m.current, m.currentCtx
	var handled bool
	err := m.guard("input", func() error {
		var err error
		handled, err = instance.OnInput(event, ctx)
		return err
	})
	if err != nil {
		m.fault(err)
		return false
	}
	return handled
}

// Exit tears down the live instance: OnExit runs (faults yield a failure
// result), subscriptions are revoked, timelines unregistered and background
// tasks of the instance's epoch cancelled.
func (m *Manager) Exit() (Result, error) {
	if m.current == nil {
		return Result{}, ErrNoInstance
	}
	instance, ctx := m.current, m.currentCtx
	m.current = nil
	m.currentCtx = nil

	ctx.phase = PhaseOutro
	result := Result{ModeName: ctx.name, Success: false, Err: "mode exited without result"}
	err := m.guard("exit", func() error {
		result = instance.OnExit(ctx)
		return nil
	})
	if err != nil {
		result = Result{ModeName: ctx.name, Success: false, Err: err.Error()}
	}

	ctx.teardown()
	m.lastResult = &result
	m.logger.Info("mode exited", "mode", ctx.name, "epoch", ctx.epoch, "success", result.Success)
	return result, nil
}

// fault contains a callback failure: forced Outro, failure result, and a
// mode.fault event republished for the controller. The fault never escapes
// to the caller, keeping the top-level loop alive.
func (m *Manager) fault(cause error) {
	ctx := m.currentCtx
	m.logger.Error("mode fault", "mode", ctx.name, "epoch", ctx.epoch, "error", cause)

	result, _ := m.Exit()
	result.Success = false
	if result.Err == "" {
		result.Err = cause.Error()
	}
	m.lastResult = &result

	if err := m.bus.Publish(context.Background(), eventbus.Event{
		Kind:    eventbus.KindModeFault,
		Payload: result,
		Source:  "mode-manager",
		Epoch:   ctx.epoch,
	}); err != nil {
		m.logger.Error("failed to publish mode fault", "error", err)
	}
}

// guard converts a panic inside a mode callback into an error.
func (m *Manager) guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in %s: %v", ErrModeFault, op, r)
		}
	}()
	return fn()
}
