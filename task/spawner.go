// Package task runs slow, failure-prone background work (AI calls, uploads,
// print jobs) off the core tick loop. A task re-enters the system only as a
// single terminal bus event tagged with its originating mode's epoch; the
// consumer side guards against stale completions by comparing epochs, so
// cancellation races are harmless by construction.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// Work is the opaque external operation a task executes. It must honor ctx
// cancellation; the returned result becomes the completion event payload.
type Work func(ctx context.Context) (any, error)

// Spec describes a task to spawn.
type Spec struct {
	// Epoch is the spawning mode instance's epoch. Completion events carry
	// it so consumers can drop results that outlived their mode.
	Epoch uint64

	// Kind labels the work ("ai.fortune", "upload.photo", "print.receipt").
	Kind string

	// Deadline bounds the work. Zero means no deadline. Expiry is converted
	// into a failure completion event.
	Deadline time.Duration

	// Work is the operation to run on a worker goroutine.
	Work Work
}

// Task is a handle on a spawned unit of work.
type Task struct {
	ID    string
	Epoch uint64
	Kind  string

	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel advises the task to stop. The task still publishes exactly one
// terminal event; epoch matching on the consumer side makes late completions
// harmless.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed once the task's terminal event has been published.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Spawner owns the worker goroutines and guarantees the one-terminal-event
// contract for every task it spawns.
type Spawner struct {
	bus    *eventbus.Bus
	logger *slog.Logger

	mu     sync.Mutex
	live   map[string]*Task
	closed bool
	wg     sync.WaitGroup
}

// NewSpawner creates a spawner publishing completions on the given bus.
func NewSpawner(bus *eventbus.Bus, logger *slog.Logger) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{bus: bus, logger: logger, live: make(map[string]*Task)}
}

// Spawn starts the work on its own goroutine and returns immediately.
// Exactly one of task.succeeded or task.failed is published when the work
// finishes, times out, or is cancelled.
func (s *Spawner) Spawn(ctx context.Context, spec Spec) (*Task, error) {
	if spec.Work == nil {
		return nil, ErrWorkNil
	}
	if spec.Kind == "" {
		return nil, ErrKindEmpty
	}

	var workCtx context.Context
	var cancel context.CancelFunc
	if spec.Deadline > 0 {
		workCtx, cancel = context.WithTimeout(ctx, spec.Deadline)
	} else {
		workCtx, cancel = context.WithCancel(ctx)
	}

	t := &Task{
		ID:     uuid.New().String(),
		Epoch:  spec.Epoch,
		Kind:   spec.Kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return nil, ErrSpawnerClosed
	}
	s.live[t.ID] = t
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(workCtx, t, spec)
	return t, nil
}

func (s *Spawner) run(ctx context.Context, t *Task, spec Spec) {
	defer s.wg.Done()
	defer t.cancel()
	defer close(t.done)
	defer func() {
		s.mu.Lock()
		delete(s.live, t.ID)
		s.mu.Unlock()
	}()

	result, err := s.execute(ctx, spec)

	// Normalize deadline expiry and cancellation into failure payloads.
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		err = ErrDeadline
	case errors.Is(err, context.Canceled):
		err = ErrCancelled
	}

	payload := eventbus.TaskPayload{TaskID: t.ID, Kind: t.Kind, Result: result}
	kind := eventbus.KindTaskSucceeded
	if err != nil {
		payload.Err = err.Error()
		payload.Result = nil
		kind = eventbus.KindTaskFailed
	}

	publishErr := s.bus.Publish(context.Background(), eventbus.Event{
		Kind:    kind,
		Payload: payload,
		Source:  "task." + t.Kind,
		Epoch:   t.Epoch,
	})
	if publishErr != nil {
		s.logger.Error("failed to publish task completion",
			"task", t.ID, "kind", t.Kind, "error", publishErr)
	}
}

// execute runs the work with panic containment so a crashing task becomes a
// failure event instead of taking the process down.
func (s *Spawner) execute(ctx context.Context, spec Spec) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panicked", "kind", spec.Kind, "panic", r)
			result = nil
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return spec.Work(ctx)
}

// CancelEpoch advises every live task belonging to the epoch to stop. Called
// by the mode lifecycle manager during teardown.
func (s *Spawner) CancelEpoch(epoch uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.live {
		if t.Epoch == epoch {
			t.cancel()
			n++
		}
	}
	return n
}

// LiveCount returns the number of tasks that have not yet published their
// terminal event.
func (s *Spawner) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close refuses new spawns and waits for live tasks to finish, honoring the
// context deadline.
func (s *Spawner) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, t := range s.live {
		t.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
