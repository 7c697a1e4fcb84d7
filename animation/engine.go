package animation

import (
	"sort"
	"sync"
	"time"
)

// Output is a single timeline's sampled result for one tick.
type Output struct {
	// TimelineID identifies the timeline that produced the samples.
	TimelineID string

	// Seq is the timeline's registration sequence number. The compositor
	// uses it to resolve overlapping tracks: later registrations win.
	Seq uint64

	// Progress is the normalized time fraction the timeline was sampled at.
	Progress float64

	// Samples holds one entry per track, in track order.
	Samples []TrackSample
}

type registration struct {
	timeline *Timeline
	seq      uint64
	started  time.Time
	done     bool
}

// Engine holds the set of active timelines and samples them against a
// caller-supplied clock. It performs no I/O; the compositor owns the frame
// clock and calls Tick with the current monotonic instant. Elapsed time is
// computed from the absolute registration instant rather than by summing
// deltas, so jittery tick cadence cannot accumulate drift.
type Engine struct {
	mu        sync.Mutex
	timelines map[string]*registration
	nextSeq   uint64
}

// NewEngine creates an empty animation engine.
func NewEngine() *Engine {
	return &Engine{timelines: make(map[string]*registration)}
}

// Register adds a timeline, anchoring its start at now. Registering an id
// that is already active is an error; unregister first to restart.
func (e *Engine) Register(tl *Timeline, now time.Time) error {
	if tl == nil || tl.ID == "" {
		return ErrTimelineIDEmpty
	}
	if tl.Duration <= 0 {
		return ErrDurationNotPositive
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.timelines[tl.ID]; exists {
		return ErrTimelineRegistered
	}
	e.nextSeq++
	e.timelines[tl.ID] = &registration{timeline: tl, seq: e.nextSeq, started: now}
	return nil
}

// Unregister removes a timeline without firing its completion callback.
func (e *Engine) Unregister(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.timelines[id]; !exists {
		return ErrTimelineNotFound
	}
	delete(e.timelines, id)
	return nil
}

// Active reports whether a timeline id is currently registered.
func (e *Engine) Active(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, exists := e.timelines[id]
	return exists
}

// Count returns the number of registered timelines.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.timelines)
}

// Tick samples every registered timeline at now and returns the outputs
// ordered by registration sequence. Looping timelines wrap their elapsed
// time modulo duration. Non-looping timelines clamp at the end, are included
// in the output one final time, and are then auto-unregistered with their
// OnComplete invoked exactly once (after the engine lock is released, so a
// callback may register follow-up timelines).
func (e *Engine) Tick(now time.Time) []Output {
	e.mu.Lock()

	outputs := make([]Output, 0, len(e.timelines))
	var completed []*Timeline
	for id, reg := range e.timelines {
		tl := reg.timeline
		elapsed := now.Sub(reg.started)
		if elapsed < 0 {
			elapsed = 0
		}

		var progress float64
		if tl.Loop {
			progress = float64(elapsed%tl.Duration) / float64(tl.Duration)
		} else {
			progress = float64(elapsed) / float64(tl.Duration)
			if progress >= 1 {
				progress = 1
				if !reg.done {
					reg.done = true
					completed = append(completed, tl)
				}
			}
		}

		outputs = append(outputs, Output{
			TimelineID: id,
			Seq:        reg.seq,
			Progress:   progress,
			Samples:    tl.Sample(progress),
		})
	}
	for _, tl := range completed {
		delete(e.timelines, tl.ID)
	}
	e.mu.Unlock()

	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Seq < outputs[j].Seq })

	for _, tl := range completed {
		if tl.OnComplete != nil {
			tl.OnComplete(tl.ID)
		}
	}
	return outputs
}
