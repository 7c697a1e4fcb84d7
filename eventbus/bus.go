// Package eventbus implements the typed publish/subscribe hub that connects
// inputs, timers and background-task completions to the rest of the
// installation controller. Producers and consumers never reference each other
// directly; everything meets on the bus.
//
// Dispatch guarantees:
//   - delivery order matches publish order, including events published from
//     inside a handler (nested publishes are queued and drained in order)
//   - synchronous handlers run to completion before Publish returns to the
//     publisher that started the dispatch
//   - a panicking handler does not prevent delivery to later subscribers
//   - asynchronous handlers are only scheduled, never awaited, so a slow
//     consumer cannot stall the publisher
//   - unsubscribing from inside a handler takes effect once the current
//     publish completes
package eventbus

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handler processes a delivered event. Errors are logged and counted, never
// propagated to the publisher.
type Handler func(ctx context.Context, event Event) error

// Predicate decides whether a subscription receives an event.
type Predicate func(event Event) bool

// MatchAll matches every event.
func MatchAll() Predicate {
	return func(Event) bool { return true }
}

// MatchKind matches events whose kind equals any of the given kinds.
func MatchKind(kinds ...string) Predicate {
	set := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(e Event) bool {
		_, ok := set[e.Kind]
		return ok
	}
}

// MatchPattern matches an exact kind, or a "prefix.*" wildcard against the
// kind's dotted prefix.
func MatchPattern(pattern string) Predicate {
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return func(e Event) bool { return strings.HasPrefix(e.Kind, prefix) }
	}
	return func(e Event) bool { return e.Kind == pattern }
}

// SubscriptionID identifies a registered subscription.
type SubscriptionID string

type subscription struct {
	id        SubscriptionID
	predicate Predicate
	handler   Handler
	isAsync   bool
	removed   bool
}

// Config controls bus sizing. Zero values fall back to defaults.
type Config struct {
	// HistorySize is the capacity of the diagnostics ring buffer.
	HistorySize int `json:"historySize" yaml:"historySize" toml:"historySize"`

	// WorkerCount is the number of goroutines servicing async handlers.
	WorkerCount int `json:"workerCount" yaml:"workerCount" toml:"workerCount"`

	// AsyncQueueSize bounds the async scheduling queue. When full, async
	// deliveries are dropped and counted, never blocked on.
	AsyncQueueSize int `json:"asyncQueueSize" yaml:"asyncQueueSize" toml:"asyncQueueSize"`
}

func (c Config) withDefaults() Config {
	if c.HistorySize <= 0 {
		c.HistorySize = 256
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.AsyncQueueSize <= 0 {
		c.AsyncQueueSize = 64
	}
	return c
}

// Bus is the central event bus. A single dispatcher drains a queue of
// published events, so publishes from any goroutine are serialized and
// synchronous handlers observe a consistent, single-threaded core.
type Bus struct {
	config Config
	logger *slog.Logger

	mu          sync.Mutex
	subs        []*subscription
	queue       []Event
	dispatching bool
	started     bool

	history     []Event
	historyHead int
	historyLen  int

	asyncQueue chan asyncDelivery
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	published uint64
	delivered uint64
	dropped   uint64
}

type asyncDelivery struct {
	sub   *subscription
	event Event
}

// New creates a bus with the given config. Call Start before publishing.
func New(config Config, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config.withDefaults()
	return &Bus{
		config:  cfg,
		logger:  logger,
		history: make([]Event, cfg.HistorySize),
	}
}

// Start spins up the async worker pool.
func (b *Bus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.asyncQueue = make(chan asyncDelivery, b.config.AsyncQueueSize)
	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	b.started = true
	return nil
}

// Stop shuts down the worker pool, waiting up to the context deadline.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.cancel()
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrBusShutdownTimeout
	}
}

// Subscribe registers a synchronous handler. The handler runs inside the
// dispatch loop; it must not block.
func (b *Bus) Subscribe(predicate Predicate, handler Handler) (SubscriptionID, error) {
	return b.subscribe(predicate, handler, false)
}

// SubscribeAsync registers an asynchronous handler serviced by the worker
// pool. Use it for consumers that may block or take unbounded time.
func (b *Bus) SubscribeAsync(predicate Predicate, handler Handler) (SubscriptionID, error) {
	return b.subscribe(predicate, handler, true)
}

func (b *Bus) subscribe(predicate Predicate, handler Handler, isAsync bool) (SubscriptionID, error) {
	if handler == nil {
		return "", ErrHandlerNil
	}
	if predicate == nil {
		predicate = MatchAll()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return "", ErrBusNotStarted
	}
	sub := &subscription{
		id:        SubscriptionID(uuid.New().String()),
		predicate: predicate,
		handler:   handler,
		isAsync:   isAsync,
	}
	b.subs = append(b.subs, sub)
	return sub.id, nil
}

// Unsubscribe removes a subscription. Calling it from inside a handler is
// legal; the removal is applied after the current publish completes.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.id == id && !sub.removed {
			sub.removed = true
			if !b.dispatching {
				b.compactLocked()
			}
			return nil
		}
	}
	return ErrSubscriptionUnknown
}

// Publish delivers the event to every current subscriber whose predicate
// matches, in subscription order. If a dispatch is already in progress (a
// handler published, or another goroutine holds the dispatcher) the event is
// queued and delivered in order once the current delivery finishes.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return ErrBusNotStarted
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	atomic.AddUint64(&b.published, 1)
	b.recordHistoryLocked(event)
	b.queue = append(b.queue, event)
	if b.dispatching {
		b.mu.Unlock()
		return nil
	}
	b.dispatching = true

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		targets := make([]*subscription, len(b.subs))
		copy(targets, b.subs)
		b.mu.Unlock()

		for _, sub := range targets {
			if !sub.predicate(next) {
				continue
			}
			if sub.isAsync {
				b.scheduleAsync(sub, next)
				continue
			}
			b.invoke(ctx, sub, next)
		}

		b.mu.Lock()
		b.compactLocked()
	}
	b.dispatching = false
	b.mu.Unlock()
	return nil
}

// invoke runs a synchronous handler, isolating panics and logging errors so
// one faulty subscriber cannot break delivery to the rest.
func (b *Bus) invoke(ctx context.Context, sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"kind", event.Kind, "subscription", string(sub.id), "panic", r)
		}
	}()
	if err := sub.handler(ctx, event); err != nil {
		b.logger.Error("event handler failed",
			"kind", event.Kind, "subscription", string(sub.id), "error", err)
	}
	atomic.AddUint64(&b.delivered, 1)
}

func (b *Bus) scheduleAsync(sub *subscription, event Event) {
	select {
	case b.asyncQueue <- asyncDelivery{sub: sub, event: event}:
	default:
		atomic.AddUint64(&b.dropped, 1)
		b.logger.Warn("async queue full, delivery dropped",
			"kind", event.Kind, "subscription", string(sub.id))
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case d := <-b.asyncQueue:
			func() {
				defer func() {
					if r := recover(); r != nil {
						b.logger.Error("async event handler panicked",
							"kind", d.event.Kind, "panic", r)
					}
				}()
				if err := d.sub.handler(b.ctx, d.event); err != nil {
					b.logger.Error("async event handler failed",
						"kind", d.event.Kind, "error", err)
				}
				atomic.AddUint64(&b.delivered, 1)
			}()
		}
	}
}

// compactLocked drops subscriptions flagged for removal. Caller holds b.mu.
func (b *Bus) compactLocked() {
	kept := b.subs[:0]
	for _, sub := range b.subs {
		if !sub.removed {
			kept = append(kept, sub)
		}
	}
	b.subs = kept
}

func (b *Bus) recordHistoryLocked(event Event) {
	b.history[b.historyHead] = event
	b.historyHead = (b.historyHead + 1) % len(b.history)
	if b.historyLen < len(b.history) {
		b.historyLen++
	}
}

// History returns up to limit recent events matching the predicate, oldest
// first. The history is diagnostics only; it is never replayed into
// consumers. A nil predicate matches everything; limit <= 0 means no limit.
func (b *Bus) History(predicate Predicate, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, 0, b.historyLen)
	start := b.historyHead - b.historyLen
	if start < 0 {
		start += len(b.history)
	}
	for i := 0; i < b.historyLen; i++ {
		e := b.history[(start+i)%len(b.history)]
		if predicate == nil || predicate(e) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, sub := range b.subs {
		if !sub.removed {
			n++
		}
	}
	return n
}

// Stats returns published, delivered and dropped counters.
func (b *Bus) Stats() (published, delivered, dropped uint64) {
	return atomic.LoadUint64(&b.published),
		atomic.LoadUint64(&b.delivered),
		atomic.LoadUint64(&b.dropped)
}
