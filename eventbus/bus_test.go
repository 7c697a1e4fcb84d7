package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStartedBus(t *testing.T) *Bus {
	t.Helper()
	b := New(Config{}, slog.Default())
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})
	return b
}

func TestPublishBeforeStart(t *testing.T) {
	b := New(Config{}, nil)
	err := b.Publish(context.Background(), Event{Kind: KindButtonPressed})
	assert.ErrorIs(t, err, ErrBusNotStarted)

	_, err = b.Subscribe(MatchAll(), func(context.Context, Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusNotStarted)
}

func TestSubscribeNilHandler(t *testing.T) {
	b := newStartedBus(t)
	_, err := b.Subscribe(MatchAll(), nil)
	assert.ErrorIs(t, err, ErrHandlerNil)
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := newStartedBus(t)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		_, err := b.Subscribe(MatchKind(KindButtonPressed), func(context.Context, Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPredicateFiltering(t *testing.T) {
	b := newStartedBus(t)

	var got []string
	_, err := b.Subscribe(MatchPattern("input.*"), func(_ context.Context, e Event) error {
		got = append(got, e.Kind)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindStateChanged}))
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindKeypadDigit}))

	assert.Equal(t, []string{KindButtonPressed, KindKeypadDigit}, got)
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	b := newStartedBus(t)

	var received bool
	_, err := b.Subscribe(MatchAll(), func(context.Context, Event) error {
		panic("subscriber bug")
	})
	require.NoError(t, err)
	_, err = b.Subscribe(MatchAll(), func(context.Context, Event) error {
		received = true
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	assert.True(t, received, "later subscribers still receive the event")
}

func TestHandlerErrorIsIsolated(t *testing.T) {
	b := newStartedBus(t)

	var received bool
	_, err := b.Subscribe(MatchAll(), func(context.Context, Event) error {
		return errors.New("handler failure")
	})
	require.NoError(t, err)
	_, err = b.Subscribe(MatchAll(), func(context.Context, Event) error {
		received = true
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindBack}))
	assert.True(t, received)
}

func TestNestedPublishPreservesOrder(t *testing.T) {
	b := newStartedBus(t)

	var seen []string
	_, err := b.Subscribe(MatchKind(KindButtonPressed), func(ctx context.Context, e Event) error {
		// Publishing from inside a handler queues the event; it must be
		// delivered after the current event reaches all subscribers.
		return b.Publish(ctx, Event{Kind: KindStateChanged})
	})
	require.NoError(t, err)
	_, err = b.Subscribe(MatchAll(), func(_ context.Context, e Event) error {
		seen = append(seen, e.Kind)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	assert.Equal(t, []string{KindButtonPressed, KindStateChanged}, seen)
}

func TestUnsubscribeInsideHandler(t *testing.T) {
	b := newStartedBus(t)

	var count int
	var id SubscriptionID
	var err error
	id, err = b.Subscribe(MatchAll(), func(context.Context, Event) error {
		count++
		return b.Unsubscribe(id)
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindBack}))
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindBack}))
	assert.Equal(t, 1, count, "removal takes effect after the publish completes")
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestUnsubscribeUnknown(t *testing.T) {
	b := newStartedBus(t)
	assert.ErrorIs(t, b.Unsubscribe(SubscriptionID("nope")), ErrSubscriptionUnknown)
}

func TestHistoryRingIsBounded(t *testing.T) {
	b := New(Config{HistorySize: 8}, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	for i := 0; i < 20; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{
			Kind:    KindKeypadDigit,
			Payload: i,
		}))
	}

	all := b.History(nil, 0)
	require.Len(t, all, 8)
	assert.Equal(t, 12, all[0].Payload, "oldest retained event")
	assert.Equal(t, 19, all[7].Payload, "newest event last")

	limited := b.History(nil, 3)
	require.Len(t, limited, 3)
	assert.Equal(t, 17, limited[0].Payload)
}

func TestHistoryFiltered(t *testing.T) {
	b := newStartedBus(t)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindStateChanged}))
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))

	got := b.History(MatchKind(KindButtonPressed), 0)
	assert.Len(t, got, 2)
}

func TestPublishSetsTimestamp(t *testing.T) {
	b := newStartedBus(t)

	var got Event
	_, err := b.Subscribe(MatchAll(), func(_ context.Context, e Event) error {
		got = e
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindBack}))
	assert.False(t, got.Timestamp.IsZero())
}

func TestAsyncHandlerIsScheduledNotAwaited(t *testing.T) {
	b := newStartedBus(t)

	done := make(chan struct{})
	release := make(chan struct{})
	_, err := b.SubscribeAsync(MatchAll(), func(context.Context, Event) error {
		<-release
		close(done)
		return nil
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, b.Publish(context.Background(), Event{Kind: KindButtonPressed}))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "publish must not await async handlers")

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestAsyncOverflowDropsAndCounts(t *testing.T) {
	b := New(Config{WorkerCount: 1, AsyncQueueSize: 1}, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	block := make(chan struct{})
	_, err := b.SubscribeAsync(MatchAll(), func(context.Context, Event) error {
		<-block
		return nil
	})
	require.NoError(t, err)

	// First delivery occupies the worker, second fills the queue, the rest
	// must be dropped without blocking.
	for i := 0; i < 6; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{Kind: KindTick, Payload: i}))
	}
	close(block)

	_, _, dropped := b.Stats()
	assert.GreaterOrEqual(t, dropped, uint64(1))
}

func TestStatsCount(t *testing.T) {
	b := newStartedBus(t)

	_, err := b.Subscribe(MatchAll(), func(context.Context, Event) error { return nil })
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{Kind: fmt.Sprintf("test.%d", i)}))
	}

	published, delivered, dropped := b.Stats()
	assert.Equal(t, uint64(3), published)
	assert.Equal(t, uint64(3), delivered)
	assert.Equal(t, uint64(0), dropped)
}
