package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/artifact/eventbus"
)

func newTestBus(t *testing.T) *eventbus.Bus {
	t.Helper()
	bus := eventbus.New(eventbus.Config{}, nil)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestAddValidation(t *testing.T) {
	c := NewCalendar(newTestBus(t), nil)

	assert.ErrorIs(t, c.Add(Entry{Event: "x"}), ErrEntrySpecEmpty)
	assert.ErrorIs(t, c.Add(Entry{Spec: "* * * * *"}), ErrEntryEventEmpty)
	assert.Error(t, c.Add(Entry{Spec: "not a spec", Event: "x"}))

	require.NoError(t, c.Add(Entry{Spec: "0 4 * * *", Event: eventbus.KindNightlyReset}))
	assert.Len(t, c.Entries(), 1)
}

func TestStartStopLifecycle(t *testing.T) {
	c := NewCalendar(newTestBus(t), nil)
	require.NoError(t, c.Add(Entry{Spec: "0 4 * * *", Event: eventbus.KindNightlyReset}))

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.ErrorIs(t, c.Start(ctx), ErrCalendarStarted)

	require.NoError(t, c.Stop(ctx))
	assert.ErrorIs(t, c.Stop(ctx), ErrCalendarNotStarted)
}

func TestFirePublishesEntryEvent(t *testing.T) {
	bus := newTestBus(t)
	c := NewCalendar(bus, nil)

	var fired []eventbus.Event
	_, err := bus.Subscribe(eventbus.MatchKind(eventbus.KindNightlyReset), func(_ context.Context, ev eventbus.Event) error {
		fired = append(fired, ev)
		return nil
	})
	require.NoError(t, err)

	entry := Entry{Spec: "0 4 * * *", Event: eventbus.KindNightlyReset}
	c.fire(context.Background(), entry)

	require.Len(t, fired, 1)
	payload := fired[0].Payload.(FiredPayload)
	assert.Equal(t, "0 4 * * *", payload.Spec)
	assert.False(t, payload.FiredAt.IsZero())
	assert.Equal(t, uint64(1), c.Fired())
}

func TestQuietHoursEntries(t *testing.T) {
	bus := newTestBus(t)
	c := NewCalendar(bus, nil)

	var kinds []string
	_, err := bus.Subscribe(eventbus.MatchPattern("schedule.*"), func(_ context.Context, ev eventbus.Event) error {
		kinds = append(kinds, ev.Kind)
		return nil
	})
	require.NoError(t, err)

	c.fire(context.Background(), Entry{Spec: "0 22 * * *", Event: eventbus.KindQuietEnter})
	c.fire(context.Background(), Entry{Spec: "0 8 * * *", Event: eventbus.KindQuietLeave})
	c.fire(context.Background(), Entry{Spec: "*/10 * * * *", Event: eventbus.KindAmbientRotated})

	assert.Equal(t, []string{eventbus.KindQuietEnter, eventbus.KindQuietLeave, eventbus.KindAmbientRotated}, kinds)
}
