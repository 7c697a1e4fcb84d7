package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/compositor"
	"github.com/GoCodeAlone/artifact/eventbus"
)

func TestLogRendererSkipsEmptyFrames(t *testing.T) {
	r := NewLogRenderer(animation.RolePrimary, nil)

	require.NoError(t, r.Render(context.Background(), compositor.Frame{
		Role: animation.RolePrimary,
	}))
	assert.Zero(t, r.printed)

	require.NoError(t, r.Render(context.Background(), compositor.Frame{
		Role:   animation.RolePrimary,
		Values: map[string]float64{"brightness": 0.5},
	}))
	assert.Equal(t, uint64(1), r.printed)
}

func TestRegisterAllCoversEveryRole(t *testing.T) {
	bus := eventbus.New(eventbus.Config{}, nil)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	c := compositor.New(compositor.Config{}, animation.NewEngine(), bus, nil)
	require.NoError(t, RegisterAll(c, nil))

	// A second registration collides on every role.
	assert.Error(t, RegisterAll(c, nil))
}

func TestDriverReplaysScriptInOrder(t *testing.T) {
	bus := eventbus.New(eventbus.Config{}, nil)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	var kinds []string
	_, err := bus.Subscribe(eventbus.MatchAll(), func(_ context.Context, ev eventbus.Event) error {
		kinds = append(kinds, ev.Kind)
		return nil
	})
	require.NoError(t, err)

	driver := NewDriver(bus, []Step{
		{After: time.Millisecond, Kind: eventbus.KindButtonPressed},
		{After: time.Millisecond, Kind: eventbus.KindModeConfirmed, Payload: eventbus.ModePayload{Name: "attract"}},
		{After: time.Millisecond, Kind: eventbus.KindBack},
	}, nil)

	require.NoError(t, driver.Run(context.Background()))
	assert.Equal(t, []string{
		eventbus.KindButtonPressed,
		eventbus.KindModeConfirmed,
		eventbus.KindBack,
	}, kinds)
}

func TestDriverStopsOnCancel(t *testing.T) {
	bus := eventbus.New(eventbus.Config{}, nil)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	driver := NewDriver(bus, DefaultScript("attract"), nil)
	require.NoError(t, driver.Run(ctx))

	assert.Empty(t, bus.History(eventbus.MatchPattern("input.*"), 0))
}
