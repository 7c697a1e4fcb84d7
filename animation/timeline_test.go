package animation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimelineValidation(t *testing.T) {
	_, err := NewTimeline("", time.Second)
	assert.ErrorIs(t, err, ErrTimelineIDEmpty)

	_, err = NewTimeline("fade", 0)
	assert.ErrorIs(t, err, ErrDurationNotPositive)

	tl, err := NewTimeline("fade", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "fade", tl.ID)
}

func TestTrackKeyframeValidation(t *testing.T) {
	tr := NewTrack(RolePrimary)

	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"x": 0}, EasingLinear))
	assert.ErrorIs(t, tr.AddKeyframe(0, map[string]float64{"x": 1}, EasingLinear), ErrDuplicateKeyframe)
	assert.ErrorIs(t, tr.AddKeyframe(-0.1, nil, EasingLinear), ErrKeyframeOutOfRange)
	assert.ErrorIs(t, tr.AddKeyframe(1.5, nil, EasingLinear), ErrKeyframeOutOfRange)
}

func TestTrackKeyframesSortedOnInsert(t *testing.T) {
	tr := NewTrack(RolePrimary)
	require.NoError(t, tr.AddKeyframe(1, map[string]float64{"x": 10}, EasingLinear))
	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"x": 0}, EasingLinear))
	require.NoError(t, tr.AddKeyframe(0.5, map[string]float64{"x": 5}, EasingLinear))

	frames := tr.Keyframes()
	require.Len(t, frames, 3)
	assert.Equal(t, []float64{0, 0.5, 1}, []float64{frames[0].At, frames[1].At, frames[2].At})
}

func TestTrackValueAtClamping(t *testing.T) {
	tr := NewTrack(RolePrimary)
	require.NoError(t, tr.AddKeyframe(0.25, map[string]float64{"x": 2}, EasingLinear))
	require.NoError(t, tr.AddKeyframe(0.75, map[string]float64{"x": 6}, EasingLinear))

	// Before the first keyframe the first value is returned.
	assert.Equal(t, map[string]float64{"x": 2}, tr.ValueAt(0))
	assert.Equal(t, map[string]float64{"x": 2}, tr.ValueAt(0.1))

	// After the last keyframe the last value is held.
	assert.Equal(t, map[string]float64{"x": 6}, tr.ValueAt(0.9))
	assert.Equal(t, map[string]float64{"x": 6}, tr.ValueAt(2.0))
}

func TestTrackValueAtInterpolation(t *testing.T) {
	tr := NewTrack(RolePrimary)
	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"x": 0, "y": 100}, EasingLinear))
	require.NoError(t, tr.AddKeyframe(1, map[string]float64{"x": 10, "y": 0}, EasingLinear))

	got := tr.ValueAt(0.25)
	assert.InDelta(t, 2.5, got["x"], 1e-9)
	assert.InDelta(t, 75.0, got["y"], 1e-9)
}

func TestTrackValueAtEasedInterpolation(t *testing.T) {
	tr := NewTrack(RolePrimary)
	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"x": 0}, EasingInQuad))
	require.NoError(t, tr.AddKeyframe(1, map[string]float64{"x": 10}, EasingLinear))

	// Eased fraction at t=0.5 with ease-in-quad is 0.25.
	got := tr.ValueAt(0.5)
	assert.InDelta(t, 2.5, got["x"], 1e-9)
}

func TestTrackValueAtHoldsMissingProperties(t *testing.T) {
	tr := NewTrack(RoleStatus)
	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"x": 1, "alpha": 0.5}, EasingLinear))
	require.NoError(t, tr.AddKeyframe(1, map[string]float64{"x": 3}, EasingLinear))

	got := tr.ValueAt(0.5)
	assert.InDelta(t, 2.0, got["x"], 1e-9)
	assert.InDelta(t, 0.5, got["alpha"], 1e-9, "property missing from next keyframe holds its value")
}

func TestTrackValueAtEmpty(t *testing.T) {
	tr := NewTrack(RoleAmbient)
	assert.Nil(t, tr.ValueAt(0.5))
}

func TestTimelineSampleIsDeterministic(t *testing.T) {
	tl, err := NewTimeline("pulse", time.Second)
	require.NoError(t, err)
	tr := tl.AddTrack(RoleAmbient)
	require.NoError(t, tr.AddKeyframe(0, map[string]float64{"hue": 0}, EasingInOutCubic))
	require.NoError(t, tr.AddKeyframe(0.5, map[string]float64{"hue": 180}, EasingInOutCubic))
	require.NoError(t, tr.AddKeyframe(1, map[string]float64{"hue": 360}, EasingLinear))

	for _, frac := range []float64{0, 0.1, 0.25, 0.33, 0.5, 0.77, 1} {
		first := tl.Sample(frac)
		second := tl.Sample(frac)
		assert.Equal(t, first, second, "sampling at %v must be pure", frac)
	}
}

func TestTimelineSampleMultipleTracks(t *testing.T) {
	tl, err := NewTimeline("multi", 2*time.Second)
	require.NoError(t, err)

	main := tl.AddTrack(RolePrimary)
	require.NoError(t, main.AddKeyframe(0, map[string]float64{"x": 0}, EasingLinear))
	require.NoError(t, main.AddKeyframe(1, map[string]float64{"x": 8}, EasingLinear))

	overlay := tl.AddTrack(RolePrimary).MarkAdditive()
	require.NoError(t, overlay.AddKeyframe(0, map[string]float64{"x": 1}, EasingLinear))
	require.NoError(t, overlay.AddKeyframe(1, map[string]float64{"x": 1}, EasingLinear))

	samples := tl.Sample(0.5)
	require.Len(t, samples, 2)
	assert.Equal(t, RolePrimary, samples[0].Role)
	assert.False(t, samples[0].Additive)
	assert.InDelta(t, 4.0, samples[0].Values["x"], 1e-9)
	assert.True(t, samples[1].Additive)
	assert.InDelta(t, 1.0, samples[1].Values["x"], 1e-9)
}
