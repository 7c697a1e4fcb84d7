package animation

import (
	"sort"
	"time"
)

// ChannelRole is an abstract animation target, independent of the physical
// display that eventually renders it. Tracks address roles; the compositor
// maps each role to a registered renderer at render time, so the same
// timeline data can drive a pixel grid, a light strip or a text line.
type ChannelRole string

const (
	// RolePrimary is the main 2-D surface.
	RolePrimary ChannelRole = "primary"
	// RoleAmbient is the 1-D scrolling strip.
	RoleAmbient ChannelRole = "ambient"
	// RoleStatus is the short text line.
	RoleStatus ChannelRole = "status"
)

// Keyframe is a control point on a track. At is a normalized time fraction in
// [0,1]; Values holds the animated property values at that instant; Easing
// names the curve applied between this keyframe and the next one.
type Keyframe struct {
	At     float64
	Values map[string]float64
	Easing EasingID
}

// Track is one animated property stream targeting a channel role. Keyframes
// are kept sorted ascending by At and no two keyframes share the same At.
// Tracks are immutable once their timeline is registered with the engine.
type Track struct {
	Role     ChannelRole
	Additive bool
	frames   []Keyframe
}

// NewTrack creates an empty track for the given role.
func NewTrack(role ChannelRole) *Track {
	return &Track{Role: role}
}

// MarkAdditive flags the track so the compositor sums its values on top of
// whatever else targets the same role and property, instead of replacing
// them. Returns the track for chaining.
func (tr *Track) MarkAdditive() *Track {
	tr.Additive = true
	return tr
}

// AddKeyframe inserts a keyframe, keeping the track sorted by time fraction.
func (tr *Track) AddKeyframe(at float64, values map[string]float64, easing EasingID) error {
	if at < 0 || at > 1 {
		return ErrKeyframeOutOfRange
	}
	for _, kf := range tr.frames {
		if kf.At == at {
			return ErrDuplicateKeyframe
		}
	}
	tr.frames = append(tr.frames, Keyframe{At: at, Values: values, Easing: easing})
	sort.Slice(tr.frames, func(i, j int) bool { return tr.frames[i].At < tr.frames[j].At })
	return nil
}

// Keyframes returns the track's keyframes in ascending time order.
func (tr *Track) Keyframes() []Keyframe {
	return tr.frames
}

// ValueAt samples the track at a normalized time fraction. Sampling before
// the first keyframe returns the first keyframe's values; after the last
// keyframe the last values are held. Between keyframes the bracketing pair
// (k_i, k_{i+1}) is located, the easing named on k_i is applied to t
// normalized into the segment, and each property is interpolated linearly on
// the eased fraction. Properties absent from k_{i+1} hold their k_i value.
func (tr *Track) ValueAt(t float64) map[string]float64 {
	if len(tr.frames) == 0 {
		return nil
	}

	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	first := tr.frames[0]
	last := tr.frames[len(tr.frames)-1]
	if t <= first.At {
		return copyValues(first.Values)
	}
	if t >= last.At {
		return copyValues(last.Values)
	}

	// Locate the bracketing pair with k_i.At <= t < k_{i+1}.At.
	idx := sort.Search(len(tr.frames), func(i int) bool { return tr.frames[i].At > t }) - 1
	prev := tr.frames[idx]
	next := tr.frames[idx+1]

	segment := next.At - prev.At
	if segment <= 0 {
		return copyValues(prev.Values)
	}
	eased := Ease(prev.Easing, (t-prev.At)/segment)

	out := make(map[string]float64, len(prev.Values))
	for key, from := range prev.Values {
		to, ok := next.Values[key]
		if !ok {
			out[key] = from
			continue
		}
		out[key] = from + (to-from)*eased
	}
	return out
}

func copyValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// CompleteFunc is invoked exactly once when a non-looping timeline reaches
// its end, just before the engine auto-unregisters it.
type CompleteFunc func(id string)

// Timeline is a scheduled set of tracks driving animated output over a fixed
// or looping duration. Timelines are owned by whichever component created
// them, usually a running mode, and are registered with the engine for the
// owner's lifetime.
type Timeline struct {
	ID         string
	Duration   time.Duration
	Loop       bool
	OnComplete CompleteFunc
	tracks     []*Track
}

// NewTimeline creates a timeline with the given id and duration.
func NewTimeline(id string, duration time.Duration) (*Timeline, error) {
	if id == "" {
		return nil, ErrTimelineIDEmpty
	}
	if duration <= 0 {
		return nil, ErrDurationNotPositive
	}
	return &Timeline{ID: id, Duration: duration}, nil
}

// AddTrack creates a track targeting the given role and attaches it.
func (tl *Timeline) AddTrack(role ChannelRole) *Track {
	tr := NewTrack(role)
	tl.tracks = append(tl.tracks, tr)
	return tr
}

// Tracks returns the timeline's tracks in registration order.
func (tl *Timeline) Tracks() []*Track {
	return tl.tracks
}

// TrackSample is one track's sampled values at a tick.
type TrackSample struct {
	Role     ChannelRole
	Additive bool
	Values   map[string]float64
}

// Sample evaluates every track at a normalized time fraction. The result is
// a pure function of (tracks, t): no playback state is consulted or mutated.
func (tl *Timeline) Sample(t float64) []TrackSample {
	samples := make([]TrackSample, 0, len(tl.tracks))
	for _, tr := range tl.tracks {
		samples = append(samples, TrackSample{
			Role:     tr.Role,
			Additive: tr.Additive,
			Values:   tr.ValueAt(t),
		})
	}
	return samples
}
