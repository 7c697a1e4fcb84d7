package animation

import "errors"

var (
	// Timeline construction errors
	ErrTimelineIDEmpty     = errors.New("timeline id cannot be empty")
	ErrDurationNotPositive = errors.New("timeline duration must be positive")
	ErrDuplicateKeyframe   = errors.New("keyframe time fraction already present in track")
	ErrKeyframeOutOfRange  = errors.New("keyframe time fraction outside [0,1]")

	// Engine registry errors
	ErrTimelineRegistered = errors.New("timeline already registered")
	ErrTimelineNotFound   = errors.New("timeline not found")
)
