// Package animation provides the timeline animation engine for the artifact
// installation controller. It is a pure computation layer: keyframe tracks are
// sampled against elapsed time to produce per-channel property values, with no
// knowledge of displays or I/O. Determinism is a hard requirement - sampling
// the same tracks at the same instant always yields the same output.
package animation

import "math"

// EasingID names a pure easing function f: [0,1] -> R.
// Easing functions are a shared library; modes reference them by name on
// keyframes rather than supplying bespoke curves.
type EasingID string

const (
	EasingLinear     EasingID = "linear"
	EasingInQuad     EasingID = "ease-in-quad"
	EasingOutQuad    EasingID = "ease-out-quad"
	EasingInOutQuad  EasingID = "ease-in-out-quad"
	EasingInCubic    EasingID = "ease-in-cubic"
	EasingOutCubic   EasingID = "ease-out-cubic"
	EasingInOutCubic EasingID = "ease-in-out-cubic"
	EasingInSine     EasingID = "ease-in-sine"
	EasingOutSine    EasingID = "ease-out-sine"
	EasingInOutSine  EasingID = "ease-in-out-sine"
	EasingInElastic  EasingID = "ease-in-elastic"
	EasingOutElastic EasingID = "ease-out-elastic"
	EasingOutBack    EasingID = "ease-out-back"
	EasingOutBounce  EasingID = "ease-out-bounce"
)

// EasingFunc is a pure, total function over normalized time.
type EasingFunc func(t float64) float64

var easingFuncs = map[EasingID]EasingFunc{
	EasingLinear:     func(t float64) float64 { return t },
	EasingInQuad:     func(t float64) float64 { return t * t },
	EasingOutQuad:    func(t float64) float64 { return 1 - (1-t)*(1-t) },
	EasingInOutQuad:  easeInOutQuad,
	EasingInCubic:    func(t float64) float64 { return t * t * t },
	EasingOutCubic:   func(t float64) float64 { return 1 - math.Pow(1-t, 3) },
	EasingInOutCubic: easeInOutCubic,
	EasingInSine:     func(t float64) float64 { return 1 - math.Cos((t*math.Pi)/2) },
	EasingOutSine:    func(t float64) float64 { return math.Sin((t * math.Pi) / 2) },
	EasingInOutSine:  func(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 },
	EasingInElastic:  easeInElastic,
	EasingOutElastic: easeOutElastic,
	EasingOutBack:    easeOutBack,
	EasingOutBounce:  easeOutBounce,
}

// Ease applies the named easing function to a normalized time value.
// Unknown ids fall back to linear so a misnamed keyframe degrades to a
// straight interpolation instead of failing the tick.
func Ease(id EasingID, t float64) float64 {
	fn, ok := easingFuncs[id]
	if !ok {
		return t
	}
	return fn(t)
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func easeInElastic(t float64) float64 {
	const c4 = (2 * math.Pi) / 3
	if t == 0 {
		return 0
	}
	if t == 1 {
		return 1
	}
	return -math.Pow(2, 10*t-10) * math.Sin((t*10-10.75)*c4)
}

func easeOutElastic(t float64) float64 {
	const c4 = (2 * math.Pi) / 3
	if t == 0 {
		return 0
	}
	if t == 1 {
		return 1
	}
	return math.Pow(2, -10*t)*math.Sin((t*10-0.75)*c4) + 1
}

func easeOutBack(t float64) float64 {
	const c1 = 1.70158
	const c3 = c1 + 1
	return 1 + c3*math.Pow(t-1, 3) + c1*math.Pow(t-1, 2)
}

func easeOutBounce(t float64) float64 {
	const n1 = 7.5625
	const d1 = 2.75

	switch {
	case t < 1/d1:
		return n1 * t * t
	case t < 2/d1:
		t -= 1.5 / d1
		return n1*t*t + 0.75
	case t < 2.5/d1:
		t -= 2.25 / d1
		return n1*t*t + 0.9375
	default:
		t -= 2.625 / d1
		return n1*t*t + 0.984375
	}
}
