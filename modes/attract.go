// Package modes holds the shipped experience implementations. Each mode
// only sees the narrow context handles the manager grants it; everything
// else stays behind the bus.
package modes

import (
	"time"

	"github.com/GoCodeAlone/artifact/animation"
	"github.com/GoCodeAlone/artifact/eventbus"
	"github.com/GoCodeAlone/artifact/mode"
)

// AttractDescriptor describes the idle attract loop. It needs no hardware
// capabilities, so it can run on any deployment.
var AttractDescriptor = mode.Descriptor{
	Name:        "attract",
	DisplayName: "Attract Loop",
}

// Attract is the ambient idle experience: a slow breathing pulse on every
// surface, looping until the visitor presses something. It never completes
// on its own.
type Attract struct {
	pulse time.Duration
}

// NewAttract constructs the attract mode. A non-positive pulse falls back
// to eight seconds.
func NewAttract(pulse time.Duration) *Attract {
	if pulse <= 0 {
		pulse = 8 * time.Second
	}
	return &Attract{pulse: pulse}
}

func (a *Attract) OnEnter(ctx *mode.Context) error {
	tl, err := animation.NewTimeline("attract.pulse", a.pulse)
	if err != nil {
		return err
	}
	tl.Loop = true

	primary := tl.AddTrack(animation.RolePrimary)
	if err := addPulse(primary, "brightness", 0.15, 0.6); err != nil {
		return err
	}
	ambient := tl.AddTrack(animation.RoleAmbient)
	if err := addPulse(ambient, "intensity", 0.1, 0.4); err != nil {
		return err
	}
	status := tl.AddTrack(animation.RoleStatus)
	if err := status.AddKeyframe(0, map[string]float64{"scroll": 0}, animation.EasingLinear); err != nil {
		return err
	}
	if err := status.AddKeyframe(1, map[string]float64{"scroll": 1}, animation.EasingLinear); err != nil {
		return err
	}

	if err := ctx.RegisterTimeline(tl); err != nil {
		return err
	}
	return ctx.AdvancePhase(mode.PhaseActive)
}

func (a *Attract) OnUpdate(time.Duration, *mode.Context) error { return nil }

func (a *Attract) OnInput(eventbus.Event, *mode.Context) (bool, error) {
	// Input in the attract loop belongs to the controller, not the mode.
	return false, nil
}

func (a *Attract) OnExit(ctx *mode.Context) mode.Result {
	return mode.Result{ModeName: AttractDescriptor.Name, Success: true}
}

// addPulse builds a sine in-out swell from low to high and back.
func addPulse(tr *animation.Track, key string, low, high float64) error {
	if err := tr.AddKeyframe(0, map[string]float64{key: low}, animation.EasingInOutSine); err != nil {
		return err
	}
	if err := tr.AddKeyframe(0.5, map[string]float64{key: high}, animation.EasingInOutSine); err != nil {
		return err
	}
	return tr.AddKeyframe(1, map[string]float64{key: low}, animation.EasingLinear)
}
