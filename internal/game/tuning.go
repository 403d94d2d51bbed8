package game

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTuning = errors.New("invalid physics tuning")

// Tuning holds the physical constants of a game. Heights are ball-center
// heights in world units.
type Tuning struct {
	Gravity           float64 `json:"gravity"`
	FrictionTau       float64 `json:"friction_tau"` // seconds for speed to fall to 1/e
	StopSpeed         float64 `json:"stop_speed"`
	NearGroundHeight  float64 `json:"near_ground_height"`  // below this the ball counts as resting or in the cup
	FloorBounceHeight float64 `json:"floor_bounce_height"` // fallback floor under the course
	BounceDamping     float64 `json:"bounce_damping"`
	BallRadius        float64 `json:"ball_radius"`
	PowerScale        float64 `json:"power_scale"` // power units per unit of launch speed
	MaxPower          float64 `json:"max_power"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Gravity:           9.8,
		FrictionTau:       2.0,
		StopSpeed:         0.05,
		NearGroundHeight:  1.5,
		FloorBounceHeight: 0.75,
		BounceDamping:     0.5,
		BallRadius:        0.5,
		PowerScale:        20,
		MaxPower:          100,
	}
}

func (t Tuning) Validate() error {
	check := func(name string, v float64, positive bool) error {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (positive && v == 0) {
			return fmt.Errorf("%s = %v: %w", name, v, ErrInvalidTuning)
		}
		return nil
	}

	for _, c := range []struct {
		name     string
		v        float64
		positive bool
	}{
		{"gravity", t.Gravity, false},
		{"friction_tau", t.FrictionTau, true},
		{"stop_speed", t.StopSpeed, false},
		{"near_ground_height", t.NearGroundHeight, true},
		{"floor_bounce_height", t.FloorBounceHeight, false},
		{"bounce_damping", t.BounceDamping, false},
		{"ball_radius", t.BallRadius, true},
		{"power_scale", t.PowerScale, true},
		{"max_power", t.MaxPower, true},
	} {
		if err := check(c.name, c.v, c.positive); err != nil {
			return err
		}
	}
	if t.BounceDamping > 1 {
		return fmt.Errorf("bounce_damping = %v above 1: %w", t.BounceDamping, ErrInvalidTuning)
	}
	return nil
}
