package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/playmatatu/minigolf/internal/physics"
)

// MaxFrameTime caps the real time a single frame may add to the accumulator,
// so one slow frame cannot queue an ever-growing backlog of fixed steps.
const MaxFrameTime = 0.1

var (
	ErrInvalidFixedDT   = errors.New("fixed timestep must be positive and finite")
	ErrInvalidTimeScale = errors.New("time scale must be finite")
	ErrInvalidFrameTime = errors.New("frame time must be finite")
	// ErrStepBudget means the fixed-step loop ran more iterations than the
	// frame clamp allows. It indicates a bug, not a slow machine.
	ErrStepBudget = errors.New("fixed-step budget exceeded")
)

// Stepper is what the clock drives: one physics step on the game state, and
// the bodies to integrate and blend afterwards. Bodies is read after each
// step because a step may replace the whole collection.
type Stepper interface {
	PhysicsStep(dt float64)
	Bodies() []*physics.Body
}

// StepFunc adapts a plain step closure plus a body source to a Stepper.
type StepFunc struct {
	Step   func(dt float64)
	Source func() []*physics.Body
}

func (f StepFunc) PhysicsStep(dt float64) {
	if f.Step != nil {
		f.Step(dt)
	}
}

func (f StepFunc) Bodies() []*physics.Body {
	if f.Source == nil {
		return nil
	}
	return f.Source()
}

// Clock accumulates real frame time and spends it in constant FixedDT steps.
type Clock struct {
	FixedDT     float64
	TimeScale   float64
	Accumulator float64 // unconsumed time, signed
	T           float64 // simulated time
	StepsTaken  uint64
}

// Frame describes what one call to Step did.
type Frame struct {
	Steps int     `json:"steps"`
	Alpha float64 `json:"alpha"`
	T     float64 `json:"t"`
}

func NewClock(fixedDT, timeScale float64) (*Clock, error) {
	if !(fixedDT > 0) || math.IsInf(fixedDT, 0) {
		return nil, fmt.Errorf("%v: %w", fixedDT, ErrInvalidFixedDT)
	}
	c := &Clock{FixedDT: fixedDT, TimeScale: 1}
	if err := c.SetTimeScale(timeScale); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Clock) SetTimeScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return fmt.Errorf("%v: %w", scale, ErrInvalidTimeScale)
	}
	c.TimeScale = scale
	return nil
}

// MaxStepsPerFrame is the most fixed steps one Step call can run given the
// frame clamp and a residual accumulator below FixedDT.
func (c *Clock) MaxStepsPerFrame() int {
	return int(math.Floor(MaxFrameTime/c.FixedDT+1e-9)) + 1
}

// Step consumes one display frame of real time. Whole fixed steps are run
// against s, then every body is blended by the leftover fraction of a step.
// A negative frame time runs the simulation backwards in the same way.
func (c *Clock) Step(frameTime float64, s Stepper) (Frame, error) {
	scaled := frameTime * c.TimeScale
	if math.IsNaN(scaled) {
		return Frame{T: c.T}, fmt.Errorf("%v x %v: %w", frameTime, c.TimeScale, ErrInvalidFrameTime)
	}
	c.Accumulator += math.Max(-MaxFrameTime, math.Min(scaled, MaxFrameTime))

	frame := Frame{}
	budget := c.MaxStepsPerFrame()
	for math.Abs(c.Accumulator) >= c.FixedDT {
		if frame.Steps >= budget {
			frame.T = c.T
			return frame, fmt.Errorf("%d steps with %.4fs left: %w", frame.Steps, c.Accumulator, ErrStepBudget)
		}

		dt := math.Copysign(c.FixedDT, c.Accumulator)
		s.PhysicsStep(dt)
		for _, b := range s.Bodies() {
			b.Advance(dt)
		}

		c.T += dt
		c.Accumulator -= dt
		c.StepsTaken++
		frame.Steps++
	}

	frame.Alpha = math.Abs(c.Accumulator) / c.FixedDT
	for _, b := range s.Bodies() {
		b.BlendState(frame.Alpha)
	}
	frame.T = c.T

	return frame, nil
}
