package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/playmatatu/minigolf/internal/physics"
	"github.com/stretchr/testify/require"
)

type countingStepper struct {
	body  *physics.Body
	steps []float64
}

func (s *countingStepper) PhysicsStep(dt float64) { s.steps = append(s.steps, dt) }

func (s *countingStepper) Bodies() []*physics.Body { return []*physics.Body{s.body} }

func newMovingStepper(t *testing.T) *countingStepper {
	t.Helper()
	b, err := physics.NewSphere("ball", 0.5, nil)
	require.NoError(t, err)
	b.Emplace(physics.At(mgl64.Vec3{}), mgl64.Vec3{1, 0, 0}, 0, mgl64.Vec3{0, 1, 0})
	return &countingStepper{body: b}
}

func TestNewClockValidates(t *testing.T) {
	_, err := NewClock(0, 1)
	require.ErrorIs(t, err, ErrInvalidFixedDT)

	_, err = NewClock(-0.05, 1)
	require.ErrorIs(t, err, ErrInvalidFixedDT)

	_, err = NewClock(0.05, math.NaN())
	require.ErrorIs(t, err, ErrInvalidTimeScale)

	c, err := NewClock(0.05, 2)
	require.NoError(t, err)
	require.Equal(t, 2.0, c.TimeScale)
}

func TestStepAccumulatesAndBlends(t *testing.T) {
	c, err := NewClock(0.05, 1)
	require.NoError(t, err)
	s := newMovingStepper(t)

	f, err := c.Step(0.03, s)
	require.NoError(t, err)
	require.Equal(t, 0, f.Steps)
	require.InDelta(t, 0.6, f.Alpha, 1e-9)

	f, err = c.Step(0.03, s)
	require.NoError(t, err)
	require.Equal(t, 1, f.Steps)
	require.InDelta(t, 0.2, f.Alpha, 1e-9)
	require.Equal(t, uint64(1), c.StepsTaken)
	require.InDelta(t, 0.05, c.T, 1e-12)
	require.Equal(t, []float64{0.05}, s.steps)

	// The renderer sees the ball a fifth of the way through the last step.
	drawn := s.body.DrawnLocation.Col(3).Vec3()
	require.InDelta(t, 0.05*0.2, drawn.X(), 1e-9)
}

func TestStepClampBoundsIterations(t *testing.T) {
	for _, dt := range []float64{0.05, 1.0 / 60, 1.0 / 120} {
		c, err := NewClock(dt, 1)
		require.NoError(t, err)
		s := newMovingStepper(t)

		limit := int(0.1/dt) + 1
		for _, frameTime := range []float64{10, 0.5, 3, 0.1, 10} {
			f, err := c.Step(frameTime, s)
			require.NoError(t, err)
			require.LessOrEqual(t, f.Steps, limit)
			require.LessOrEqual(t, f.Steps, c.MaxStepsPerFrame())
		}
	}
}

func TestStepTimeScaleAndInfinity(t *testing.T) {
	c, err := NewClock(0.05, 0.5)
	require.NoError(t, err)
	s := newMovingStepper(t)

	f, err := c.Step(0.1, s)
	require.NoError(t, err)
	require.Equal(t, 1, f.Steps)

	f, err = c.Step(math.Inf(1), s)
	require.NoError(t, err)
	require.LessOrEqual(t, f.Steps, c.MaxStepsPerFrame())

	_, err = c.Step(math.NaN(), s)
	require.ErrorIs(t, err, ErrInvalidFrameTime)
}

func TestStepRewinds(t *testing.T) {
	c, err := NewClock(0.05, 1)
	require.NoError(t, err)
	s := newMovingStepper(t)

	for i := 0; i < 4; i++ {
		_, err := c.Step(0.05, s)
		require.NoError(t, err)
	}
	forward := s.body.Center

	for i := 0; i < 4; i++ {
		_, err := c.Step(-0.05, s)
		require.NoError(t, err)
	}

	require.InDelta(t, 0, c.T, 1e-12)
	require.True(t, s.body.Center.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9), "center %v after rewinding from %v", s.body.Center, forward)
	require.Less(t, s.steps[len(s.steps)-1], 0.0)
}

func TestStepFuncAdaptor(t *testing.T) {
	c, err := NewClock(0.05, 1)
	require.NoError(t, err)

	b, err := physics.NewSphere("ball", 0.5, nil)
	require.NoError(t, err)

	calls := 0
	s := StepFunc{
		Step:   func(dt float64) { calls++ },
		Source: func() []*physics.Body { return []*physics.Body{b} },
	}

	_, err = c.Step(0.1, s)
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	_, err = c.Step(0.1, StepFunc{})
	require.NoError(t, err)
}
