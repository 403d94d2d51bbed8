package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/playmatatu/minigolf/internal/course"
	"github.com/playmatatu/minigolf/internal/physics"
	"github.com/playmatatu/minigolf/internal/sim"
	"github.com/stretchr/testify/require"
)

const cupLevels = `
levels:
  - name: cup
    spawn: {center: [0, 1, -3]}
    hole: {center: [0, 0.5, 0], radius: 1, lip: 0.25}
    green: {min: [-4, 0, -4], max: [4, 0.5, 4]}
    obstacles: []
    fall_threshold: -3
  - name: second
    spawn: {center: [0, 1, -3]}
    hole: {center: [0, 0.5, 3], radius: 0.6}
    green: {min: [-4, 0, -4], max: [4, 0.5, 4]}
    obstacles: []
    fall_threshold: -3
`

func newTestGame(t *testing.T, tuning Tuning) *Game {
	t.Helper()
	c, err := course.ParseCatalog([]byte(cupLevels), tuning.BallRadius)
	require.NoError(t, err)
	g, err := NewGame(c, tuning, 1)
	require.NoError(t, err)
	return g
}

func place(g *Game, at, v mgl64.Vec3) {
	g.Level().Ball.Emplace(physics.At(at), v, 0, mgl64.Vec3{0, 1, 0})
}

func eventTypes(events []Event) []EventType {
	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestNewGameValidates(t *testing.T) {
	_, err := NewGame(nil, DefaultTuning(), 1)
	require.ErrorIs(t, err, ErrNoCatalog)

	c, err := course.DefaultCatalog(0.5)
	require.NoError(t, err)

	bad := DefaultTuning()
	bad.FrictionTau = 0
	_, err = NewGame(c, bad, 1)
	require.ErrorIs(t, err, ErrInvalidTuning)

	g, err := NewGame(c, DefaultTuning(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, g.Level().Index)
	require.Equal(t, StatusPlaying, g.Status())
	require.True(t, g.Stopped())
}

func TestHitGating(t *testing.T) {
	g := newTestGame(t, DefaultTuning())

	require.ErrorIs(t, g.Hit(0, 101), ErrInvalidPower)
	require.ErrorIs(t, g.Hit(0, -1), ErrInvalidPower)
	require.ErrorIs(t, g.Hit(0, math.NaN()), ErrInvalidPower)
	require.ErrorIs(t, g.Hit(math.Inf(1), 10), ErrInvalidAim)

	require.NoError(t, g.Hit(math.Pi/2, 40))
	v := g.Level().Ball.LinearVelocity
	require.InDelta(t, 0, v.X(), 1e-12)
	require.InDelta(t, 2, v.Z(), 1e-12)
	require.Equal(t, 0.0, v.Y())
	require.False(t, g.Stopped())
	require.Equal(t, 1, g.Strokes())

	require.ErrorIs(t, g.Hit(0, 40), ErrBallMoving)
	require.Equal(t, v, g.Level().Ball.LinearVelocity)

	events := g.DrainEvents()
	require.Equal(t, []EventType{EventHit}, eventTypes(events))
	require.Equal(t, 40.0, events[0].Power)
	require.Empty(t, g.DrainEvents())
}

func TestHoleCapture(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	place(g, mgl64.Vec3{0.3, 1, 0}, mgl64.Vec3{})

	g.PhysicsStep(0.05)

	require.True(t, g.Won())
	require.Equal(t, []EventType{EventWon}, eventTypes(g.DrainEvents()))

	// Still won on the next step, no second event.
	g.PhysicsStep(0.05)
	require.True(t, g.Won())
	require.Empty(t, g.DrainEvents())
}

func TestHoleNeedsNearGround(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	place(g, mgl64.Vec3{0.3, 2, 0}, mgl64.Vec3{})

	g.PhysicsStep(0.05)
	require.False(t, g.Won())
}

func TestLipCancelsOutwardVelocity(t *testing.T) {
	g := newTestGame(t, DefaultTuning())

	place(g, mgl64.Vec3{0.9, 1, 0}, mgl64.Vec3{2, 0, 0})
	g.PhysicsStep(0.05)
	require.True(t, g.Won())
	require.InDelta(t, 0, g.Level().Ball.LinearVelocity.X(), 1e-12)

	place(g, mgl64.Vec3{0.9, 1, 0}, mgl64.Vec3{-2, 0, 0})
	g.PhysicsStep(0.05)
	require.InDelta(t, -2*math.Exp(-0.05/DefaultTuning().FrictionTau), g.Level().Ball.LinearVelocity.X(), 1e-12)

	// Dead center is not on the rim.
	place(g, mgl64.Vec3{0.5, 1, 0}, mgl64.Vec3{2, 0, 0})
	g.PhysicsStep(0.05)
	require.Greater(t, g.Level().Ball.LinearVelocity.X(), 1.0)
}

func TestFrictionDecayIsSplitInvariant(t *testing.T) {
	tuning := DefaultTuning()
	tuning.Gravity = 0

	whole := newTestGame(t, tuning)
	place(whole, mgl64.Vec3{-2, 1, -3}, mgl64.Vec3{3, 0, 0})
	whole.PhysicsStep(0.05)

	split := newTestGame(t, tuning)
	place(split, mgl64.Vec3{-2, 1, -3}, mgl64.Vec3{3, 0, 0})
	split.PhysicsStep(0.025)
	split.PhysicsStep(0.025)

	want := 3 * math.Exp(-0.05/tuning.FrictionTau)
	require.InDelta(t, want, whole.Level().Ball.Speed(), 1e-12)
	require.InDelta(t, want, split.Level().Ball.Speed(), 1e-12)
}

func TestStopCondition(t *testing.T) {
	tuning := DefaultTuning()
	tuning.Gravity = 0
	g := newTestGame(t, tuning)
	require.NoError(t, g.Hit(0, 1.2)) // 0.06 units/s
	g.DrainEvents()

	steps := 0
	for !g.Stopped() {
		g.PhysicsStep(0.05)
		steps++
		require.Less(t, steps, 100)
	}

	require.Equal(t, mgl64.Vec3{}, g.Level().Ball.LinearVelocity)
	require.Equal(t, []EventType{EventStopped}, eventTypes(g.DrainEvents()))

	g.PhysicsStep(0.05)
	require.Empty(t, g.DrainEvents())
	require.NoError(t, g.Hit(0, 10))
}

func TestRestingBallSettles(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	c, err := sim.NewClock(0.05, 1)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := c.Step(0.05, g)
		require.NoError(t, err)
	}

	ball := g.Level().Ball
	require.True(t, g.Stopped())
	require.Equal(t, mgl64.Vec3{}, ball.LinearVelocity)
	require.Greater(t, ball.Center.Y(), 0.9)
	require.Less(t, ball.Center.Y(), 1.0+1e-9)
}

func TestFallThroughHoleAdvancesLevel(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	place(g, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{})
	c, err := sim.NewClock(0.05, 1)
	require.NoError(t, err)

	first := g.Level()
	for i := 0; i < 100 && g.Level() == first; i++ {
		_, err := c.Step(0.05, g)
		require.NoError(t, err)
	}

	require.Equal(t, 2, g.Level().Index)
	require.NotSame(t, first.Ball, g.Level().Ball)
	require.False(t, g.Won())
	require.True(t, g.Stopped())
	require.Equal(t, 0, g.Strokes())

	events := g.DrainEvents()
	require.Equal(t, []EventType{EventWon, EventLevelChanged}, eventTypes(events))
	require.True(t, events[1].Completed)
	require.Equal(t, 2, events[1].Level)
	require.Equal(t, 1, g.Snapshot().HolesCompleted)
}

func TestFallOffCourseWraps(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	c, err := sim.NewClock(0.05, 1)
	require.NoError(t, err)

	for _, want := range []int{2, 1} {
		place(g, mgl64.Vec3{10, 1, 10}, mgl64.Vec3{})
		current := g.Level()
		for i := 0; i < 100 && g.Level() == current; i++ {
			_, err := c.Step(0.05, g)
			require.NoError(t, err)
		}
		require.Equal(t, want, g.Level().Index)
	}

	events := g.DrainEvents()
	require.Equal(t, []EventType{EventLevelChanged, EventLevelChanged}, eventTypes(events))
	require.False(t, events[0].Completed)
}

func TestDeterminism(t *testing.T) {
	c, err := course.DefaultCatalog(0.5)
	require.NoError(t, err)

	run := func() []mgl64.Vec3 {
		g, err := NewGame(c, DefaultTuning(), 42)
		require.NoError(t, err)
		clock, err := sim.NewClock(0.05, 1)
		require.NoError(t, err)

		var centers []mgl64.Vec3
		frames := []float64{1.0 / 60, 1.0 / 30, 0.07, 1.0 / 144, 0.2}
		for i := 0; i < 600; i++ {
			if g.Stopped() {
				require.NoError(t, g.Hit(float64(i%7), 35))
			}
			_, err := clock.Step(frames[i%len(frames)], g)
			require.NoError(t, err)
			centers = append(centers, g.Level().Ball.Center)
		}
		return centers
	}

	require.Equal(t, run(), run())
}

func TestSnapshot(t *testing.T) {
	g := newTestGame(t, DefaultTuning())
	snap := g.Snapshot()

	require.Equal(t, 1, snap.Level)
	require.Equal(t, "cup", snap.LevelName)
	require.Equal(t, StatusPlaying, snap.Status)
	require.True(t, snap.Stopped)
	require.Len(t, snap.Bodies, len(g.Bodies()))
	require.Equal(t, "ball", snap.Bodies[0].Name)
	require.Equal(t, physics.ShapeSphere, snap.Bodies[0].Shape)
	require.InDelta(t, -3, snap.Ball[2], 1e-12)
}

func TestTuningValidate(t *testing.T) {
	require.NoError(t, DefaultTuning().Validate())

	for _, mutate := range []func(*Tuning){
		func(tu *Tuning) { tu.Gravity = -1 },
		func(tu *Tuning) { tu.StopSpeed = math.NaN() },
		func(tu *Tuning) { tu.BallRadius = 0 },
		func(tu *Tuning) { tu.PowerScale = math.Inf(1) },
		func(tu *Tuning) { tu.BounceDamping = 1.5 },
	} {
		tu := DefaultTuning()
		mutate(&tu)
		require.ErrorIs(t, tu.Validate(), ErrInvalidTuning)
	}
}
