package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/playmatatu/minigolf/internal/course"
	"github.com/playmatatu/minigolf/internal/physics"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidPower = errors.New("power out of range")
	ErrInvalidAim   = errors.New("aim must be finite")
	ErrBallMoving   = errors.New("ball is still moving")
	ErrNoCatalog    = errors.New("no level catalog")
)

type EventType string

const (
	EventHit          EventType = "hit"
	EventWon          EventType = "won"
	EventLevelChanged EventType = "level_changed"
	EventStopped      EventType = "stopped"
)

// Event is a state transition observed during a hit or a physics step.
type Event struct {
	Type     EventType  `json:"type"`
	Level    int        `json:"level"`
	Strokes  int        `json:"strokes"`
	Position [3]float64 `json:"position"`
	Aim      float64    `json:"aim,omitempty"`
	Power    float64    `json:"power,omitempty"`
	// Completed is set on level_changed when the previous hole was sunk.
	Completed bool `json:"completed,omitempty"`
}

// Game is the ball, the active level and the hole state machine. It is not
// safe for concurrent use; Session serializes access to it.
type Game struct {
	catalog *course.Catalog
	tuning  Tuning
	seed    uint64

	level          *course.Level
	status         Status
	stopped        bool
	strokes        int
	totalStrokes   int
	holesCompleted int

	events []Event
}

// NewGame starts on level 1 with the ball resting on the tee.
func NewGame(catalog *course.Catalog, tuning Tuning, seed uint64) (*Game, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, ErrNoCatalog
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}

	level, err := catalog.Build(1, seed)
	if err != nil {
		return nil, fmt.Errorf("build level 1: %w", err)
	}

	return &Game{
		catalog: catalog,
		tuning:  tuning,
		seed:    seed,
		level:   level,
		status:  StatusPlaying,
		stopped: true,
	}, nil
}

func (g *Game) Level() *course.Level { return g.level }

func (g *Game) Status() Status { return g.status }

func (g *Game) Won() bool { return g.status == StatusWon }

func (g *Game) Stopped() bool { return g.stopped }

func (g *Game) Strokes() int { return g.strokes }

func (g *Game) Tuning() Tuning { return g.tuning }

// Bodies is every body of the active level, ball first.
func (g *Game) Bodies() []*physics.Body { return g.level.Bodies() }

// Hit launches the ball along aim (radians, 0 is +X, pi/2 is +Z). It is only
// accepted while the ball is stopped.
func (g *Game) Hit(aim, power float64) error {
	if math.IsNaN(aim) || math.IsInf(aim, 0) {
		return fmt.Errorf("%v: %w", aim, ErrInvalidAim)
	}
	if math.IsNaN(power) || power < 0 || power > g.tuning.MaxPower {
		return fmt.Errorf("%v not in [0, %v]: %w", power, g.tuning.MaxPower, ErrInvalidPower)
	}
	if !g.stopped {
		return ErrBallMoving
	}

	speed := power / g.tuning.PowerScale
	ball := g.level.Ball
	ball.LinearVelocity = mgl64.Vec3{math.Cos(aim) * speed, 0, math.Sin(aim) * speed}

	g.stopped = false
	g.strokes++
	g.totalStrokes++
	g.emit(Event{Type: EventHit, Aim: aim, Power: power})
	return nil
}

// PhysicsStep runs one fixed step of ball physics. It only changes
// velocities (and, on fall-through, the level); positions are integrated by
// the caller afterwards.
func (g *Game) PhysicsStep(dt float64) {
	t := g.tuning
	ball := g.level.Ball
	v := ball.LinearVelocity

	v[1] -= dt * t.Gravity

	if g.status != StatusWon && ball.Center.Y() < t.FloorBounceHeight && v.Y() < 0 && g.level.OverCourse(ball.Center) {
		v[1] *= -t.BounceDamping
	}

	ball.LinearVelocity = v.Mul(math.Exp(-dt / t.FrictionTau))

	for _, o := range g.level.Obstacles {
		physics.Collide(ball, o)
	}

	g.checkHole()
	if g.checkFall() {
		return
	}
	g.checkStop()
}

func (g *Game) checkHole() {
	ball := g.level.Ball
	hole := g.level.Hole

	offset := hole.HorizontalOffset(ball.Center)
	dist := offset.Len()
	if dist > hole.Radius || ball.Center.Y() >= g.tuning.NearGroundHeight {
		return
	}

	if g.status != StatusWon {
		g.status = StatusWon
		g.emit(Event{Type: EventWon})
		log.Debug().Int("level", g.level.Index).Int("strokes", g.strokes).Msg("[GAME] ball in the hole")
	}

	// On the rim: stop the ball from rolling back out.
	if dist > hole.Radius-hole.Lip {
		radial := physics.SafeNormalize(offset)
		if out := ball.LinearVelocity.Dot(radial); out > 0 {
			ball.LinearVelocity = ball.LinearVelocity.Sub(radial.Mul(out))
		}
	}
}

func (g *Game) checkFall() bool {
	ball := g.level.Ball
	if ball.Center.Y() >= g.level.FallThreshold {
		return false
	}

	completed := g.status == StatusWon
	if completed {
		g.holesCompleted++
	}

	next := g.catalog.Next(g.level.Index)
	level, err := g.catalog.Build(next, g.seed)
	if err != nil {
		// The catalog built every level when it was loaded.
		log.Error().Err(err).Int("level", next).Msg("[GAME] rebuild failed, respawning")
		g.level.Respawn()
	} else {
		g.level = level
	}

	g.status = StatusPlaying
	g.stopped = true
	g.strokes = 0
	g.emit(Event{Type: EventLevelChanged, Completed: completed})
	log.Debug().Int("level", g.level.Index).Bool("completed", completed).Msg("[GAME] level changed")
	return true
}

func (g *Game) checkStop() {
	if g.status == StatusWon {
		return
	}

	ball := g.level.Ball
	if ball.Speed() >= g.tuning.StopSpeed || ball.Center.Y() >= g.tuning.NearGroundHeight {
		return
	}

	ball.LinearVelocity = mgl64.Vec3{}
	if !g.stopped {
		g.stopped = true
		g.emit(Event{Type: EventStopped})
	}
}

func (g *Game) emit(e Event) {
	e.Level = g.level.Index
	e.Strokes = g.strokes
	e.Position = [3]float64(g.level.Ball.Center)
	g.events = append(g.events, e)
}

// DrainEvents returns and clears the events gathered since the last call.
func (g *Game) DrainEvents() []Event {
	events := g.events
	g.events = nil
	return events
}

// BodyPose is the drawn transform of one body.
type BodyPose struct {
	Name      string        `json:"name"`
	Shape     physics.Shape `json:"shape"`
	Transform [16]float64   `json:"transform"` // column-major
}

// Snapshot is an immutable view of a game for renderers and clients.
type Snapshot struct {
	Level          int        `json:"level"`
	LevelName      string     `json:"level_name"`
	Par            int        `json:"par"`
	Status         Status     `json:"status"`
	Won            bool       `json:"won"`
	Stopped        bool       `json:"stopped"`
	Strokes        int        `json:"strokes"`
	TotalStrokes   int        `json:"total_strokes"`
	HolesCompleted int        `json:"holes_completed"`
	Aim            float64    `json:"aim"`
	Ball           [3]float64 `json:"ball"`
	Bodies         []BodyPose `json:"bodies"`

	T          float64 `json:"t"`
	StepsTaken uint64  `json:"steps_taken"`
	TimeScale  float64 `json:"time_scale"`
}

func (g *Game) Snapshot() Snapshot {
	bodies := g.level.Bodies()
	poses := make([]BodyPose, len(bodies))
	for i, b := range bodies {
		poses[i] = BodyPose{Name: b.Name, Shape: b.Shape(), Transform: [16]float64(b.DrawnLocation)}
	}

	return Snapshot{
		Level:          g.level.Index,
		LevelName:      g.level.Name,
		Par:            g.level.Par,
		Status:         g.status,
		Won:            g.status == StatusWon,
		Stopped:        g.stopped,
		Strokes:        g.strokes,
		TotalStrokes:   g.totalStrokes,
		HolesCompleted: g.holesCompleted,
		Aim:            g.level.Aim,
		Ball:           [3]float64(g.level.Ball.DrawnLocation.Col(3).Vec3()),
		Bodies:         poses,
	}
}
