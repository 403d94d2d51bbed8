package course

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/playmatatu/minigolf/internal/physics"
)

// Hole is the built cup.
type Hole struct {
	Center mgl64.Vec3
	Radius float64
	Lip    float64
}

// HorizontalOffset is the ball's offset from the cup on the ground plane.
func (h Hole) HorizontalOffset(p mgl64.Vec3) mgl64.Vec3 {
	return physics.Horizontal(p.Sub(h.Center))
}

// Bounds is the horizontal footprint of a level's obstacles.
type Bounds struct {
	MinX, MaxX, MinZ, MaxZ float64
}

func (b Bounds) Contains(p mgl64.Vec3) bool {
	return p.X() >= b.MinX && p.X() <= b.MaxX && p.Z() >= b.MinZ && p.Z() <= b.MaxZ
}

// Level owns every body of one active level. Switching levels replaces the
// whole Level; nothing in it is shared with the next one.
type Level struct {
	Index         int
	Name          string
	Par           int
	Ball          *physics.Body
	Obstacles     []*physics.Body
	Decor         []*physics.Body
	Hole          Hole
	FallThreshold float64
	Bounds        Bounds
	Aim           float64 // suggested aim, radians

	spawn  physics.Pose
	bodies []*physics.Body
}

// Build constructs a fresh level. It fails on any definition that would feed
// degenerate geometry into the physics step.
func Build(def Definition, index int, ballRadius float64, seed uint64) (*Level, error) {
	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, uint64(index)))

	ball, err := physics.NewSphere("ball", ballRadius, rng)
	if err != nil {
		return nil, invalid(def.Name, "ball: %v", err)
	}

	l := &Level{
		Index: index,
		Name:  def.Name,
		Par:   def.Par,
		Ball:  ball,
		Hole: Hole{
			Center: def.Hole.Center.Vec3(),
			Radius: def.Hole.Radius,
			Lip:    def.Hole.Lip,
		},
		FallThreshold: def.FallThreshold,
		Aim:           mgl64.DegToRad(def.Spawn.Yaw),
		spawn:         physics.At(def.Spawn.Center.Vec3()),
	}

	for _, o := range append(def.greenPieces(), def.Obstacles...) {
		b, err := physics.NewBox(o.Name, o.HalfExtents.Vec3(), rng)
		if err != nil {
			return nil, invalid(def.Name, "obstacle: %v", err)
		}
		pose := physics.Pose{Center: o.Center.Vec3(), Rotation: orientation(o.Yaw, o.Pitch, o.Roll)}
		b.Emplace(pose, mgl64.Vec3{}, 0, mgl64.Vec3{0, 1, 0})
		l.Obstacles = append(l.Obstacles, b)
	}

	for _, o := range def.Decor {
		b, err := physics.NewBox(o.Name, o.HalfExtents.Vec3(), rng)
		if err != nil {
			return nil, invalid(def.Name, "decor: %v", err)
		}
		var axis mgl64.Vec3
		if o.Axis != nil {
			axis = o.Axis.Vec3()
		}
		pose := physics.Pose{Center: o.Center.Vec3(), Rotation: orientation(o.Yaw, 0, 0)}
		b.Emplace(pose, mgl64.Vec3{}, o.Spin, axis)
		l.Decor = append(l.Decor, b)
	}

	spawn := l.spawn.Center
	for _, o := range l.Obstacles {
		if physics.InsideCube(o.Normalized(spawn), 0) {
			return nil, invalid(def.Name, "spawn %v is inside obstacle %s", spawn, o.Name)
		}
	}
	if physics.InsideSphere(l.Hole.HorizontalOffset(spawn).Mul(1/l.Hole.Radius), 0) {
		return nil, invalid(def.Name, "spawn %v is inside the hole", spawn)
	}

	l.Bounds = footprint(l.Obstacles)
	l.bodies = make([]*physics.Body, 0, 1+len(l.Obstacles)+len(l.Decor))
	l.bodies = append(l.bodies, l.Ball)
	l.bodies = append(l.bodies, l.Obstacles...)
	l.bodies = append(l.bodies, l.Decor...)

	l.Respawn()
	return l, nil
}

// Respawn puts the ball back on the tee at rest.
func (l *Level) Respawn() {
	l.Ball.Emplace(l.spawn, mgl64.Vec3{}, 0, mgl64.Vec3{0, 1, 0})
}

// Spawn is the tee position.
func (l *Level) Spawn() mgl64.Vec3 { return l.spawn.Center }

// Bodies lists the ball first, then obstacles, then decor.
func (l *Level) Bodies() []*physics.Body { return l.bodies }

// OverCourse reports whether p is above the level's footprint.
func (l *Level) OverCourse(p mgl64.Vec3) bool { return l.Bounds.Contains(p) }

func footprint(boxes []*physics.Body) Bounds {
	b := Bounds{MinX: math.Inf(1), MaxX: math.Inf(-1), MinZ: math.Inf(1), MaxZ: math.Inf(-1)}
	for _, o := range boxes {
		r := o.Rotation.Mat3()
		h := o.Size()
		ex := math.Abs(r.At(0, 0))*h[0] + math.Abs(r.At(0, 1))*h[1] + math.Abs(r.At(0, 2))*h[2]
		ez := math.Abs(r.At(2, 0))*h[0] + math.Abs(r.At(2, 1))*h[1] + math.Abs(r.At(2, 2))*h[2]
		b.MinX = math.Min(b.MinX, o.Center.X()-ex)
		b.MaxX = math.Max(b.MaxX, o.Center.X()+ex)
		b.MinZ = math.Min(b.MinZ, o.Center.Z()-ez)
		b.MaxZ = math.Max(b.MaxZ, o.Center.Z()+ez)
	}
	return b
}

func (l *Level) String() string {
	return fmt.Sprintf("%d:%s", l.Index, l.Name)
}
