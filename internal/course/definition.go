package course

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidLevel = errors.New("invalid level definition")

// Vector is a YAML/JSON triple, written as [x, y, z].
type Vector [3]float64

func (v *Vector) UnmarshalYAML(node *yaml.Node) error {
	var xs []float64
	if err := node.Decode(&xs); err != nil {
		return err
	}
	if len(xs) != 3 {
		return fmt.Errorf("line %d: vector needs 3 components, got %d", node.Line, len(xs))
	}
	copy(v[:], xs)
	return nil
}

func (v Vector) Vec3() mgl64.Vec3 { return mgl64.Vec3(v) }

// Spawn is where the ball is placed when the level starts. Yaw (degrees) is
// the suggested aim, measured like the hit angle: 0 is +X, 90 is +Z.
type Spawn struct {
	Center Vector  `yaml:"center" json:"center"`
	Yaw    float64 `yaml:"yaw" json:"yaw"`
}

// HoleDef is the cup. Only the horizontal distance to Center matters for
// capture; Center's height is the green surface.
type HoleDef struct {
	Center Vector  `yaml:"center" json:"center"`
	Radius float64 `yaml:"radius" json:"radius"`
	Lip    float64 `yaml:"lip" json:"lip"` // width of the rim band; defaults to Radius/4
}

// ObstacleDef is a static box. Angles are in degrees.
type ObstacleDef struct {
	Name        string  `yaml:"name" json:"name"`
	Center      Vector  `yaml:"center" json:"center"`
	HalfExtents Vector  `yaml:"half_extents" json:"half_extents"`
	Yaw         float64 `yaml:"yaw" json:"yaw"`
	Pitch       float64 `yaml:"pitch" json:"pitch"`
	Roll        float64 `yaml:"roll" json:"roll"`
}

// GreenDef is the playing surface slab. It is cut into boxes around a square
// opening at the hole so the ball can drop through.
type GreenDef struct {
	Min Vector `yaml:"min" json:"min"`
	Max Vector `yaml:"max" json:"max"`
}

// DecorDef is a spinning, non-colliding box such as windmill sails. A missing
// axis gets a random one.
type DecorDef struct {
	Name        string  `yaml:"name" json:"name"`
	Center      Vector  `yaml:"center" json:"center"`
	HalfExtents Vector  `yaml:"half_extents" json:"half_extents"`
	Yaw         float64 `yaml:"yaw" json:"yaw"`
	Spin        float64 `yaml:"spin" json:"spin"` // rad/s
	Axis        *Vector `yaml:"axis,omitempty" json:"axis,omitempty"`
}

// Definition is one hand-authored level.
type Definition struct {
	Name          string        `yaml:"name" json:"name"`
	Par           int           `yaml:"par" json:"par"`
	Spawn         Spawn         `yaml:"spawn" json:"spawn"`
	Hole          HoleDef       `yaml:"hole" json:"hole"`
	Green         *GreenDef     `yaml:"green,omitempty" json:"green,omitempty"`
	Obstacles     []ObstacleDef `yaml:"obstacles" json:"obstacles"`
	Decor         []DecorDef    `yaml:"decor,omitempty" json:"decor,omitempty"`
	FallThreshold float64       `yaml:"fall_threshold" json:"fall_threshold"`
}

func (d *Definition) applyDefaults() {
	if d.Hole.Lip == 0 {
		d.Hole.Lip = d.Hole.Radius / 4
	}
	if d.Par == 0 {
		d.Par = 3
	}
}

func invalid(name, format string, args ...interface{}) error {
	return fmt.Errorf("level %q: %s: %w", name, fmt.Sprintf(format, args...), ErrInvalidLevel)
}

func positiveFinite(v Vector) bool {
	for _, c := range v {
		if !(c > 0) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func finite(v Vector) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Validate checks everything that can be checked without building bodies.
func (d Definition) Validate() error {
	if d.Name == "" {
		return invalid(d.Name, "missing name")
	}
	if !finite(d.Spawn.Center) || !finite(d.Hole.Center) {
		return invalid(d.Name, "spawn and hole centers must be finite")
	}
	if !(d.Hole.Radius > 0) || math.IsInf(d.Hole.Radius, 0) {
		return invalid(d.Name, "hole radius %v must be positive", d.Hole.Radius)
	}
	if !(d.Hole.Lip > 0) || d.Hole.Lip >= d.Hole.Radius {
		return invalid(d.Name, "hole lip %v must be inside (0, %v)", d.Hole.Lip, d.Hole.Radius)
	}
	if math.IsNaN(d.FallThreshold) || d.FallThreshold >= d.Spawn.Center[1] {
		return invalid(d.Name, "fall threshold %v must be below the spawn height %v", d.FallThreshold, d.Spawn.Center[1])
	}

	if g := d.Green; g != nil {
		for i := 0; i < 3; i++ {
			if !(g.Max[i] > g.Min[i]) {
				return invalid(d.Name, "green max must exceed min on axis %d", i)
			}
		}
		if d.FallThreshold >= g.Min[1] {
			return invalid(d.Name, "fall threshold %v must be below the green", d.FallThreshold)
		}
		hx, hz, r := d.Hole.Center[0], d.Hole.Center[2], d.Hole.Radius
		if hx-r <= g.Min[0] || hx+r >= g.Max[0] || hz-r <= g.Min[2] || hz+r >= g.Max[2] {
			return invalid(d.Name, "hole must lie inside the green")
		}
	}

	if len(d.Obstacles) == 0 && d.Green == nil {
		return invalid(d.Name, "no obstacles and no green")
	}
	for i, o := range d.Obstacles {
		if !finite(o.Center) || !positiveFinite(o.HalfExtents) {
			return invalid(d.Name, "obstacle %d (%s) has a degenerate size or center", i, o.Name)
		}
	}
	for i, o := range d.Decor {
		if !finite(o.Center) || !positiveFinite(o.HalfExtents) {
			return invalid(d.Name, "decor %d (%s) has a degenerate size or center", i, o.Name)
		}
	}

	return nil
}

// greenPieces splits the green slab into up to four boxes that leave a square
// opening of side 2*radius around the hole.
func (d Definition) greenPieces() []ObstacleDef {
	g := d.Green
	if g == nil {
		return nil
	}

	hx, hz, r := d.Hole.Center[0], d.Hole.Center[2], d.Hole.Radius
	y0, y1 := g.Min[1], g.Max[1]

	slab := func(name string, x0, x1, z0, z1 float64) (ObstacleDef, bool) {
		if x1-x0 <= 0 || z1-z0 <= 0 {
			return ObstacleDef{}, false
		}
		return ObstacleDef{
			Name:        name,
			Center:      Vector{(x0 + x1) / 2, (y0 + y1) / 2, (z0 + z1) / 2},
			HalfExtents: Vector{(x1 - x0) / 2, (y1 - y0) / 2, (z1 - z0) / 2},
		}, true
	}

	var pieces []ObstacleDef
	for _, p := range []struct {
		name           string
		x0, x1, z0, z1 float64
	}{
		{"green-south", g.Min[0], g.Max[0], g.Min[2], hz - r},
		{"green-north", g.Min[0], g.Max[0], hz + r, g.Max[2]},
		{"green-west", g.Min[0], hx - r, hz - r, hz + r},
		{"green-east", hx + r, g.Max[0], hz - r, hz + r},
	} {
		if o, ok := slab(p.name, p.x0, p.x1, p.z0, p.z1); ok {
			pieces = append(pieces, o)
		}
	}
	return pieces
}

func orientation(yaw, pitch, roll float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DY(mgl64.DegToRad(yaw)).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(pitch))).
		Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(roll)))
}
