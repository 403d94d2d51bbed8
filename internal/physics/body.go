package physics

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape identifies the collision geometry a body's size describes.
type Shape string

const (
	ShapeSphere Shape = "SPHERE"
	ShapeBox    Shape = "BOX"
)

var ErrInvalidSize = errors.New("body size must be positive and finite on every axis")

// Pose is a position plus a pure rotation.
type Pose struct {
	Center   mgl64.Vec3
	Rotation mgl64.Mat4
}

// At returns an unrotated pose centered on c.
func At(c mgl64.Vec3) Pose {
	return Pose{Center: c, Rotation: mgl64.Ident4()}
}

// Body is the kinematic state of one simulated object: the ball or a static
// box. Size is fixed at construction.
type Body struct {
	Name string

	Center          mgl64.Vec3
	Rotation        mgl64.Mat4
	Previous        Pose
	LinearVelocity  mgl64.Vec3
	AngularVelocity float64    // rad/s about SpinAxis
	SpinAxis        mgl64.Vec3 // unit length
	DrawnLocation   mgl64.Mat4

	shape Shape
	size  mgl64.Vec3
	rng   *rand.Rand
}

// NewBody creates a body at the origin. rng supplies the random spin axis when
// Emplace is called without one; nil gets a fixed-seed source so runs stay
// reproducible.
func NewBody(name string, shape Shape, size mgl64.Vec3, rng *rand.Rand) (*Body, error) {
	for i, c := range size {
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%s: axis %d is %v: %w", name, i, c, ErrInvalidSize)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	b := &Body{
		Name:  name,
		shape: shape,
		size:  size,
		rng:   rng,
	}
	b.Emplace(At(mgl64.Vec3{}), mgl64.Vec3{}, 0, mgl64.Vec3{})
	return b, nil
}

// NewSphere creates a sphere; every size component holds the radius.
func NewSphere(name string, radius float64, rng *rand.Rand) (*Body, error) {
	return NewBody(name, ShapeSphere, mgl64.Vec3{radius, radius, radius}, rng)
}

// NewBox creates a box from its half-extents.
func NewBox(name string, halfExtents mgl64.Vec3, rng *rand.Rand) (*Body, error) {
	return NewBody(name, ShapeBox, halfExtents, rng)
}

func (b *Body) Shape() Shape { return b.shape }

// Size returns the half-extents (boxes) or the radius on every axis (spheres).
func (b *Body) Size() mgl64.Vec3 { return b.size }

// Radius is the sphere radius.
func (b *Body) Radius() float64 { return b.size.X() }

// Emplace resets the full kinematic state. Current and previous poses are set
// to the same value so the first blended frame has nothing to interpolate.
// A zero spinAxis picks a random unit axis.
func (b *Body) Emplace(pose Pose, linear mgl64.Vec3, angular float64, spinAxis mgl64.Vec3) {
	b.Center = pose.Center
	b.Rotation = pose.Rotation
	b.Previous = pose
	b.LinearVelocity = linear
	b.AngularVelocity = angular

	axis := SafeNormalize(spinAxis)
	for axis.Len() == 0 {
		axis = SafeNormalize(mgl64.Vec3{b.rng.NormFloat64(), b.rng.NormFloat64(), b.rng.NormFloat64()})
	}
	b.SpinAxis = axis

	b.BlendState(1)
}

// Advance saves the current pose as Previous, then integrates one explicit
// Euler step. Rotation is pre-multiplied so the spin is about a world axis.
func (b *Body) Advance(dt float64) {
	b.Previous = Pose{Center: b.Center, Rotation: b.Rotation}

	b.Center = b.Center.Add(b.LinearVelocity.Mul(dt))
	if b.AngularVelocity != 0 {
		b.Rotation = mgl64.HomogRotate3D(dt*b.AngularVelocity, b.SpinAxis).Mul4(b.Rotation)
	}
}

// BlendState sets DrawnLocation to the pose alpha of the way from Previous to
// the current state, scaled by size.
func (b *Body) BlendState(alpha float64) {
	c := Lerp(b.Previous.Center, b.Center, alpha)
	rot := blendRotation(b.Previous.Rotation, b.Rotation, alpha)
	b.DrawnLocation = mgl64.Translate3D(c.Elem()).
		Mul4(rot).
		Mul4(mgl64.Scale3D(b.size.Elem()))
}

// ToLocal maps a world point into the body's unrotated frame centered on the
// origin. The transpose is the inverse of a pure rotation.
func (b *Body) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return b.Rotation.Mat3().Transpose().Mul3x1(world.Sub(b.Center))
}

// ToWorldDirection rotates a local direction into world axes.
func (b *Body) ToWorldDirection(local mgl64.Vec3) mgl64.Vec3 {
	return b.Rotation.Mat3().Mul3x1(local)
}

// Normalized maps a world point into the body's frame scaled so the surface
// sits at unit distance, the input expected by InsideCube and InsideSphere.
func (b *Body) Normalized(world mgl64.Vec3) mgl64.Vec3 {
	l := b.ToLocal(world)
	return mgl64.Vec3{l.X() / b.size.X(), l.Y() / b.size.Y(), l.Z() / b.size.Z()}
}

// Speed is the magnitude of the linear velocity.
func (b *Body) Speed() float64 {
	return b.LinearVelocity.Len()
}

// InsideCube reports whether a normalized local point lies in [-1-margin, 1+margin]
// on all three axes.
func InsideCube(local mgl64.Vec3, margin float64) bool {
	limit := 1 + margin
	for _, c := range local {
		if c < -limit || c > limit {
			return false
		}
	}
	return true
}

// InsideSphere reports whether a normalized local point has squared length
// below 1+margin.
func InsideSphere(local mgl64.Vec3, margin float64) bool {
	return local.LenSqr() < 1+margin
}
