package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SafeNormalize returns v scaled to unit length, or the zero vector when v has
// no length. mgl64's Normalize divides by zero and yields NaN components.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Horizontal drops the vertical component.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// Lerp interpolates component-wise between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// IsFinite reports whether every component is a real number.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// blendRotation interpolates the three basis columns of two rotation matrices
// independently. This is not a slerp: large angular deltas shear the result.
func blendRotation(from, to mgl64.Mat4, alpha float64) mgl64.Mat4 {
	var m mgl64.Mat4
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			i := col*4 + row
			m[i] = from[i]*(1-alpha) + to[i]*alpha
		}
	}
	m[15] = 1
	return m
}
