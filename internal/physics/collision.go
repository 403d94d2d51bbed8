package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Surface classifies a contact normal for the velocity response.
type Surface string

const (
	SurfaceRamp Surface = "RAMP" // walkable: the ball slides along it
	SurfaceWall Surface = "WALL" // the ball bounces off it
)

// Response reports what Respond did to a velocity.
type Response string

const (
	ResponseNone       Response = "NONE"
	ResponseSeparating Response = "SEPARATING"
	ResponseSlide      Response = "SLIDE"
	ResponseBounce     Response = "BOUNCE"
)

const (
	// Wall bounces keep between 40% (head-on) and 70% (grazing) of the speed.
	wallRetention = 0.7
	wallAngleLoss = 0.3
)

// Contact tests a sphere against an oriented box. It returns the world-space
// unit contact normal pointing from the box toward the ball.
//
// Each axis of the normal is -1, 0 or +1 depending on whether the ball's local
// coordinate was clamped to the lower face, left alone, or clamped to the
// upper face, so edges and corners produce diagonal normals.
func Contact(ball, box *Body) (mgl64.Vec3, bool) {
	local := box.ToLocal(ball.Center)
	h := box.Size()

	var nearest, normal mgl64.Vec3
	interior := true
	for i := 0; i < 3; i++ {
		switch {
		case local[i] <= -h[i]:
			nearest[i] = -h[i]
			normal[i] = -1
			interior = false
		case local[i] >= h[i]:
			nearest[i] = h[i]
			normal[i] = 1
			interior = false
		default:
			nearest[i] = local[i]
		}
	}

	if local.Sub(nearest).Len() >= ball.Radius() {
		return mgl64.Vec3{}, false
	}

	// The center is inside the box (tunnelled or spawned there): push out
	// through the face with the least penetration.
	if interior {
		normal = exitFace(local, h)
	}

	return SafeNormalize(box.ToWorldDirection(normal)), true
}

// Resolve is Contact under the name the simulation step uses.
func Resolve(ball, box *Body) (mgl64.Vec3, bool) {
	return Contact(ball, box)
}

func exitFace(local, h mgl64.Vec3) mgl64.Vec3 {
	axis := 0
	depth := math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := h[i] - math.Abs(local[i]); d < depth {
			depth = d
			axis = i
		}
	}

	var n mgl64.Vec3
	n[axis] = 1
	if local[axis] < 0 {
		n[axis] = -1
	}
	return n
}

// ClassifySurface treats a normal as a ramp when its vertical component is
// strictly larger in magnitude than both horizontal ones. Exact ties are walls.
func ClassifySurface(n mgl64.Vec3) Surface {
	y := math.Abs(n.Y())
	if y > math.Abs(n.X()) && y > math.Abs(n.Z()) {
		return SurfaceRamp
	}
	return SurfaceWall
}

// Respond applies the contact response for a unit normal.
//
// Ramps remove the velocity component along the normal. Walls reflect the
// velocity and scale it by 0.7 - 0.3*p, where p is the projection of the
// reflected direction on the normal.
func Respond(v, n mgl64.Vec3) (mgl64.Vec3, Response) {
	dir := SafeNormalize(v)
	if dir.Len() == 0 || n.Len() == 0 {
		return v, ResponseNone
	}

	proj := dir.Dot(n)
	if proj > 0 {
		return v, ResponseSeparating
	}

	along := v.Dot(n)
	if ClassifySurface(n) == SurfaceRamp {
		return v.Sub(n.Mul(along)), ResponseSlide
	}

	reflected := v.Sub(n.Mul(2 * along))
	out := SafeNormalize(reflected).Dot(n)
	return reflected.Mul(wallRetention - wallAngleLoss*out), ResponseBounce
}

// Collide resolves ball against box in place and reports the response taken.
func Collide(ball, box *Body) Response {
	n, ok := Resolve(ball, box)
	if !ok {
		return ResponseNone
	}

	v, resp := Respond(ball.LinearVelocity, n)
	ball.LinearVelocity = v
	return resp
}
