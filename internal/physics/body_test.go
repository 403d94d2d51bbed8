package physics

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func newTestBox(t *testing.T, h mgl64.Vec3) *Body {
	t.Helper()
	b, err := NewBox("box", h, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	return b
}

func TestNewBodyRejectsDegenerateSize(t *testing.T) {
	tests := []struct {
		name string
		size mgl64.Vec3
	}{
		{"zero axis", mgl64.Vec3{1, 0, 1}},
		{"negative axis", mgl64.Vec3{1, 1, -2}},
		{"nan axis", mgl64.Vec3{math.NaN(), 1, 1}},
		{"infinite axis", mgl64.Vec3{1, math.Inf(1), 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBox("bad", tt.size, nil)
			require.ErrorIs(t, err, ErrInvalidSize)
		})
	}
}

func TestEmplaceSetsPreviousAndRandomAxis(t *testing.T) {
	b := newTestBox(t, mgl64.Vec3{1, 1, 1})
	pose := Pose{Center: mgl64.Vec3{1, 2, 3}, Rotation: mgl64.HomogRotate3DY(0.4)}

	b.Emplace(pose, mgl64.Vec3{1, 0, 0}, 0.5, mgl64.Vec3{})

	require.Equal(t, pose.Center, b.Previous.Center)
	require.Equal(t, pose.Rotation, b.Previous.Rotation)
	require.InDelta(t, 1.0, b.SpinAxis.Len(), tolerance)

	b.Emplace(pose, mgl64.Vec3{}, 0, mgl64.Vec3{0, 3, 0})
	require.True(t, b.SpinAxis.ApproxEqual(mgl64.Vec3{0, 1, 0}))
}

func TestAdvanceIntegratesAndKeepsPrevious(t *testing.T) {
	b := newTestBox(t, mgl64.Vec3{1, 1, 1})
	b.Emplace(At(mgl64.Vec3{0, 1, 0}), mgl64.Vec3{2, 0, -4}, math.Pi, mgl64.Vec3{0, 1, 0})

	b.Advance(0.5)

	require.Equal(t, mgl64.Vec3{0, 1, 0}, b.Previous.Center)
	require.Equal(t, mgl64.Ident4(), b.Previous.Rotation)
	require.True(t, b.Center.ApproxEqualThreshold(mgl64.Vec3{1, 1, -2}, tolerance))

	// Half a turn per second for half a second is a quarter turn about +Y.
	want := mgl64.HomogRotate3DY(math.Pi / 2)
	require.True(t, b.Rotation.ApproxEqualThreshold(want, tolerance))

	b.Advance(0.5)
	require.True(t, b.Previous.Center.ApproxEqualThreshold(mgl64.Vec3{1, 1, -2}, tolerance))
}

func TestBlendStateEndpoints(t *testing.T) {
	b := newTestBox(t, mgl64.Vec3{2, 1, 0.5})
	b.Emplace(At(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{4, 0, 0}, 1, mgl64.Vec3{0, 0, 1})

	for i := 0; i < 3; i++ {
		b.Advance(0.05)

		scale := mgl64.Scale3D(b.Size().Elem())
		prev := mgl64.Translate3D(b.Previous.Center.Elem()).Mul4(b.Previous.Rotation).Mul4(scale)
		cur := mgl64.Translate3D(b.Center.Elem()).Mul4(b.Rotation).Mul4(scale)

		b.BlendState(0)
		require.True(t, b.DrawnLocation.ApproxEqualThreshold(prev, tolerance))

		b.BlendState(1)
		require.True(t, b.DrawnLocation.ApproxEqualThreshold(cur, tolerance))

		b.BlendState(0.5)
		mid := b.DrawnLocation.Col(3).Vec3()
		require.True(t, mid.ApproxEqualThreshold(Lerp(b.Previous.Center, b.Center, 0.5), tolerance))
	}
}

func TestNormalizedPredicates(t *testing.T) {
	b := newTestBox(t, mgl64.Vec3{2, 1, 4})
	b.Emplace(Pose{Center: mgl64.Vec3{10, 0, 0}, Rotation: mgl64.HomogRotate3DY(math.Pi / 2)}, mgl64.Vec3{}, 0, mgl64.Vec3{0, 1, 0})

	// World +Z maps onto local +X after a quarter turn about Y.
	n := b.Normalized(mgl64.Vec3{10, 0, -1.9})
	require.InDelta(t, 0.95, math.Abs(n.X()), tolerance)
	require.True(t, InsideCube(n, 0))
	require.False(t, InsideCube(b.Normalized(mgl64.Vec3{10, 1.5, 0}), 0))
	require.True(t, InsideCube(b.Normalized(mgl64.Vec3{10, 1.5, 0}), 0.5))

	tests := []struct {
		name   string
		point  mgl64.Vec3
		margin float64
		want   bool
	}{
		{"center", mgl64.Vec3{}, 0, true},
		{"on surface", mgl64.Vec3{1, 0, 0}, 0, false},
		{"on surface with margin", mgl64.Vec3{1, 0, 0}, 0.01, true},
		{"diagonal inside", mgl64.Vec3{0.5, 0.5, 0.5}, 0, true},
		{"diagonal outside", mgl64.Vec3{0.7, 0.7, 0.7}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, InsideSphere(tt.point, tt.margin))
		})
	}
}

func TestSafeNormalizeZero(t *testing.T) {
	require.Equal(t, mgl64.Vec3{}, SafeNormalize(mgl64.Vec3{}))
	require.True(t, IsFinite(SafeNormalize(mgl64.Vec3{1e-300, 0, 0})))
	require.InDelta(t, 1.0, SafeNormalize(mgl64.Vec3{3, 4, 0}).Len(), tolerance)
}
