package qmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func assertVecNear(t *testing.T, want, got mgl64.Vec3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], tol, "component %d of %v vs %v", i, want, got)
	}
}

func TestAlignVectors_Parallel_ReturnsIdentity(t *testing.T) {
	q := AlignVectors(AxisX, mgl64.Vec3{1, 1e-5, 0})
	assert.Equal(t, mgl64.QuatIdent(), q)
}

func TestAlignVectors_Antiparallel_UsesSmallestComponentAxis(t *testing.T) {
	tests := []struct {
		name     string
		from     mgl64.Vec3
		wantAxis mgl64.Vec3
	}{
		// from=X: smallest |component| is Y (tie Y/Z resolves to Y); axis = X × Y = Z
		{"x axis", AxisX, AxisZ},
		// from=Y: smallest is X; axis = Y × X = -Z
		{"y axis", AxisY, mgl64.Vec3{0, 0, -1}},
		// from=Z: smallest is X; axis = Z × X = Y
		{"z axis", AxisZ, AxisY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := AlignVectors(tt.from, tt.from.Mul(-1))
			assert.InDelta(t, 0, q.W, eps)
			assertVecNear(t, tt.wantAxis, q.V, eps)
			assertVecNear(t, tt.from.Mul(-1), q.Rotate(tt.from), 1e-9)
		})
	}
}

func TestAlignVectors_Antiparallel_IsDeterministic(t *testing.T) {
	from := mgl64.Vec3{0.3, -0.9, 0.2}.Normalize()
	q1 := AlignVectors(from, from.Mul(-1))
	q2 := AlignVectors(from, from.Mul(-1))
	assert.Equal(t, q1, q2)
	assert.InDelta(t, 0, q1.V.Dot(from), eps, "half-turn axis must be perpendicular to input")
}

func TestAlignVectors_General_MapsFromOntoTo(t *testing.T) {
	cases := [][2]mgl64.Vec3{
		{AxisX, AxisY},
		{mgl64.Vec3{1, 1, 0}, mgl64.Vec3{0, 0, 1}},
		{mgl64.Vec3{0.2, -0.4, 0.9}, mgl64.Vec3{-0.7, 0.1, 0.3}},
	}
	for _, c := range cases {
		q := AlignVectors(c[0], c[1])
		assert.True(t, IsUnitQuat(q))
		assertVecNear(t, c[1].Normalize(), q.Rotate(c[0].Normalize()), 1e-9)
	}
}

func TestAlignVectors_Degenerate_ReturnsIdentity(t *testing.T) {
	assert.Equal(t, mgl64.QuatIdent(), AlignVectors(mgl64.Vec3{}, AxisX))
	assert.Equal(t, mgl64.QuatIdent(), AlignVectors(AxisX, mgl64.Vec3{}))
}

func TestAxisAngle_RoundTrip(t *testing.T) {
	axis := mgl64.Vec3{1, 2, -1}.Normalize()
	for _, angle := range []float64{0.1, 1.0, math.Pi / 2, 3.0} {
		q := FromAxisAngle(axis, angle)
		gotAxis, gotAngle := ToAxisAngle(q)
		assert.InDelta(t, angle, gotAngle, 1e-9)
		assertVecNear(t, axis, gotAxis, 1e-9)
	}
}

func TestToAxisAngle_NegativeHemisphere_ReturnsShortestRotation(t *testing.T) {
	q := FromAxisAngle(AxisZ, 0.5)
	flipped := mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	axis, angle := ToAxisAngle(flipped)
	assert.InDelta(t, 0.5, angle, 1e-9)
	assertVecNear(t, AxisZ, axis, 1e-9)
}

func TestToAxisAngle_Identity_FallsBackToX(t *testing.T) {
	axis, angle := ToAxisAngle(mgl64.QuatIdent())
	assert.Equal(t, AxisX, axis)
	assert.Equal(t, 0.0, angle)
}

func TestFromAxisAngle_DegenerateAxis_Identity(t *testing.T) {
	assert.Equal(t, mgl64.QuatIdent(), FromAxisAngle(mgl64.Vec3{}, 1))
}

func TestInverse_ComposesToIdentity(t *testing.T) {
	q := FromAxisAngle(mgl64.Vec3{0, 1, 1}, 0.8)
	id := Mul(q, Inverse(q))
	assert.InDelta(t, 1, id.W, 1e-12)
	assertVecNear(t, mgl64.Vec3{}, id.V, 1e-12)

	v := mgl64.Vec3{0.3, 0.4, 0.5}
	assertVecNear(t, v, InverseRotate(q, Rotate(q, v)), 1e-12)
	assert.Equal(t, mgl64.QuatIdent(), Inverse(mgl64.Quat{}))
}

func TestConjugate_NegatesVectorPart(t *testing.T) {
	q := mgl64.Quat{W: 0.5, V: mgl64.Vec3{0.5, -0.5, 0.5}}
	c := Conjugate(q)
	assert.Equal(t, 0.5, c.W)
	assert.Equal(t, mgl64.Vec3{-0.5, 0.5, -0.5}, c.V)
}

func TestNormalize_Fallbacks(t *testing.T) {
	assert.Equal(t, AxisY, Normalize(mgl64.Vec3{}, AxisY))
	assert.True(t, IsUnit(Normalize(mgl64.Vec3{3, 4, 0}, AxisX)))
	assert.Equal(t, mgl64.QuatIdent(), NormalizeQuat(mgl64.Quat{}))
	assert.True(t, IsUnitQuat(NormalizeQuat(mgl64.Quat{W: 2, V: mgl64.Vec3{1, 0, 0}})))
}

func TestIntegrate_StaysNormalizedAndRotates(t *testing.T) {
	q := mgl64.QuatIdent()
	omega := mgl64.Vec3{0, 0, 1}
	for i := 0; i < 1000; i++ {
		q = Integrate(q, omega, 0.001)
		assert.True(t, IsUnitQuat(q))
	}
	_, angle := ToAxisAngle(q)
	assert.InDelta(t, 1.0, angle, 1e-3)
}

func TestIntegrate_ZeroOmega_NoChange(t *testing.T) {
	q := FromAxisAngle(AxisY, 0.3)
	got := Integrate(q, mgl64.Vec3{}, 0.1)
	assert.InDelta(t, q.W, got.W, 1e-12)
	assertVecNear(t, q.V, got.V, 1e-12)
}

func TestAngleBetween(t *testing.T) {
	assert.InDelta(t, math.Pi/2, AngleBetween(AxisX, AxisY), eps)
	assert.InDelta(t, math.Pi, AngleBetween(AxisX, AxisX.Mul(-1)), eps)
	assert.InDelta(t, 0, AngleBetween(AxisZ, AxisZ), eps)
}

func TestFromEulerDegrees_IsUnit(t *testing.T) {
	q := FromEulerDegrees(30, 45, 60)
	assert.True(t, IsUnitQuat(q))
	assert.Equal(t, mgl64.QuatIdent(), FromEulerDegrees(0, 0, 0))
}

func TestSmallestComponentAxis_TieOrder(t *testing.T) {
	assert.Equal(t, AxisX, SmallestComponentAxis(mgl64.Vec3{1, 1, 1}))
	assert.Equal(t, AxisY, SmallestComponentAxis(mgl64.Vec3{1, 0, 0}))
	assert.Equal(t, AxisZ, SmallestComponentAxis(mgl64.Vec3{2, 1, 0.5}))
}
