// Package qmath holds the quaternion and vector helpers shared by the physics kernel and the
// division handler. Every helper has a fixed branch structure so that anchor transforms are
// bit-reproducible across runs; degenerate inputs resolve to documented fallbacks instead of
// producing NaN.
package qmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// UnitTolerance bounds |len^2 - 1| for anchors and twist references.
	UnitTolerance = 1e-5

	// ParallelDot is the cosine above which AlignVectors treats inputs as parallel.
	ParallelDot = 0.9999

	// degenerateLenSq is the squared length below which a vector or quaternion is degenerate.
	degenerateLenSq = 1e-12

	// axisAngleEpsilon is the sin(angle/2) below which ToAxisAngle falls back to the X axis.
	axisAngleEpsilon = 1e-6
)

var (
	// AxisX is the fallback axis for degenerate rotations.
	AxisX = mgl64.Vec3{1, 0, 0}
	// AxisY is the default split direction.
	AxisY = mgl64.Vec3{0, 1, 0}
	// AxisZ is the third basis vector.
	AxisZ = mgl64.Vec3{0, 0, 1}
)

// Identity returns the identity rotation.
func Identity() mgl64.Quat {
	return mgl64.QuatIdent()
}

// LenSq returns the squared length of v.
func LenSq(v mgl64.Vec3) float64 {
	return v.Dot(v)
}

// QuatLenSq returns the squared norm of q.
func QuatLenSq(q mgl64.Quat) float64 {
	return q.W*q.W + q.V.Dot(q.V)
}

// IsUnit reports whether v is unit length within UnitTolerance on the squared norm.
func IsUnit(v mgl64.Vec3) bool {
	return math.Abs(LenSq(v)-1) <= UnitTolerance
}

// IsUnitQuat reports whether q is unit length within UnitTolerance on the squared norm.
func IsUnitQuat(q mgl64.Quat) bool {
	return math.Abs(QuatLenSq(q)-1) <= UnitTolerance
}

// IsDegenerateQuat reports whether q is too short to carry a rotation.
func IsDegenerateQuat(q mgl64.Quat) bool {
	return QuatLenSq(q) < 1e-6
}

// Normalize returns v scaled to unit length, or fallback when v is degenerate.
func Normalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	lenSq := LenSq(v)
	if lenSq < degenerateLenSq {
		return fallback
	}
	return v.Mul(1 / math.Sqrt(lenSq))
}

// NormalizeQuat returns q scaled to unit norm. A degenerate q becomes the identity.
func NormalizeQuat(q mgl64.Quat) mgl64.Quat {
	lenSq := QuatLenSq(q)
	if lenSq < degenerateLenSq {
		return mgl64.QuatIdent()
	}
	inv := 1 / math.Sqrt(lenSq)
	return mgl64.Quat{W: q.W * inv, V: q.V.Mul(inv)}
}

// Mul composes two rotations; the result applies b first, then a.
func Mul(a, b mgl64.Quat) mgl64.Quat {
	return a.Mul(b)
}

// Conjugate negates the vector part of q.
func Conjugate(q mgl64.Quat) mgl64.Quat {
	return q.Conjugate()
}

// Inverse returns the multiplicative inverse of q. A degenerate q yields the identity.
func Inverse(q mgl64.Quat) mgl64.Quat {
	lenSq := QuatLenSq(q)
	if lenSq < degenerateLenSq {
		return mgl64.QuatIdent()
	}
	c := q.Conjugate()
	return mgl64.Quat{W: c.W / lenSq, V: c.V.Mul(1 / lenSq)}
}

// Rotate applies q to v. q is assumed unit length.
func Rotate(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return q.Rotate(v)
}

// InverseRotate applies the inverse of unit quaternion q to v.
func InverseRotate(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return q.Conjugate().Rotate(v)
}

// FromAxisAngle builds a unit rotation of angle radians about axis. A degenerate axis yields
// the identity.
func FromAxisAngle(axis mgl64.Vec3, angle float64) mgl64.Quat {
	lenSq := LenSq(axis)
	if lenSq < degenerateLenSq {
		return mgl64.QuatIdent()
	}
	unit := axis.Mul(1 / math.Sqrt(lenSq))
	half := angle * 0.5
	return mgl64.Quat{W: math.Cos(half), V: unit.Mul(math.Sin(half))}
}

// ToAxisAngle decomposes q into a unit axis and an angle in [0, pi]. The quaternion is
// normalized and flipped onto the positive-W hemisphere first, so the shortest rotation is
// returned. Near-zero rotations report AxisX with the (tiny) angle.
func ToAxisAngle(q mgl64.Quat) (mgl64.Vec3, float64) {
	q = NormalizeQuat(q)
	if q.W < 0 {
		q = mgl64.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	w := mgl64.Clamp(q.W, -1, 1)
	angle := 2 * math.Acos(w)
	s := math.Sqrt(math.Max(0, 1-w*w))
	if s < axisAngleEpsilon {
		return AxisX, angle
	}
	return q.V.Mul(1 / s), angle
}

// SmallestComponentAxis returns the basis axis matching the smallest-magnitude component of
// v. Ties resolve in X, Y, Z order.
func SmallestComponentAxis(v mgl64.Vec3) mgl64.Vec3 {
	ax, ay, az := math.Abs(v.X()), math.Abs(v.Y()), math.Abs(v.Z())
	if ax <= ay && ax <= az {
		return AxisX
	}
	if ay <= az {
		return AxisY
	}
	return AxisZ
}

// Perpendicular returns a unit vector perpendicular to v, derived from the basis axis
// chosen by SmallestComponentAxis.
func Perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	return Normalize(v.Cross(SmallestComponentAxis(v)), AxisX)
}

// AlignVectors returns the unit rotation taking direction from onto direction to.
//
// Branches:
//   - dot > ParallelDot: identity.
//   - dot < -ParallelDot: half turn about Perpendicular(from).
//   - otherwise: bisector method, q = (from·h, from×h) with h = normalize(from+to).
//
// Inputs are normalized first; a degenerate input yields the identity.
func AlignVectors(from, to mgl64.Vec3) mgl64.Quat {
	if LenSq(from) < degenerateLenSq || LenSq(to) < degenerateLenSq {
		return mgl64.QuatIdent()
	}
	f := Normalize(from, AxisX)
	t := Normalize(to, AxisX)
	dot := f.Dot(t)
	if dot > ParallelDot {
		return mgl64.QuatIdent()
	}
	if dot < -ParallelDot {
		return mgl64.Quat{W: 0, V: Perpendicular(f)}
	}
	h := Normalize(f.Add(t), Perpendicular(f))
	return NormalizeQuat(mgl64.Quat{W: f.Dot(h), V: f.Cross(h)})
}

// Integrate advances orientation q by angular velocity omega over dt and renormalizes.
func Integrate(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	if LenSq(omega) == 0 {
		return NormalizeQuat(q)
	}
	spin := mgl64.Quat{W: 0, V: omega}.Mul(q)
	next := mgl64.Quat{
		W: q.W + 0.5*dt*spin.W,
		V: q.V.Add(spin.V.Mul(0.5 * dt)),
	}
	return NormalizeQuat(next)
}

// FromEulerDegrees builds a rotation from pitch (X), yaw (Y) and roll (Z) in degrees,
// applied in X, Y, Z order.
func FromEulerDegrees(pitch, yaw, roll float64) mgl64.Quat {
	q := mgl64.AnglesToQuat(mgl64.DegToRad(pitch), mgl64.DegToRad(yaw), mgl64.DegToRad(roll), mgl64.XYZ)
	return NormalizeQuat(q)
}

// AngleBetween returns the angle in radians between two directions using atan2 on the cross
// and dot products, which stays accurate near 0 and pi.
func AngleBetween(a, b mgl64.Vec3) float64 {
	return math.Atan2(a.Cross(b).Len(), a.Dot(b))
}
