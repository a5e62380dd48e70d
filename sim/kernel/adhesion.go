package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
)

// MaxTwistAngle bounds the twist correction angle in either direction (radians).
const MaxTwistAngle = math.Pi / 2

// BondParams are the spring parameters of one adhesion mode, in kernel units.
type BondParams struct {
	RestLength           float64 // surface-to-surface rest length; rest distance adds both radii
	LinearStiffness      float64
	LinearDamping        float64
	OrientationStiffness float64
	OrientationDamping   float64
	MaxAngularDeviation  float64 // free cone half-angle in radians; only the excess is sprung
	TwistEnabled         bool
	TwistStiffness       float64
	TwistDamping         float64
}

// BondFrame is the per-connection geometry: local anchor directions and twist references.
type BondFrame struct {
	AnchorA   mgl64.Vec3
	AnchorB   mgl64.Vec3
	TwistRefA mgl64.Quat
	TwistRefB mgl64.Quat
}

// BondResult is what one adhesion bond contributes to its two endpoints.
type BondResult struct {
	ForceA  mgl64.Vec3
	ForceB  mgl64.Vec3
	TorqueA mgl64.Vec3
	TorqueB mgl64.Vec3

	Distance    float64 // center-to-center distance
	Stretch     float64 // distance minus rest distance
	SpringForce float64 // signed linear spring magnitude, positive when stretched
	Energy      float64 // linear plus orientation spring energy
	Applied     bool    // false when the endpoints were degenerate
}

// RestDistance returns the center-to-center distance at which the linear spring is relaxed.
func (p BondParams) RestDistance(radiusA, radiusB float64) float64 {
	return p.RestLength + radiusA + radiusB
}

// BondForces evaluates one adhesion bond between a (cellA) and b (cellB).
//
// The linear term is stiffness*(distance - rest) along the A->B direction plus the reference
// damping law, which subtracts damping*(relative velocity along the bond) from 1.0 and
// applies the result against the bond direction. Orientation torques align each endpoint's
// world anchor with the bond (A) or its negation (B). The optional twist term resists roll
// about the bond axis relative to the stored references. Finally each endpoint's force picks
// up cross(-delta, torqueOther) and A's torque is pulled toward B's by Tuning.TorqueDifference.
func BondForces(a, b Body, frame BondFrame, p BondParams, t Tuning) BondResult {
	deltaPos := b.Position.Sub(a.Position)
	dist := deltaPos.Len()
	if dist < t.MinSeparation {
		return BondResult{Distance: dist}
	}
	dir := deltaPos.Mul(1 / dist)

	stretch := dist - p.RestDistance(a.Radius, b.Radius)
	springMag := p.LinearStiffness * stretch
	relVel := b.Velocity.Sub(a.Velocity)
	dampMag := 1.0 - p.LinearDamping*relVel.Dot(dir)
	forceA := dir.Mul(springMag).Add(dir.Mul(-dampMag))
	forceB := forceA.Mul(-1)

	anchorA := qmath.Rotate(a.Orientation, frame.AnchorA)
	anchorB := qmath.Rotate(b.Orientation, frame.AnchorB)
	torqueA, angleA := orientationTorque(anchorA, dir, a.AngularVelocity, p)
	torqueB, angleB := orientationTorque(anchorB, dir.Mul(-1), b.AngularVelocity, p)

	if p.TwistEnabled && !qmath.IsDegenerateQuat(frame.TwistRefA) && !qmath.IsDegenerateQuat(frame.TwistRefB) {
		twistA, twistB := twistTorques(a, b, frame, dir, p, t)
		torqueA = torqueA.Add(twistA)
		torqueB = torqueB.Add(twistB)
	}

	forceA = forceA.Add(deltaPos.Mul(-1).Cross(torqueB))
	forceB = forceB.Add(deltaPos.Cross(torqueA))
	torqueA = torqueA.Add(torqueB.Sub(torqueA).Mul(t.TorqueDifference))

	energy := 0.5*p.LinearStiffness*stretch*stretch +
		0.5*p.OrientationStiffness*(angleA*angleA+angleB*angleB)

	return BondResult{
		ForceA:      forceA,
		ForceB:      forceB,
		TorqueA:     torqueA,
		TorqueB:     torqueB,
		Distance:    dist,
		Stretch:     stretch,
		SpringForce: springMag,
		Energy:      energy,
		Applied:     true,
	}
}

// orientationTorque returns the spring-damper torque rotating anchor onto target, and the
// sprung angle. The angle comes from atan2(|cross|, dot). An antiparallel anchor rotates
// about qmath.Perpendicular(anchor).
func orientationTorque(anchor, target, omega mgl64.Vec3, p BondParams) (mgl64.Vec3, float64) {
	cross := anchor.Cross(target)
	sinAngle := cross.Len()
	cosAngle := anchor.Dot(target)
	angle := math.Atan2(sinAngle, cosAngle)

	var axis mgl64.Vec3
	switch {
	case sinAngle > 1e-9:
		axis = cross.Mul(1 / sinAngle)
	case cosAngle < 0:
		axis = qmath.Perpendicular(anchor)
	default:
		return mgl64.Vec3{}, 0
	}

	sprung := angle - p.MaxAngularDeviation
	if sprung < 0 {
		sprung = 0
	}
	spring := axis.Mul(sprung * p.OrientationStiffness)
	damping := axis.Mul(omega.Dot(axis) * p.OrientationDamping)
	return spring.Sub(damping), sprung
}

// twistTorques computes the roll-restoring torques. Each endpoint's target orientation is its
// twist reference rotated so the reference-frame anchor lands on the current bond direction;
// the correction from the current orientation to that target is projected on the bond axis.
func twistTorques(a, b Body, frame BondFrame, dir mgl64.Vec3, p BondParams, t Tuning) (mgl64.Vec3, mgl64.Vec3) {
	refAnchorA := qmath.Rotate(frame.TwistRefA, frame.AnchorA)
	refAnchorB := qmath.Rotate(frame.TwistRefB, frame.AnchorB)
	targetA := qmath.Mul(qmath.AlignVectors(refAnchorA, dir), frame.TwistRefA)
	targetB := qmath.Mul(qmath.AlignVectors(refAnchorB, dir.Mul(-1)), frame.TwistRefB)

	corrA := qmath.Mul(targetA, qmath.Inverse(a.Orientation))
	corrB := qmath.Mul(targetB, qmath.Inverse(b.Orientation))
	axisA, angleA := qmath.ToAxisAngle(corrA)
	axisB, angleB := qmath.ToAxisAngle(corrB)

	twistA := mgl64.Clamp(angleA*axisA.Dot(dir), -MaxTwistAngle, MaxTwistAngle)
	twistB := mgl64.Clamp(angleB*axisB.Dot(dir), -MaxTwistAngle, MaxTwistAngle)

	torqueA := dir.Mul(twistA * p.TwistStiffness * t.TwistTorqueScale)
	torqueB := dir.Mul(twistB * p.TwistStiffness * t.TwistTorqueScale)

	relTwist := a.AngularVelocity.Sub(b.AngularVelocity).Dot(dir)
	damp := relTwist * p.TwistDamping * t.TwistDampingScale
	torqueA = torqueA.Sub(dir.Mul(damp))
	torqueB = torqueB.Add(dir.Mul(damp))
	return torqueA, torqueB
}
