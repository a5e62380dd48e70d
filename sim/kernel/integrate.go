package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
)

// AdvancePosition returns p + v*dt + 0.5*a*dt^2.
func AdvancePosition(p, v, a mgl64.Vec3, dt float64) mgl64.Vec3 {
	return p.Add(v.Mul(dt)).Add(a.Mul(0.5 * dt * dt))
}

// AdvanceVelocity returns v + a*dt. It runs after AdvancePosition has consumed v.
func AdvanceVelocity(v, a mgl64.Vec3, dt float64) mgl64.Vec3 {
	return v.Add(a.Mul(dt))
}

// MomentOfInertia returns the solid-sphere moment 0.4*m*r^2.
func MomentOfInertia(mass, radius float64) float64 {
	return 0.4 * mass * radius * radius
}

// AdvanceAngular integrates torque into angular velocity and applies the per-step damping
// factor.
func AdvanceAngular(omega, torque mgl64.Vec3, mass, radius, dt, damping float64) mgl64.Vec3 {
	inertia := MomentOfInertia(mass, radius)
	if inertia > 0 {
		omega = omega.Add(torque.Mul(dt / inertia))
	}
	return omega.Mul(damping)
}

// AdvanceOrientation integrates angular velocity into the orientation and renormalizes.
func AdvanceOrientation(q mgl64.Quat, omega mgl64.Vec3, dt float64) mgl64.Quat {
	return qmath.Integrate(q, omega, dt)
}

// RadiusFromMass returns the cube root of mass.
func RadiusFromMass(mass float64) float64 {
	return math.Cbrt(mass)
}

// Boundary is the spherical world wall centered at the origin.
type Boundary struct {
	Radius  float64
	Damping float64 // applied to the velocity after an outward component is reflected
}

// Apply clamps a cell whose surface crosses the wall back inside and reflects an outward
// radial velocity component. Returns the new position and velocity and whether the wall was
// hit.
func (b Boundary) Apply(pos, vel mgl64.Vec3, radius float64) (mgl64.Vec3, mgl64.Vec3, bool) {
	dist := pos.Len()
	if dist+radius <= b.Radius || dist == 0 {
		return pos, vel, false
	}
	normal := pos.Mul(1 / dist)
	limit := b.Radius - radius
	if limit < 0 {
		limit = 0
	}
	pos = normal.Mul(limit)
	radial := vel.Dot(normal)
	if radial > 0 {
		vel = vel.Sub(normal.Mul(2 * radial)).Mul(b.Damping)
	}
	return pos, vel, true
}
