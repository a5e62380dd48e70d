package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is the read-only view of one cell that the pair kernels consume.
type Body struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Orientation     mgl64.Quat
	Mass            float64
	Radius          float64
}

// CollisionForce returns the repulsion force acting on a from b, and whether the pair
// overlaps. The force on b is the negation. Magnitude is hardness times penetration depth;
// there is no restitution term.
func CollisionForce(a, b Body, t Tuning) (mgl64.Vec3, bool) {
	delta := a.Position.Sub(b.Position)
	distSq := delta.Dot(delta)
	if distSq > t.CollisionCutoff*t.CollisionCutoff {
		return mgl64.Vec3{}, false
	}
	minDist := a.Radius + b.Radius
	if distSq >= minDist*minDist {
		return mgl64.Vec3{}, false
	}
	dist := math.Sqrt(distSq)
	if dist <= t.MinSeparation {
		return mgl64.Vec3{}, false
	}
	penetration := minDist - dist
	return delta.Mul(t.CollisionHardness * penetration / dist), true
}

// CollisionAccelerations returns the accelerations of a and b produced by their collision:
// the same force magnitude divided by each body's own mass, in opposite directions.
func CollisionAccelerations(a, b Body, t Tuning) (mgl64.Vec3, mgl64.Vec3, bool) {
	f, ok := CollisionForce(a, b, t)
	if !ok {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return f.Mul(1 / a.Mass), f.Mul(-1 / b.Mass), true
}
