// Package kernel holds the per-pair and per-cell physics math shared by the CPU and GPU
// backends. Functions here are pure: they read body state and return forces, torques or
// advanced state, and never touch the store.
package kernel

import "github.com/go-gl/mathgl/mgl64"

// Tuning holds the backend-specific constants of the physics contract. Both backends share
// every formula; only these scale factors differ.
type Tuning struct {
	CollisionHardness float64 // repulsion force per unit penetration
	CollisionCutoff   float64 // pairs farther apart than this are skipped without a radius test
	MinSeparation     float64 // centers closer than this produce no collision or bond force

	TwistTorqueScale  float64 // multiplier on twist spring torque
	TwistDampingScale float64 // multiplier on twist damping torque

	TorqueDifference float64 // fraction of (torqueB - torqueA) folded into endpoint A
	Damping          DampingTiers
}

// GPUTuning returns the reference constants of the compute-pipeline backend.
func GPUTuning() Tuning {
	return Tuning{
		CollisionHardness: 10.0,
		CollisionCutoff:   10.0,
		MinSeparation:     0.001,
		TwistTorqueScale:  0.3,
		TwistDampingScale: 0.4,
		TorqueDifference:  0.25,
		Damping:           DefaultDampingTiers(),
	}
}

// CPUTuning returns the constants of the sequential preview backend. Twist torque and twist
// damping are scaled differently from GPUTuning; the gap is carried on purpose and surfaced
// by cross-backend validation rather than unified.
func CPUTuning() Tuning {
	t := GPUTuning()
	t.TwistTorqueScale = 0.05
	t.TwistDampingScale = 0.6
	return t
}

// DampingTiers is the three-band attenuation applied to accumulated collision acceleration.
// Magnitudes below ZeroBelow are dropped, below StrongBelow are scaled by StrongFactor, below
// ModerateBelow by ModerateFactor; anything larger passes through untouched.
type DampingTiers struct {
	ZeroBelow      float64
	StrongBelow    float64
	StrongFactor   float64
	ModerateBelow  float64
	ModerateFactor float64
}

// DefaultDampingTiers returns the reference jitter-suppression bands.
func DefaultDampingTiers() DampingTiers {
	return DampingTiers{
		ZeroBelow:      0.001,
		StrongBelow:    0.01,
		StrongFactor:   0.1,
		ModerateBelow:  0.1,
		ModerateFactor: 0.5,
	}
}

// Apply returns a attenuated according to its magnitude band.
func (d DampingTiers) Apply(a mgl64.Vec3) mgl64.Vec3 {
	magSq := a.Dot(a)
	switch {
	case magSq < d.ZeroBelow*d.ZeroBelow:
		return mgl64.Vec3{}
	case magSq < d.StrongBelow*d.StrongBelow:
		return a.Mul(d.StrongFactor)
	case magSq < d.ModerateBelow*d.ModerateBelow:
		return a.Mul(d.ModerateFactor)
	default:
		return a
	}
}
