package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/u0068/Biospheres-sub000/sim/kernel"
)

// Backend advances the physics of a Store by one step: grid rebuild, collision, adhesion,
// integration, boundary, age. Division and bond removal happen afterwards in World.
// Implementations write only into the store's own columns and never allocate cells or
// connections.
type Backend interface {
	Name() string
	Tuning() kernel.Tuning
	Step(s *Store, g *Genome, dt float64) StepStats
}

// BondBreak flags a connection that exceeded its mode's break limits during a step.
type BondBreak struct {
	Connection  int
	SpringForce float64
	Stretch     float64
}

// StepStats reports what one backend step did.
type StepStats struct {
	Collisions     int
	BondsEvaluated int
	GridDropped    int
	BoundaryHits   int
	AdhesionEnergy float64
	Breaks         []BondBreak // ascending connection index
}

// BackendConfig groups the parameters a backend factory consumes.
type BackendConfig struct {
	Capacity       int // cell capacity of the store the backend will step
	Workers        int // gpu only; 0 means GOMAXPROCS
	AngularDamping float64
	Boundary       BoundaryConfig
	Partition      PartitionConfig
}

// BackendFactory builds a backend from configuration.
type BackendFactory func(cfg BackendConfig) (Backend, error)

// backendRegistry is populated by sub-packages in init() (sim/cpu, sim/gpu). Importing
// sim alone registers nothing.
var backendRegistry = map[string]BackendFactory{}

// RegisterBackend makes a backend available to NewBackend. Panics on a duplicate name.
func RegisterBackend(name string, factory BackendFactory) {
	if _, exists := backendRegistry[name]; exists {
		panic(fmt.Sprintf("RegisterBackend: backend %q already registered", name))
	}
	backendRegistry[name] = factory
}

// NewBackend builds the named backend.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	factory, ok := backendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q; valid: %v", name, BackendNames())
	}
	return factory(cfg)
}

// BackendNames returns the registered backend names in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BondParamsFor returns the kernel bond parameters of a connection in the given mode.
func (g *Genome) BondParamsFor(mode int32) kernel.BondParams {
	return g.Mode(int(mode)).Adhesion.BondParams()
}

// ExceedsBreakLimits reports whether a bond evaluated to r must be removed under a.
func ExceedsBreakLimits(a *AdhesionSettings, r kernel.BondResult) bool {
	if !a.CanBreak || !r.Applied {
		return false
	}
	if a.BreakForce > 0 && math.Abs(r.SpringForce) > a.BreakForce {
		return true
	}
	return a.BreakLength > 0 && r.Stretch > a.BreakLength
}

// KineticEnergy returns the total translational plus rotational kinetic energy.
func KineticEnergy(s *Store) float64 {
	c := &s.Cells
	total := 0.0
	for i := 0; i < s.CellCount(); i++ {
		v := c.Velocities.At(i)
		w := c.AngularVelocities.At(i)
		inertia := kernel.MomentOfInertia(c.Masses[i], c.Radii[i])
		total += 0.5*c.Masses[i]*v.Dot(v) + 0.5*inertia*w.Dot(w)
	}
	return total
}
