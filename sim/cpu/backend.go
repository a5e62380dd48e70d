// Package cpu implements the sequential preview backend. Every pass walks cells and
// connections in index order on one goroutine, so two runs from the same state are
// bit-identical. Translational integration runs over LaneWidth-wide column batches.
package cpu

import (
	"fmt"

	"github.com/u0068/Biospheres-sub000/sim"
	"github.com/u0068/Biospheres-sub000/sim/kernel"
	"github.com/u0068/Biospheres-sub000/sim/spatial"
)

// Name is the registry name of this backend.
const Name = "cpu"

// MaxCells is the largest store capacity the backend accepts.
const MaxCells = 256

// Backend is the sequential physics backend.
type Backend struct {
	tuning         kernel.Tuning
	boundary       kernel.Boundary
	angularDamping float64
	grid           *spatial.Grid
	neighbors      []int32
}

// New builds a CPU backend. Capacities above MaxCells are rejected.
func New(cfg sim.BackendConfig) (*Backend, error) {
	if cfg.Capacity <= 0 || cfg.Capacity > MaxCells {
		return nil, fmt.Errorf("cpu backend: capacity must be in [1, %d], got %d", MaxCells, cfg.Capacity)
	}
	return &Backend{
		tuning:         kernel.CPUTuning(),
		boundary:       kernel.Boundary{Radius: cfg.Boundary.Radius, Damping: cfg.Boundary.Damping},
		angularDamping: cfg.AngularDamping,
		grid:           spatial.NewGrid(2*cfg.Boundary.Radius, cfg.Partition.Resolution),
		neighbors:      make([]int32, 0, spatial.BucketCapacity*27),
	}, nil
}

// Name returns "cpu".
func (b *Backend) Name() string { return Name }

// Tuning returns the CPU tuning constants.
func (b *Backend) Tuning() kernel.Tuning { return b.tuning }

// Step runs one physics step over s.
func (b *Backend) Step(s *sim.Store, g *sim.Genome, dt float64) sim.StepStats {
	if s.CellCapacity() > MaxCells {
		panic(fmt.Sprintf("cpu backend: store capacity %d exceeds %d", s.CellCapacity(), MaxCells))
	}
	n := s.CellCount()
	var stats sim.StepStats

	if n < spatial.DirectThreshold {
		stats.Collisions = b.collideDirect(s, n)
	} else {
		stats.GridDropped = b.grid.Rebuild(s.Cells.Positions.X, s.Cells.Positions.Y, s.Cells.Positions.Z, n)
		stats.Collisions = b.collideGrid(s, n)
	}
	acc := s.Cells.Accelerations
	for i := 0; i < n; i++ {
		acc.Set(i, b.tuning.Damping.Apply(acc.At(i)))
	}

	stats.BondsEvaluated, stats.AdhesionEnergy, stats.Breaks = b.adhere(s, g)

	advanceLanes(&s.Cells, n, dt)
	stats.BoundaryHits = b.finish(s, n, dt)
	return stats
}

// collidePair accumulates the collision accelerations of one unordered pair.
func (b *Backend) collidePair(s *sim.Store, i, j int) bool {
	accI, accJ, ok := kernel.CollisionAccelerations(s.Body(i), s.Body(j), b.tuning)
	if !ok {
		return false
	}
	s.Cells.Accelerations.Add(i, accI)
	s.Cells.Accelerations.Add(j, accJ)
	return true
}

func (b *Backend) collideDirect(s *sim.Store, n int) int {
	hits := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if b.collidePair(s, i, j) {
				hits++
			}
		}
	}
	return hits
}

func (b *Backend) collideGrid(s *sim.Store, n int) int {
	maxRadius := 0.0
	for i := 0; i < n; i++ {
		maxRadius = max(maxRadius, s.Cells.Radii[i])
	}
	hits := 0
	for i := 0; i < n; i++ {
		b.neighbors = b.grid.Query(s.Cells.Positions.At(i), 2*maxRadius, b.neighbors[:0])
		for _, j := range b.neighbors {
			if int(j) <= i {
				continue
			}
			if b.collidePair(s, i, int(j)) {
				hits++
			}
		}
	}
	return hits
}

// adhere evaluates every active connection in index order.
func (b *Backend) adhere(s *sim.Store, g *sim.Genome) (int, float64, []sim.BondBreak) {
	cc := &s.Connections
	c := &s.Cells
	evaluated := 0
	energy := 0.0
	var breaks []sim.BondBreak
	for conn := 0; conn < s.ConnectionHighWater(); conn++ {
		if !cc.Active[conn] {
			continue
		}
		a, bb := int(cc.CellA[conn]), int(cc.CellB[conn])
		r := kernel.BondForces(s.Body(a), s.Body(bb), s.Frame(conn), g.BondParamsFor(cc.ModeIndices[conn]), b.tuning)
		if !r.Applied {
			continue
		}
		evaluated++
		energy += r.Energy
		c.Accelerations.Add(a, r.ForceA.Mul(1/c.Masses[a]))
		c.Accelerations.Add(bb, r.ForceB.Mul(1/c.Masses[bb]))
		c.Torques.Add(a, r.TorqueA)
		c.Torques.Add(bb, r.TorqueB)
		if sim.ExceedsBreakLimits(&g.Mode(int(cc.ModeIndices[conn])).Adhesion, r) {
			breaks = append(breaks, sim.BondBreak{Connection: conn, SpringForce: r.SpringForce, Stretch: r.Stretch})
		}
	}
	return evaluated, energy, breaks
}

// finish integrates rotation, applies the wall, ages cells and clears the accumulators.
func (b *Backend) finish(s *sim.Store, n int, dt float64) int {
	c := &s.Cells
	hits := 0
	for i := 0; i < n; i++ {
		omega := kernel.AdvanceAngular(c.AngularVelocities.At(i), c.Torques.At(i), c.Masses[i], c.Radii[i], dt, b.angularDamping)
		c.AngularVelocities.Set(i, omega)
		c.Orientations.Set(i, kernel.AdvanceOrientation(c.Orientations.At(i), omega, dt))

		pos, vel, hit := b.boundary.Apply(c.Positions.At(i), c.Velocities.At(i), c.Radii[i])
		if hit {
			c.Positions.Set(i, pos)
			c.Velocities.Set(i, vel)
			hits++
		}
		c.Ages[i] += dt
	}
	end := laneEnd(n)
	c.Accelerations.Zero(end)
	c.Torques.Zero(end)
	return hits
}
