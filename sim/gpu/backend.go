// Package gpu implements the compute-pipeline backend. A step uploads the store into a
// rotating set of typed frames, dispatches the force, integrate and boundary passes over
// workgroups of cells in parallel, and downloads the final frame. Each invocation gathers
// the contributions to its own cell and writes only that cell, so no pass needs atomics.
package gpu

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/u0068/Biospheres-sub000/sim"
	"github.com/u0068/Biospheres-sub000/sim/kernel"
	"github.com/u0068/Biospheres-sub000/sim/spatial"
)

// Name is the registry name of this backend.
const Name = "gpu"

// partial is the reduction slot owned by one workgroup.
type partial struct {
	collisions   int
	bonds        int
	boundaryHits int
	energy       float64
	breaks       []sim.BondBreak
	neighbors    []int32
}

// Backend is the parallel physics backend.
type Backend struct {
	tuning         kernel.Tuning
	boundary       kernel.Boundary
	angularDamping float64
	workers        int
	capacity       int

	ring   *ring
	acc    accum
	mass   []float64
	radius []float64
	grid   *spatial.Grid
	direct bool

	partials []partial
}

// New allocates buffers for cfg.Capacity cells.
func New(cfg sim.BackendConfig) (*Backend, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("gpu backend: capacity must be > 0, got %d", cfg.Capacity)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := cfg.Capacity
	return &Backend{
		tuning:         kernel.GPUTuning(),
		boundary:       kernel.Boundary{Radius: cfg.Boundary.Radius, Damping: cfg.Boundary.Damping},
		angularDamping: cfg.AngularDamping,
		workers:        workers,
		capacity:       n,
		ring:           newRing(n),
		acc:            accum{acc: make([]mgl64.Vec3, n), torque: make([]mgl64.Vec3, n)},
		mass:           make([]float64, n),
		radius:         make([]float64, n),
		grid:           spatial.NewGrid(2*cfg.Boundary.Radius, cfg.Partition.Resolution),
		partials:       make([]partial, groups(n)),
	}, nil
}

// Name returns "gpu".
func (b *Backend) Name() string { return Name }

// Tuning returns the GPU reference tuning constants.
func (b *Backend) Tuning() kernel.Tuning { return b.tuning }

// Workers returns the maximum number of concurrently running workgroups.
func (b *Backend) Workers() int { return b.workers }

// Step runs one physics step over s.
func (b *Backend) Step(s *sim.Store, g *sim.Genome, dt float64) sim.StepStats {
	if s.CellCapacity() > b.capacity {
		panic(fmt.Sprintf("gpu backend: store capacity %d exceeds buffer capacity %d", s.CellCapacity(), b.capacity))
	}
	n := s.CellCount()
	var stats sim.StepStats

	b.upload(s, n)
	b.direct = n < spatial.DirectThreshold
	if !b.direct {
		stats.GridDropped = b.grid.Rebuild(s.Cells.Positions.X, s.Cells.Positions.Y, s.Cells.Positions.Z, n)
	}
	maxRadius := 0.0
	for i := 0; i < n; i++ {
		maxRadius = max(maxRadius, b.radius[i])
	}
	for k := range b.partials[:groups(n)] {
		p := &b.partials[k]
		*p = partial{breaks: p.breaks[:0], neighbors: p.neighbors[:0]}
	}

	read := b.ring.Read()
	dispatch(b.workers, n, func(group, lo, hi int) {
		b.forcePass(s, g, read, AccumWriter{&b.acc}, &b.partials[group], lo, hi, 2*maxRadius)
	})
	write := b.ring.Write()
	dispatch(b.workers, n, func(_, lo, hi int) {
		b.integratePass(read, AccumReader{&b.acc}, write, lo, hi, dt)
	})
	b.ring.Rotate()

	read, write = b.ring.Read(), b.ring.Write()
	dispatch(b.workers, n, func(group, lo, hi int) {
		b.boundaryPass(read, write, &b.partials[group], lo, hi)
	})
	b.ring.Rotate()

	b.download(s, n, dt)

	for k := range b.partials[:groups(n)] {
		p := &b.partials[k]
		stats.Collisions += p.collisions
		stats.BondsEvaluated += p.bonds
		stats.BoundaryHits += p.boundaryHits
		stats.AdhesionEnergy += p.energy
		stats.Breaks = append(stats.Breaks, p.breaks...)
	}
	sort.Slice(stats.Breaks, func(i, j int) bool { return stats.Breaks[i].Connection < stats.Breaks[j].Connection })
	return stats
}

// upload copies the store's dynamic state into the next frame and makes it readable.
func (b *Backend) upload(s *sim.Store, n int) {
	c := &s.Cells
	w := b.ring.Write()
	for i := 0; i < n; i++ {
		w.Set(i, c.Positions.At(i), c.Velocities.At(i), c.AngularVelocities.At(i), c.Orientations.At(i))
		b.mass[i] = c.Masses[i]
		b.radius[i] = c.Radii[i]
	}
	b.ring.Rotate()
}

// download copies the final frame back, ages every cell by dt and clears the store's
// accumulators.
func (b *Backend) download(s *sim.Store, n int, dt float64) {
	c := &s.Cells
	r := b.ring.Read()
	for i := 0; i < n; i++ {
		c.Positions.Set(i, r.Position(i))
		c.Velocities.Set(i, r.Velocity(i))
		c.AngularVelocities.Set(i, r.AngularVelocity(i))
		c.Orientations.Set(i, r.Orientation(i))
		c.Ages[i] += dt
	}
	c.Accelerations.Zero(n)
	c.Torques.Zero(n)
}

func (b *Backend) body(r ReadView, i int) kernel.Body {
	return kernel.Body{
		Position:        r.Position(i),
		Velocity:        r.Velocity(i),
		AngularVelocity: r.AngularVelocity(i),
		Orientation:     r.Orientation(i),
		Mass:            b.mass[i],
		Radius:          b.radius[i],
	}
}
