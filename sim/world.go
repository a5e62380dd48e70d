package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
	"github.com/u0068/Biospheres-sub000/sim/trace"
)

// World owns a Store and the backend that steps it. Simulate is the only mutating entry
// point during a run; Store's AddCell/RemoveCell/AddConnection/RemoveConnection may be
// called between steps.
type World struct {
	cfg     WorldConfig
	store   *Store
	backend Backend
	rng     *PartitionedRNG
	metrics *Metrics
	trace   *trace.SimulationTrace
}

// NewWorld allocates an empty store and builds the configured backend.
func NewWorld(cfg WorldConfig) (*World, error) {
	if cfg.CellCapacity <= 0 {
		return nil, fmt.Errorf("cell capacity must be > 0, got %d", cfg.CellCapacity)
	}
	return NewWorldWithStore(cfg, NewStore(cfg.CellCapacity))
}

// NewWorldWithStore wraps an existing store, for example one returned by LoadScene. The
// configured capacity is replaced by the store's.
func NewWorldWithStore(cfg WorldConfig, store *Store) (*World, error) {
	cfg.CellCapacity = store.CellCapacity()
	if err := validateWorldConfig(cfg); err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg.Backend, cfg.BackendConfig())
	if err != nil {
		return nil, err
	}
	w := &World{
		cfg:     cfg,
		store:   store,
		backend: backend,
		rng:     NewPartitionedRNG(cfg.Seed),
		metrics: NewMetrics(),
	}
	if cfg.TraceLevel != "" && cfg.TraceLevel != string(trace.TraceLevelNone) {
		w.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)})
	}
	logrus.Infof("World: backend=%s capacity=%d boundary=%.2f grid=%d", backend.Name(), cfg.CellCapacity, cfg.Boundary.Radius, cfg.Partition.Resolution)
	return w, nil
}

func validateWorldConfig(cfg WorldConfig) error {
	if cfg.Boundary.Radius <= 0 || math.IsNaN(cfg.Boundary.Radius) || math.IsInf(cfg.Boundary.Radius, 0) {
		return fmt.Errorf("boundary radius must be a finite positive number, got %f", cfg.Boundary.Radius)
	}
	if cfg.Boundary.Damping < 0 || cfg.Boundary.Damping > 1 {
		return fmt.Errorf("boundary damping must be in [0, 1], got %f", cfg.Boundary.Damping)
	}
	if cfg.Partition.Resolution <= 0 {
		return fmt.Errorf("grid resolution must be > 0, got %d", cfg.Partition.Resolution)
	}
	if cfg.AngularDamping < 0 || cfg.AngularDamping > 1 {
		return fmt.Errorf("angular damping must be in [0, 1], got %f", cfg.AngularDamping)
	}
	if cfg.CompactionThreshold < 0 || cfg.CompactionThreshold > 1 {
		return fmt.Errorf("compaction threshold must be in [0, 1], got %f", cfg.CompactionThreshold)
	}
	if !trace.IsValidTraceLevel(cfg.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, events", cfg.TraceLevel)
	}
	return nil
}

// Config returns the configuration the world was built with.
func (w *World) Config() WorldConfig { return w.cfg }

// Store returns the underlying store.
func (w *World) Store() *Store { return w.store }

// Backend returns the backend stepping the store.
func (w *World) Backend() Backend { return w.backend }

// Metrics returns the run metrics.
func (w *World) Metrics() *Metrics { return w.metrics }

// Trace returns the event trace, or nil when tracing is off.
func (w *World) Trace() *trace.SimulationTrace { return w.trace }

// RNG returns the world's partitioned RNG.
func (w *World) RNG() *PartitionedRNG { return w.rng }

// Simulate advances the world by dt under genome g: one backend physics step, then bond
// breaking, then division and inheritance, then compaction when fragmentation exceeds the
// configured threshold. g is never mutated.
func (w *World) Simulate(dt float64, g *Genome) {
	stats := w.backend.Step(w.store, g, dt)

	m := w.metrics
	m.Steps++
	m.SimTime += dt
	m.Collisions += int64(stats.Collisions)
	m.GridDropped += int64(stats.GridDropped)
	m.BoundaryHits += int64(stats.BoundaryHits)
	m.AdhesionEnergy = stats.AdhesionEnergy
	if stats.GridDropped > 0 {
		logrus.Debugf("step %d: %d grid insertions refused (bucket capacity)", m.Steps, stats.GridDropped)
	}

	w.breakBonds(stats.Breaks)
	w.divideReady(g)

	if w.cfg.CompactionThreshold > 0 && w.store.Fragmentation() > w.cfg.CompactionThreshold {
		moved := w.store.CompactConnections()
		m.Compactions++
		logrus.Debugf("step %d: compacted connections, %d moved", m.Steps, moved)
	}

	m.KineticEnergy = KineticEnergy(w.store)
	if n := w.store.CellCount(); n > m.PeakCells {
		m.PeakCells = n
	}
}

func (w *World) breakBonds(breaks []BondBreak) {
	for _, b := range breaks {
		cc := &w.store.Connections
		cellA, cellB := int(cc.CellA[b.Connection]), int(cc.CellB[b.Connection])
		if err := w.store.RemoveConnection(b.Connection); err != nil {
			logrus.Debugf("bond break %d: %v", b.Connection, err)
			continue
		}
		w.metrics.BondsBroken++
		if w.trace.Enabled() {
			w.trace.RecordBreak(trace.BondBreakRecord{
				Step:        w.metrics.Steps,
				Connection:  b.Connection,
				CellA:       cellA,
				CellB:       cellB,
				SpringForce: b.SpringForce,
				Stretch:     b.Stretch,
			})
		}
	}
}

// SpawnRandom adds n cells of the genome's initial mode at uniformly random positions
// inside the spawn sphere, with random orientations and a small age jitter. All draws come
// from the spawn RNG subsystem.
func (w *World) SpawnRandom(n int, g *Genome) error {
	rng := w.rng.ForSubsystem(SubsystemSpawn)
	radius := w.cfg.SpawnRadius
	if radius <= 0 {
		radius = w.cfg.Boundary.Radius / 2
	}
	mode := g.Mode(g.InitialMode)
	for k := 0; k < n; k++ {
		var pos mgl64.Vec3
		for {
			pos = mgl64.Vec3{2*rng.Float64() - 1, 2*rng.Float64() - 1, 2*rng.Float64() - 1}
			if pos.Dot(pos) <= 1 {
				break
			}
		}
		axis := qmath.Normalize(mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}, qmath.AxisY)
		angle := 2 * math.Pi * rng.Float64()
		age := 0.0
		if mode.Divides() {
			age = 0.1 * mode.SplitInterval * rng.Float64()
		}
		_, err := w.store.AddCell(CellParams{
			Position:    pos.Mul(radius),
			Orientation: qmath.FromAxisAngle(axis, angle),
			Mass:        1.0,
			Age:         age,
			ModeIndex:   g.InitialMode,
			CellType:    mode.CellType,
			Color:       mode.ColorVec(),
		})
		if err != nil {
			return fmt.Errorf("spawn cell %d of %d: %w", k, n, err)
		}
	}
	return nil
}

// MutateGenome returns a mutated copy of g drawn from the mutation RNG subsystem.
func (w *World) MutateGenome(g *Genome, strength float64) *Genome {
	return g.Mutate(w.rng.ForSubsystem(SubsystemMutation), strength)
}

// CellVisual is the read-only per-cell data a renderer consumes.
type CellVisual struct {
	PositionRadius mgl64.Vec4 // xyz position, w radius
	Orientation    mgl64.Quat
	Color          mgl64.Vec3
}

// ExtractVisuals fills dst with one entry per active cell, reusing its capacity.
func (w *World) ExtractVisuals(dst []CellVisual) []CellVisual {
	dst = dst[:0]
	c := &w.store.Cells
	for i := 0; i < w.store.CellCount(); i++ {
		p := c.Positions.At(i)
		dst = append(dst, CellVisual{
			PositionRadius: mgl64.Vec4{p.X(), p.Y(), p.Z(), c.Radii[i]},
			Orientation:    c.Orientations.At(i),
			Color:          c.Colors.At(i),
		})
	}
	return dst
}
