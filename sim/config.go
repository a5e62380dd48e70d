package sim

// BoundaryConfig groups the spherical world wall parameters.
type BoundaryConfig struct {
	Radius  float64 // wall radius around the origin (must be > 0)
	Damping float64 // velocity factor applied after an outward bounce (default 0.8)
}

// PartitionConfig groups spatial grid parameters.
type PartitionConfig struct {
	Resolution int // buckets per axis (must be > 0)
}

// WorldConfig groups everything NewWorld needs besides the genome.
type WorldConfig struct {
	CellCapacity        int     // fixed cell arena size (must be > 0)
	Backend             string  // registered backend name: "cpu" or "gpu"
	Workers             int     // gpu workgroup goroutines; 0 means GOMAXPROCS
	Seed                int64   // master seed for PartitionedRNG
	AngularDamping      float64 // per-step angular velocity factor (default 0.98)
	CompactionThreshold float64 // free fraction below the high-water mark that triggers compaction (default 0.25)
	SpawnRadius         float64 // radius of the sphere SpawnRandom fills (default half the boundary)
	TraceLevel          string  // "none" (default) or "events"
	Boundary            BoundaryConfig
	Partition           PartitionConfig
}

// DefaultBoundaryConfig returns a 50-unit wall with a mildly inelastic bounce.
func DefaultBoundaryConfig() BoundaryConfig {
	return BoundaryConfig{Radius: 50, Damping: 0.8}
}

// DefaultPartitionConfig returns a 32^3 grid.
func DefaultPartitionConfig() PartitionConfig {
	return PartitionConfig{Resolution: 32}
}

// DefaultWorldConfig returns a CPU-backed world sized for previews.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		CellCapacity:        256,
		Backend:             "cpu",
		Seed:                42,
		AngularDamping:      0.98,
		CompactionThreshold: 0.25,
		TraceLevel:          "none",
		Boundary:            DefaultBoundaryConfig(),
		Partition:           DefaultPartitionConfig(),
	}
}

// BackendConfig returns the subset of the world configuration a backend consumes.
func (c WorldConfig) BackendConfig() BackendConfig {
	return BackendConfig{
		Capacity:       c.CellCapacity,
		Workers:        c.Workers,
		AngularDamping: c.AngularDamping,
		Boundary:       c.Boundary,
		Partition:      c.Partition,
	}
}
