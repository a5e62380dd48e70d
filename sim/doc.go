// Package sim provides the cell physics core for Biospheres.
//
// # Reading Guide
//
// Start with these three files to understand the simulation:
//   - store.go: the columnar cell and adhesion arena and the connection manager
//   - world.go: the step pipeline (physics, bond breaking, division, compaction)
//   - division.go: splitting a cell and redistributing its bonds by zone
//
// # Architecture
//
// The sim package defines the store, genome, world and backend interface; the physics
// lives in sub-packages:
//   - sim/kernel/: per-pair and per-cell force math shared by both backends
//   - sim/qmath/: quaternion and vector helpers over mathgl
//   - sim/spatial/: uniform grid broad phase
//   - sim/cpu/: sequential preview backend (at most 256 cells, bit-reproducible)
//   - sim/gpu/: workgroup-parallel backend over triple-buffered frames
//   - sim/crossval/: runs both backends side by side and reports divergence
//   - sim/trace/: division, inheritance and bond-break event recording
//
// Backends register themselves via init() functions (RegisterBackend); importing sim
// alone registers nothing.
//
// # Key Interfaces
//
//   - Backend: one physics step over a Store (collision, adhesion, integration, boundary)
//   - Genome: read-only per-mode division and bond parameters, loaded from strict YAML
//
// Scenes are saved and restored with SaveScene and LoadScene.
package sim
