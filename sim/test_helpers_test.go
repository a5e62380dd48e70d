package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

// testWorld builds a world on the named backend with a boundary far enough away that it
// never interferes with small scenarios.
func testWorld(t *testing.T, backend string, capacity int) *World {
	t.Helper()
	cfg := DefaultWorldConfig()
	cfg.Backend = backend
	cfg.CellCapacity = capacity
	cfg.Workers = 2
	w, err := NewWorld(cfg)
	require.NoError(t, err)
	return w
}

// addTestCell appends a unit-mass cell at pos with identity orientation.
func addTestCell(t *testing.T, s *Store, pos mgl64.Vec3) int {
	t.Helper()
	i, err := s.AddCell(CellParams{Position: pos, Mass: 1})
	require.NoError(t, err)
	return i
}

// bondAlongAxis connects a and b with anchors pointing at each other along the current
// center line.
func bondAlongAxis(t *testing.T, s *Store, a, b int) int {
	t.Helper()
	dir := s.Cells.Positions.At(b).Sub(s.Cells.Positions.At(a)).Normalize()
	c, err := s.AddConnection(a, b, ConnectionParams{AnchorA: dir, AnchorB: dir.Mul(-1)})
	require.NoError(t, err)
	return c
}

// nonDividingGenome returns the default genome with division disabled and the given bond
// settings.
func nonDividingGenome(adhesion AdhesionSettings) *Genome {
	g := DefaultGenome()
	g.Modes[0].SplitInterval = 0
	g.Modes[0].Adhesion = adhesion
	return g
}

// snapshotBits copies the dynamic cell columns of s for bitwise comparison.
func snapshotBits(s *Store) []float64 {
	n := s.CellCount()
	c := &s.Cells
	var out []float64
	for _, col := range [][]float64{
		c.Positions.X, c.Positions.Y, c.Positions.Z,
		c.Velocities.X, c.Velocities.Y, c.Velocities.Z,
		c.AngularVelocities.X, c.AngularVelocities.Y, c.AngularVelocities.Z,
		c.Orientations.W, c.Orientations.X, c.Orientations.Y, c.Orientations.Z,
		c.Ages, c.Masses,
	} {
		out = append(out, col[:n]...)
	}
	return out
}
