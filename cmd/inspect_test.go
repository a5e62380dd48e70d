package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u0068/Biospheres-sub000/sim"
)

func bondedScene(t *testing.T) *sim.Store {
	t.Helper()
	s := sim.NewStore(4)
	a, err := s.AddCell(sim.CellParams{Mass: 1})
	require.NoError(t, err)
	b, err := s.AddCell(sim.CellParams{Mass: 1, Position: mgl64.Vec3{3, 0, 0}})
	require.NoError(t, err)
	_, err = s.AddConnection(a, b, sim.ConnectionParams{
		AnchorA: mgl64.Vec3{1, 0, 0},
		AnchorB: mgl64.Vec3{-1, 0, 0},
	})
	require.NoError(t, err)
	return s
}

func TestPrintIntegrityReport_Clean(t *testing.T) {
	s := bondedScene(t)
	var buf bytes.Buffer

	printIntegrityReport(&buf, s, s.ValidateIntegrity())

	out := buf.String()
	assert.Contains(t, out, "Cells                : 2 / 4")
	assert.Contains(t, out, "Connections          : 1 active")
	assert.Contains(t, out, "Status               : clean")
	assert.NotContains(t, out, "ERROR")
}

func TestPrintIntegrityReport_ListsFindings(t *testing.T) {
	s := bondedScene(t)
	r := &sim.IntegrityReport{
		Errors:   []string{"connection 0: anchor A not unit"},
		Warnings: []string{"cell 1 slot 2: inactive connection 5"},
	}
	var buf bytes.Buffer

	printIntegrityReport(&buf, s, r)

	out := buf.String()
	assert.Contains(t, out, "ERROR   connection 0: anchor A not unit")
	assert.Contains(t, out, "WARNING cell 1 slot 2")
	assert.Contains(t, out, "Status               : corrupt")
}

func TestSceneFile_RoundTrip(t *testing.T) {
	s := bondedScene(t)
	path := filepath.Join(t.TempDir(), "pair.scene")

	require.NoError(t, saveSceneFile(path, s))
	loaded, err := loadSceneFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, loaded.CellCount())
	assert.Equal(t, 1, loaded.ConnectionCount())
}

func TestLoadSceneFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.scene")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a scene file at all"), 0o644))

	_, err := loadSceneFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, sim.ErrBadSceneHeader)
}
