package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u0068/Biospheres-sub000/sim"
)

const watchedGenome = `
name: watched
modes:
  - name: only
    split_interval: 0
`

func TestGenomeWatcher_BurstOfWritesYieldsOneChange(t *testing.T) {
	// GIVEN a watched genome file with a sibling file in the same directory
	dir := t.TempDir()
	path := filepath.Join(dir, "genome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedGenome), 0o644))
	gw, err := newGenomeWatcher(path, 50*time.Millisecond)
	require.NoError(t, err)
	defer gw.Close()

	// WHEN the sibling changes and the genome is written several times in quick succession
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(watchedGenome), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	// THEN exactly one settled change for the genome is reported
	select {
	case got := <-gw.Changes:
		abs, _ := filepath.Abs(path)
		assert.Equal(t, abs, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case got := <-gw.Changes:
		t.Fatalf("unexpected second change %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestGenomeWatcher_CloseEndsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genome.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchedGenome), 0o644))
	gw, err := newGenomeWatcher(path, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, gw.Close())
	assert.NoError(t, gw.Close(), "second close is a no-op")

	select {
	case _, ok := <-gw.Changes:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("changes channel not closed")
	}
}

func TestNewGenomeWatcher_MissingDirectory(t *testing.T) {
	_, err := newGenomeWatcher(filepath.Join(t.TempDir(), "no", "such", "genome.yaml"), watchDebounce)
	assert.Error(t, err)
}

func TestPreview_ClampsToCPUBackend(t *testing.T) {
	// GIVEN options asking for a large gpu world
	o := testOptions()
	o.Config.Backend = "gpu"
	o.Config.CellCapacity = 4096
	o.Spawn = 3
	o.Steps = 5
	g, err := sim.ParseGenome([]byte(watchedGenome))
	require.NoError(t, err)

	// WHEN a preview runs with the reloaded genome
	out := captureStdout(t, func() {
		err = preview(o, g)
	})

	// THEN it runs on the cpu backend without touching the caller's options
	require.NoError(t, err)
	assert.Contains(t, out, "Cells                : 3")
	assert.Equal(t, "gpu", o.Config.Backend)
	assert.Equal(t, "default", o.Genome.Name)
}
