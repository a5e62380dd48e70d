package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u0068/Biospheres-sub000/sim"
)

func TestRegistered(t *testing.T) {
	b, err := sim.NewBackend(Name, testConfig(16))
	require.NoError(t, err)
	assert.Equal(t, Name, b.Name())
	assert.Contains(t, sim.BackendNames(), Name)
}
