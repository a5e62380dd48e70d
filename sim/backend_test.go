package sim

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u0068/Biospheres-sub000/sim/kernel"
)

func TestBackendNames_IncludesRegisteredBackends(t *testing.T) {
	assert.Equal(t, []string{"cpu", "gpu"}, BackendNames())
}

func TestRegisterBackend_Duplicate_Panics(t *testing.T) {
	assert.PanicsWithValue(t, `RegisterBackend: backend "cpu" already registered`, func() {
		RegisterBackend("cpu", nil)
	})
}

func TestNewBackend_Unknown_ListsValidNames(t *testing.T) {
	_, err := NewBackend("tpu", DefaultWorldConfig().BackendConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cpu")
	assert.Contains(t, err.Error(), "gpu")
}

func TestExceedsBreakLimits(t *testing.T) {
	breakable := AdhesionSettings{CanBreak: true, BreakForce: 10, BreakLength: 2}
	tests := []struct {
		name     string
		settings AdhesionSettings
		result   kernel.BondResult
		want     bool
	}{
		{"unbreakable", AdhesionSettings{BreakForce: 1}, kernel.BondResult{Applied: true, SpringForce: 50}, false},
		{"not applied", breakable, kernel.BondResult{SpringForce: 50}, false},
		{"below limits", breakable, kernel.BondResult{Applied: true, SpringForce: 9, Stretch: 1}, false},
		{"compression over force", breakable, kernel.BondResult{Applied: true, SpringForce: -11}, true},
		{"stretch over length", breakable, kernel.BondResult{Applied: true, SpringForce: 1, Stretch: 2.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExceedsBreakLimits(&tt.settings, tt.result))
		})
	}
}

func TestKineticEnergy_TranslationAndRotation(t *testing.T) {
	s := NewStore(2)
	_, err := s.AddCell(CellParams{Mass: 1, Velocity: mgl64.Vec3{2, 0, 0}, AngularVelocity: mgl64.Vec3{0, 0, 1}})
	require.NoError(t, err)

	inertia := kernel.MomentOfInertia(1, 1)
	assert.InDelta(t, 2.0+0.5*inertia, KineticEnergy(s), 1e-12)
}

func TestGenomeBondParamsFor_FallsBackToInitialMode(t *testing.T) {
	g := DefaultGenome()
	assert.Equal(t, g.Modes[0].Adhesion.BondParams(), g.BondParamsFor(7))
}
