package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
	"github.com/u0068/Biospheres-sub000/sim/trace"
)

func TestClassifyZone(t *testing.T) {
	tests := []struct {
		deg  float64
		want Zone
	}{
		{0, ZoneA},
		{45, ZoneA},
		{87.9, ZoneA},
		{88.5, ZoneC},
		{90, ZoneC},
		{91.5, ZoneC},
		{92.1, ZoneB},
		{180, ZoneB},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyZone(mgl64.DegToRad(tt.deg)), "angle %v", tt.deg)
	}
}

// dividingPair places a parent ready to split along +Y at the origin and a neighbor at
// restLength + 2 along dir, bonded with anchors pointing at each other.
func dividingPair(t *testing.T, dir mgl64.Vec3) (*World, *Genome) {
	t.Helper()
	cfg := DefaultWorldConfig()
	cfg.CellCapacity = 8
	cfg.TraceLevel = string(trace.TraceLevelEvents)
	w, err := NewWorld(cfg)
	require.NoError(t, err)

	g := DefaultGenome()
	mode := g.Mode(0)
	s := w.Store()
	parent, err := s.AddCell(CellParams{Mass: 1, Age: mode.SplitInterval + 0.05})
	require.NoError(t, err)
	neighbor := addTestCell(t, s, dir.Mul(mode.Adhesion.RestLength+2))
	bondAlongAxis(t, s, parent, neighbor)
	return w, g
}

func TestDivide_EquatorialBond_DuplicatedToBothChildren(t *testing.T) {
	// GIVEN a bond perpendicular to the split axis
	w, g := dividingPair(t, qmath.AxisX)
	s := w.Store()

	// WHEN the parent divides
	w.Simulate(0.01, g)

	// THEN both children hold a bond to the neighbor and to each other
	require.Equal(t, 3, s.CellCount())
	childA, neighbor, childB := 0, 1, 2
	m := w.Metrics()
	assert.Equal(t, 1, m.Divisions)
	assert.Equal(t, 1, m.BondsRemoved)
	assert.Equal(t, 3, m.BondsCreated)
	assert.Zero(t, m.InheritanceFailures)
	assert.Equal(t, 3, s.ConnectionCount(), "original bond no longer active")

	ca, ok := s.ConnectionBetween(childA, neighbor)
	require.True(t, ok)
	cb, ok := s.ConnectionBetween(childB, neighbor)
	require.True(t, ok)
	_, ok = s.ConnectionBetween(childA, childB)
	assert.True(t, ok)
	assert.Equal(t, ZoneC, s.Connections.ZoneA[ca])
	assert.Equal(t, ZoneC, s.Connections.ZoneA[cb])

	// Child anchors point from each child toward the neighbor's reconstructed position.
	toNeighborA := s.Cells.Positions.At(neighbor).Sub(s.Cells.Positions.At(childA)).Normalize()
	assert.InDelta(t, 1.0, s.Connections.AnchorA.At(ca).Dot(toNeighborA), 1e-3)
	assert.Greater(t, s.Cells.Positions.At(childA).Y(), s.Cells.Positions.At(childB).Y())

	report := s.ValidateIntegrity()
	assert.True(t, report.Clean(), "errors=%v warnings=%v", report.Errors, report.Warnings)

	summary := trace.Summarize(w.Trace())
	assert.Equal(t, 1, summary.CompletedDivisions)
	assert.Equal(t, 3, summary.InheritedBonds)
	assert.Equal(t, 2, summary.ZoneDistribution["C"])
	assert.Equal(t, 1, summary.ZoneDistribution["-"], "sibling bond has no parent zone")
}

func TestDivide_PolarBond_GoesToOneChild(t *testing.T) {
	tests := []struct {
		name     string
		dir      mgl64.Vec3
		keeper   int
		other    int
		wantZone Zone
	}{
		{"along split axis goes to child A", qmath.AxisY, 0, 2, ZoneA},
		{"against split axis goes to child B", qmath.AxisY.Mul(-1), 2, 0, ZoneB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, g := dividingPair(t, tt.dir)
			s := w.Store()

			w.Simulate(0.01, g)

			require.Equal(t, 3, s.CellCount())
			c, ok := s.ConnectionBetween(tt.keeper, 1)
			require.True(t, ok)
			assert.Equal(t, tt.wantZone, s.Connections.ZoneA[c])
			_, ok = s.ConnectionBetween(tt.other, 1)
			assert.False(t, ok)
			assert.Equal(t, 2, s.ConnectionCount())
		})
	}
}

func TestDivide_ChildrenKeepParentMassAndSplitAge(t *testing.T) {
	w := testWorld(t, "cpu", 4)
	g := DefaultGenome()
	interval := g.Mode(0).SplitInterval
	s := w.Store()
	_, err := s.AddCell(CellParams{Mass: 2, Age: interval + 0.05, Velocity: mgl64.Vec3{0.1, 0, 0}})
	require.NoError(t, err)

	w.Simulate(0.01, g)

	require.Equal(t, 2, s.CellCount())
	for i := 0; i < 2; i++ {
		assert.Equal(t, 2.0, s.Cells.Masses[i])
		assert.InDelta(t, math.Cbrt(2), s.Cells.Radii[i], 1e-12)
		assert.InDelta(t, 0.1, s.Cells.Velocities.At(i).X(), 1e-12)
	}
	assert.InDelta(t, 0.06, s.Cells.Ages[0], 1e-9)
	assert.InDelta(t, 0.06+ChildBAgeOffset, s.Cells.Ages[1], 1e-9)
	assert.InDelta(t, 2*SplitOffset, s.Cells.Positions.At(0).Sub(s.Cells.Positions.At(1)).Len(), 1e-6)
	assert.True(t, qmath.IsUnitQuat(s.Cells.Orientations.At(1)))
	_, ok := s.ConnectionBetween(0, 1)
	assert.True(t, ok, "sibling bond")
}

func TestDivide_ArenaFull_Skipped(t *testing.T) {
	w := testWorld(t, "cpu", 1)
	g := DefaultGenome()
	s := w.Store()
	_, err := s.AddCell(CellParams{Mass: 1, Age: g.Mode(0).SplitInterval + 1})
	require.NoError(t, err)

	w.Simulate(0.01, g)

	assert.Equal(t, 1, s.CellCount())
	assert.Equal(t, 1, w.Metrics().SkippedDivisions)
	assert.Zero(t, w.Metrics().Divisions)
}

func TestDivide_NeighborSlotsFull_DivisionCompletesWithoutThatBond(t *testing.T) {
	// GIVEN a neighbor whose every slot is taken, one of them by the dividing parent
	w := testWorld(t, "cpu", 32)
	g := DefaultGenome()
	g.Modes[0].ParentMakeAdhesion = false
	s := w.Store()
	rest := g.Mode(0).Adhesion.RestLength + 2
	parent, err := s.AddCell(CellParams{Mass: 1, Age: g.Mode(0).SplitInterval + 0.05})
	require.NoError(t, err)
	neighbor := addTestCell(t, s, mgl64.Vec3{rest, 0, 0})
	bondAlongAxis(t, s, parent, neighbor)
	for k := 1; k < MaxAdhesionsPerCell; k++ {
		angle := math.Pi * float64(k) / MaxAdhesionsPerCell
		pos := mgl64.Vec3{rest + rest*math.Cos(angle-math.Pi/2), 0, rest * math.Sin(angle-math.Pi/2)}
		other := addTestCell(t, s, pos)
		bondAlongAxis(t, s, neighbor, other)
	}
	require.Equal(t, MaxAdhesionsPerCell, s.SlotCount(neighbor))

	// WHEN the parent divides across the equatorial bond
	w.Simulate(0.01, g)

	// THEN one child inherits, the other fails with a counted failure, and the division stands
	m := w.Metrics()
	assert.Equal(t, 1, m.Divisions)
	assert.Equal(t, 1, m.InheritanceFailures)
	assert.Equal(t, MaxAdhesionsPerCell, s.SlotCount(neighbor))
	childB := s.CellCount() - 1
	_, ok := s.ConnectionBetween(parent, neighbor)
	assert.True(t, ok)
	_, ok = s.ConnectionBetween(childB, neighbor)
	assert.False(t, ok)
	assert.True(t, s.ValidateIntegrity().OK())
}

func TestDivide_ChildrenNotRevisitedInSamePass(t *testing.T) {
	w := testWorld(t, "cpu", 8)
	g := DefaultGenome()
	g.Modes[0].SplitInterval = 0.001
	s := w.Store()
	addTestCell(t, s, mgl64.Vec3{})

	w.Simulate(0.01, g)

	assert.Equal(t, 2, s.CellCount())
}
