// Tracks run-wide counters such as divisions, bond churn and step energies.

package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Metrics aggregates statistics about the simulation
// for final reporting and cross-run comparison.
type Metrics struct {
	Steps   int64   // Number of completed Simulate calls
	SimTime float64 // Sum of dt over all steps

	Divisions        int // Completed divisions
	SkippedDivisions int // Divisions refused because the cell arena was full
	PeakCells        int // Max number of simultaneously active cells

	BondsCreated        int // Connections created by inheritance or child-to-child bonding
	BondsRemoved        int // Parent connections deactivated during division
	BondsBroken         int // Connections removed for exceeding break limits
	InheritanceFailures int // Bond reassignments refused by the connection manager
	Compactions         int // Connection compaction passes

	Collisions     int64 // Sum of overlapping pairs resolved
	GridDropped    int64 // Sum of refused grid insertions
	BoundaryHits   int64 // Sum of wall contacts
	KineticEnergy  float64 // After the last step
	AdhesionEnergy float64 // Spring energy evaluated during the last step
}

// NewMetrics returns zeroed metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// MetricsOutput is the JSON form written by SaveResults.
type MetricsOutput struct {
	Backend             string  `json:"backend"`
	Seed                int64   `json:"seed"`
	Steps               int64   `json:"steps"`
	SimTime             float64 `json:"sim_time"`
	Cells               int     `json:"cells"`
	Connections         int     `json:"connections"`
	PeakCells           int     `json:"peak_cells"`
	Divisions           int     `json:"divisions"`
	SkippedDivisions    int     `json:"skipped_divisions"`
	BondsCreated        int     `json:"bonds_created"`
	BondsRemoved        int     `json:"bonds_removed"`
	BondsBroken         int     `json:"bonds_broken"`
	InheritanceFailures int     `json:"inheritance_failures"`
	Compactions         int     `json:"compactions"`
	Collisions          int64   `json:"collisions"`
	GridDropped         int64   `json:"grid_dropped"`
	BoundaryHits        int64   `json:"boundary_hits"`
	KineticEnergy       float64 `json:"kinetic_energy"`
	AdhesionEnergy      float64 `json:"adhesion_energy"`
}

// Output assembles the JSON form for a world in its current state.
func (m *Metrics) Output(backend string, seed int64, cells, connections int) MetricsOutput {
	return MetricsOutput{
		Backend:             backend,
		Seed:                seed,
		Steps:               m.Steps,
		SimTime:             m.SimTime,
		Cells:               cells,
		Connections:         connections,
		PeakCells:           m.PeakCells,
		Divisions:           m.Divisions,
		SkippedDivisions:    m.SkippedDivisions,
		BondsCreated:        m.BondsCreated,
		BondsRemoved:        m.BondsRemoved,
		BondsBroken:         m.BondsBroken,
		InheritanceFailures: m.InheritanceFailures,
		Compactions:         m.Compactions,
		Collisions:          m.Collisions,
		GridDropped:         m.GridDropped,
		BoundaryHits:        m.BoundaryHits,
		KineticEnergy:       m.KineticEnergy,
		AdhesionEnergy:      m.AdhesionEnergy,
	}
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(cells, connections int) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Steps                : %d (t=%.4f)\n", m.Steps, m.SimTime)
	fmt.Printf("Cells                : %d (peak %d)\n", cells, m.PeakCells)
	fmt.Printf("Connections          : %d\n", connections)
	fmt.Printf("Divisions            : %d (skipped %d)\n", m.Divisions, m.SkippedDivisions)
	fmt.Printf("Bonds                : +%d -%d broken %d\n", m.BondsCreated, m.BondsRemoved, m.BondsBroken)
	if m.InheritanceFailures > 0 {
		fmt.Printf("Inheritance Failures : %d\n", m.InheritanceFailures)
	}
	if m.Steps > 0 {
		fmt.Printf("Avg Collisions/Step  : %.2f\n", float64(m.Collisions)/float64(m.Steps))
	}
	if m.GridDropped > 0 {
		fmt.Printf("Grid Dropped Inserts : %d\n", m.GridDropped)
	}
	fmt.Printf("Kinetic Energy       : %.6f\n", m.KineticEnergy)
	fmt.Printf("Adhesion Energy      : %.6f\n", m.AdhesionEnergy)
}

// SaveResults writes out as indented JSON to path.
func SaveResults(out MetricsOutput, path string) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing metrics %s: %w", path, err)
	}
	logrus.Debugf("Successfully wrote metrics to '%s'", path)
	return nil
}
