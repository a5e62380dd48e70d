package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/u0068/Biospheres-sub000/sim"
)

// Scenario is a scenario YAML document: world settings, the genome to grow and the cells
// placed before the first step.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Scenario struct {
	Name   string        `yaml:"name"`
	Genome string        `yaml:"genome"` // genome YAML path, relative to the scenario file
	World  WorldSettings `yaml:"world"`
	Spawn  int           `yaml:"spawn"` // random cells added after the explicit ones
	Cells  []CellSpec    `yaml:"cells"`
}

// WorldSettings mirrors the run flags. Zero values keep the flag defaults.
type WorldSettings struct {
	Capacity       int     `yaml:"capacity"`
	WorldRadius    float64 `yaml:"world_radius"`
	GridResolution int     `yaml:"grid_resolution"`
	Backend        string  `yaml:"backend"`
	Workers        int     `yaml:"workers"`
	Dt             float64 `yaml:"dt"`
	Steps          int     `yaml:"steps"`
	Seed           *int64  `yaml:"seed"` // pointer so seed 0 can be requested
}

// CellSpec is one explicitly placed cell.
type CellSpec struct {
	Position []float64 `yaml:"position"`
	Velocity []float64 `yaml:"velocity"`
	Mass     float64   `yaml:"mass"` // defaults to 1
	Mode     int       `yaml:"mode"`
	Age      float64   `yaml:"age"`
}

// loadScenario parses a scenario file with strict field checking and resolves its genome
// path against the scenario's directory.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	sc, err := parseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if sc.Genome != "" && !filepath.IsAbs(sc.Genome) {
		sc.Genome = filepath.Join(filepath.Dir(path), sc.Genome)
	}
	return sc, nil
}

func parseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if sc.Spawn < 0 {
		return nil, fmt.Errorf("spawn must be >= 0, got %d", sc.Spawn)
	}
	for i, c := range sc.Cells {
		if len(c.Position) != 3 {
			return nil, fmt.Errorf("cells[%d].position must have 3 components, got %d", i, len(c.Position))
		}
		if c.Velocity != nil && len(c.Velocity) != 3 {
			return nil, fmt.Errorf("cells[%d].velocity must have 3 components, got %d", i, len(c.Velocity))
		}
		if c.Mass < 0 {
			return nil, fmt.Errorf("cells[%d].mass must be > 0, got %f", i, c.Mass)
		}
	}
	return &sc, nil
}

// params converts c into store parameters, taking color and cell type from its genome mode.
func (c CellSpec) params(g *sim.Genome) sim.CellParams {
	mode := g.Mode(c.Mode)
	p := sim.CellParams{
		Position:  mgl64.Vec3{c.Position[0], c.Position[1], c.Position[2]},
		Mass:      c.Mass,
		Age:       c.Age,
		ModeIndex: c.Mode,
		CellType:  mode.CellType,
		Color:     mode.ColorVec(),
	}
	if p.Mass == 0 {
		p.Mass = 1
	}
	if len(c.Velocity) == 3 {
		p.Velocity = mgl64.Vec3{c.Velocity[0], c.Velocity[1], c.Velocity[2]}
	}
	return p
}
