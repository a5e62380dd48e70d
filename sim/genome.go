package sim

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/u0068/Biospheres-sub000/sim/kernel"
	"github.com/u0068/Biospheres-sub000/sim/qmath"
)

// AdhesionSettings are the bond parameters of one genome mode. Angles are in degrees.
type AdhesionSettings struct {
	CanBreak             bool    `yaml:"can_break"`
	BreakForce           float64 `yaml:"break_force"`
	BreakLength          float64 `yaml:"break_length"` // stretch beyond rest distance; 0 disables
	RestLength           float64 `yaml:"rest_length"`
	LinearStiffness      float64 `yaml:"linear_spring_stiffness"`
	LinearDamping        float64 `yaml:"linear_spring_damping"`
	OrientationStiffness float64 `yaml:"orientation_spring_stiffness"`
	OrientationDamping   float64 `yaml:"orientation_spring_damping"`
	MaxAngularDeviation  float64 `yaml:"max_angular_deviation"`
	TwistEnabled         bool    `yaml:"enable_twist_constraint"`
	TwistStiffness       float64 `yaml:"twist_constraint_stiffness"`
	TwistDamping         float64 `yaml:"twist_constraint_damping"`
}

// BondParams converts the settings to kernel units.
func (a AdhesionSettings) BondParams() kernel.BondParams {
	return kernel.BondParams{
		RestLength:           a.RestLength,
		LinearStiffness:      a.LinearStiffness,
		LinearDamping:        a.LinearDamping,
		OrientationStiffness: a.OrientationStiffness,
		OrientationDamping:   a.OrientationDamping,
		MaxAngularDeviation:  mgl64.DegToRad(a.MaxAngularDeviation),
		TwistEnabled:         a.TwistEnabled,
		TwistStiffness:       a.TwistStiffness,
		TwistDamping:         a.TwistDamping,
	}
}

// Orientation is a rotation given as pitch (X), yaw (Y) and roll (Z) in degrees.
type Orientation struct {
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
	Roll  float64 `yaml:"roll"`
}

// Quat returns the rotation as a unit quaternion.
func (o Orientation) Quat() mgl64.Quat {
	return qmath.FromEulerDegrees(o.Pitch, o.Yaw, o.Roll)
}

// ChildSettings describes one product of a division.
type ChildSettings struct {
	Mode         int         `yaml:"mode"`
	Orientation  Orientation `yaml:"orientation"` // delta relative to the parent
	KeepAdhesion bool        `yaml:"keep_adhesion"`
}

// Mode is one cell behavior in a genome.
type Mode struct {
	Name               string           `yaml:"name"`
	Color              []float64        `yaml:"color"`
	CellType           int              `yaml:"cell_type"`
	SplitInterval      float64          `yaml:"split_interval"` // <= 0 never divides
	SplitDirection     []float64        `yaml:"split_direction"`
	ParentMakeAdhesion bool             `yaml:"parent_make_adhesion"`
	ChildA             ChildSettings    `yaml:"child_a"`
	ChildB             ChildSettings    `yaml:"child_b"`
	Adhesion           AdhesionSettings `yaml:"adhesion"`
}

// Divides reports whether cells in this mode ever split.
func (m *Mode) Divides() bool { return m.SplitInterval > 0 }

// SplitDir returns the normalized local split direction, +Y when unset or degenerate.
func (m *Mode) SplitDir() mgl64.Vec3 {
	if len(m.SplitDirection) != 3 {
		return qmath.AxisY
	}
	v := mgl64.Vec3{m.SplitDirection[0], m.SplitDirection[1], m.SplitDirection[2]}
	return qmath.Normalize(v, qmath.AxisY)
}

// ColorVec returns the mode color, white when unset.
func (m *Mode) ColorVec() mgl64.Vec3 {
	if len(m.Color) != 3 {
		return mgl64.Vec3{1, 1, 1}
	}
	return mgl64.Vec3{m.Color[0], m.Color[1], m.Color[2]}
}

// Genome is the read-only parameter set the simulation consults every step.
type Genome struct {
	Name        string `yaml:"name"`
	InitialMode int    `yaml:"initial_mode"`
	Modes       []Mode `yaml:"modes"`
}

// DefaultAdhesionSettings returns moderately stiff, unbreakable bond settings.
func DefaultAdhesionSettings() AdhesionSettings {
	return AdhesionSettings{
		BreakForce:           10.0,
		RestLength:           1.0,
		LinearStiffness:      100.0,
		LinearDamping:        2.0,
		OrientationStiffness: 10.0,
		OrientationDamping:   0.5,
		TwistStiffness:       2.0,
		TwistDamping:         0.5,
	}
}

// DefaultMode returns a self-renewing mode that splits along +Y every 5 time units and
// keeps every bond.
func DefaultMode() Mode {
	return Mode{
		Name:               "default",
		Color:              []float64{0.4, 0.8, 0.4},
		SplitInterval:      5.0,
		SplitDirection:     []float64{0, 1, 0},
		ParentMakeAdhesion: true,
		ChildA:             ChildSettings{KeepAdhesion: true},
		ChildB:             ChildSettings{KeepAdhesion: true},
		Adhesion:           DefaultAdhesionSettings(),
	}
}

// DefaultGenome returns a single-mode genome built from DefaultMode.
func DefaultGenome() *Genome {
	return &Genome{Name: "default", Modes: []Mode{DefaultMode()}}
}

// LoadGenome reads a genome YAML file. Unknown keys are rejected.
func LoadGenome(path string) (*Genome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genome: %w", err)
	}
	return ParseGenome(data)
}

// ParseGenome decodes and validates a genome YAML document.
func ParseGenome(data []byte) (*Genome, error) {
	var g Genome
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&g); err != nil {
		return nil, fmt.Errorf("parsing genome: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate checks mode references and numeric ranges.
func (g *Genome) Validate() error {
	if len(g.Modes) == 0 {
		return fmt.Errorf("genome %q: at least one mode required", g.Name)
	}
	if g.InitialMode < 0 || g.InitialMode >= len(g.Modes) {
		return fmt.Errorf("genome %q: initial_mode %d out of range [0, %d)", g.Name, g.InitialMode, len(g.Modes))
	}
	for i := range g.Modes {
		if err := g.validateMode(i); err != nil {
			return err
		}
	}
	return nil
}

func (g *Genome) validateMode(i int) error {
	m := &g.Modes[i]
	prefix := fmt.Sprintf("mode[%d]", i)
	for _, child := range []struct {
		name string
		mode int
	}{{"child_a", m.ChildA.Mode}, {"child_b", m.ChildB.Mode}} {
		if child.mode < 0 || child.mode >= len(g.Modes) {
			return fmt.Errorf("%s: %s.mode %d out of range [0, %d)", prefix, child.name, child.mode, len(g.Modes))
		}
	}
	if m.Color != nil && len(m.Color) != 3 {
		return fmt.Errorf("%s: color must have 3 components, got %d", prefix, len(m.Color))
	}
	if m.SplitDirection != nil && len(m.SplitDirection) != 3 {
		return fmt.Errorf("%s: split_direction must have 3 components, got %d", prefix, len(m.SplitDirection))
	}
	a := &m.Adhesion
	fields := []struct {
		name string
		val  float64
	}{
		{"split_interval", m.SplitInterval},
		{"adhesion.break_force", a.BreakForce},
		{"adhesion.break_length", a.BreakLength},
		{"adhesion.rest_length", a.RestLength},
		{"adhesion.linear_spring_stiffness", a.LinearStiffness},
		{"adhesion.linear_spring_damping", a.LinearDamping},
		{"adhesion.orientation_spring_stiffness", a.OrientationStiffness},
		{"adhesion.orientation_spring_damping", a.OrientationDamping},
		{"adhesion.max_angular_deviation", a.MaxAngularDeviation},
		{"adhesion.twist_constraint_stiffness", a.TwistStiffness},
		{"adhesion.twist_constraint_damping", a.TwistDamping},
	}
	for _, f := range fields {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return fmt.Errorf("%s: %s must be a finite number, got %f", prefix, f.name, f.val)
		}
		if f.name != "split_interval" && f.val < 0 {
			return fmt.Errorf("%s: %s must be non-negative, got %f", prefix, f.name, f.val)
		}
	}
	if a.MaxAngularDeviation > 180 {
		return fmt.Errorf("%s: adhesion.max_angular_deviation must be <= 180 degrees, got %f", prefix, a.MaxAngularDeviation)
	}
	return nil
}

// Mode returns mode i. Out-of-range indices resolve to the initial mode.
func (g *Genome) Mode(i int) *Mode {
	if i < 0 || i >= len(g.Modes) {
		return &g.Modes[g.InitialMode]
	}
	return &g.Modes[i]
}

// Clone returns a deep copy.
func (g *Genome) Clone() *Genome {
	out := &Genome{Name: g.Name, InitialMode: g.InitialMode, Modes: make([]Mode, len(g.Modes))}
	for i, m := range g.Modes {
		m.Color = append([]float64(nil), m.Color...)
		m.SplitDirection = append([]float64(nil), m.SplitDirection...)
		out.Modes[i] = m
	}
	return out
}

// Mutate returns a copy with spring coefficients and split intervals scaled by random
// factors in [1-strength, 1+strength]. Draws come only from rng, in mode order.
func (g *Genome) Mutate(rng *rand.Rand, strength float64) *Genome {
	out := g.Clone()
	jitter := func(v float64) float64 {
		f := 1 + strength*(2*rng.Float64()-1)
		return math.Max(0, v*f)
	}
	for i := range out.Modes {
		m := &out.Modes[i]
		m.Adhesion.LinearStiffness = jitter(m.Adhesion.LinearStiffness)
		m.Adhesion.LinearDamping = jitter(m.Adhesion.LinearDamping)
		m.Adhesion.OrientationStiffness = jitter(m.Adhesion.OrientationStiffness)
		m.Adhesion.OrientationDamping = jitter(m.Adhesion.OrientationDamping)
		if m.Divides() {
			m.SplitInterval = jitter(m.SplitInterval)
		}
	}
	return out
}

// TwistEnabled reports whether any mode enables the twist constraint.
func (g *Genome) TwistEnabled() bool {
	for i := range g.Modes {
		if g.Modes[i].Adhesion.TwistEnabled {
			return true
		}
	}
	return false
}
