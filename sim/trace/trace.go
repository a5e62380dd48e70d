package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures divisions, inheritance outcomes and bond breaks.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects event records during a run.
type SimulationTrace struct {
	Config       TraceConfig
	Divisions    []DivisionRecord
	Inheritances []InheritanceRecord
	Breaks       []BondBreakRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:       config,
		Divisions:    make([]DivisionRecord, 0),
		Inheritances: make([]InheritanceRecord, 0),
		Breaks:       make([]BondBreakRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelEvents
}

// RecordDivision appends a division record.
func (st *SimulationTrace) RecordDivision(record DivisionRecord) {
	st.Divisions = append(st.Divisions, record)
}

// RecordInheritance appends an inheritance record.
func (st *SimulationTrace) RecordInheritance(record InheritanceRecord) {
	st.Inheritances = append(st.Inheritances, record)
}

// RecordBreak appends a bond break record.
func (st *SimulationTrace) RecordBreak(record BondBreakRecord) {
	st.Breaks = append(st.Breaks, record)
}
