package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDivisions     int
	CompletedDivisions int
	SkippedDivisions   int
	InheritedBonds     int
	FailedInheritances int
	ZoneDistribution   map[string]int // zone → successful inheritances
	BrokenBonds        int
	MaxBreakForce      float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ZoneDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDivisions = len(st.Divisions)
	for _, d := range st.Divisions {
		if d.Skipped {
			summary.SkippedDivisions++
		} else {
			summary.CompletedDivisions++
		}
	}

	for _, r := range st.Inheritances {
		if !r.OK {
			summary.FailedInheritances++
			continue
		}
		summary.InheritedBonds++
		summary.ZoneDistribution[r.Zone]++
	}

	summary.BrokenBonds = len(st.Breaks)
	for _, b := range st.Breaks {
		f := b.SpringForce
		if f < 0 {
			f = -f
		}
		if f > summary.MaxBreakForce {
			summary.MaxBreakForce = f
		}
	}
	return summary
}
