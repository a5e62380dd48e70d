package sim

import (
	"fmt"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
)

// IntegrityReport is the result of Store.ValidateIntegrity. Errors are structural
// corruption; Warnings are recoverable leftovers such as orphans and duplicate pairs.
type IntegrityReport struct {
	Errors   []string
	Warnings []string

	ActiveConnections   int
	OrphanedConnections int // active but missing from an endpoint's slots
	OrphanedSlots       int // slot pointing at an inactive connection
	DuplicatePairs      int
}

// OK reports whether no errors were found.
func (r *IntegrityReport) OK() bool { return len(r.Errors) == 0 }

// Clean reports whether neither errors nor warnings were found.
func (r *IntegrityReport) Clean() bool { return len(r.Errors) == 0 && len(r.Warnings) == 0 }

func (r *IntegrityReport) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *IntegrityReport) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type cellPair struct{ lo, hi int32 }

// ValidateIntegrity checks the slot/connection bijection, pair uniqueness and the unit
// length of every stored anchor and twist reference. It does not mutate the store.
func (s *Store) ValidateIntegrity() *IntegrityReport {
	r := &IntegrityReport{}
	cc := &s.Connections

	pairs := make(map[cellPair]int)
	for c := 0; c < s.connHighWater; c++ {
		if !cc.Active[c] {
			continue
		}
		r.ActiveConnections++
		a, b := cc.CellA[c], cc.CellB[c]
		if a == b {
			r.errorf("connection %d: self connection on cell %d", c, a)
			continue
		}
		if a < 0 || int(a) >= s.cellCount || b < 0 || int(b) >= s.cellCount {
			r.errorf("connection %d: endpoint out of range (%d, %d), cell count %d", c, a, b, s.cellCount)
			continue
		}
		for _, end := range [2]int32{a, b} {
			refs := 0
			for _, ref := range s.Cells.AdhesionSlots[end] {
				if ref == int32(c) {
					refs++
				}
			}
			switch {
			case refs == 0:
				r.OrphanedConnections++
				r.warnf("connection %d: not referenced by endpoint %d", c, end)
			case refs > 1:
				r.errorf("connection %d: referenced %d times by cell %d", c, refs, end)
			}
		}

		p := cellPair{lo: min(a, b), hi: max(a, b)}
		pairs[p]++
		if pairs[p] == 2 {
			r.DuplicatePairs++
			r.warnf("cells %d and %d bonded more than once", p.lo, p.hi)
		}

		if !qmath.IsUnit(cc.AnchorA.At(c)) {
			r.errorf("connection %d: anchor A not unit (len^2 %.9f)", c, qmath.LenSq(cc.AnchorA.At(c)))
		}
		if !qmath.IsUnit(cc.AnchorB.At(c)) {
			r.errorf("connection %d: anchor B not unit (len^2 %.9f)", c, qmath.LenSq(cc.AnchorB.At(c)))
		}
		if !qmath.IsUnitQuat(cc.TwistRefA.At(c)) {
			r.errorf("connection %d: twist reference A not unit", c)
		}
		if !qmath.IsUnitQuat(cc.TwistRefB.At(c)) {
			r.errorf("connection %d: twist reference B not unit", c)
		}
	}

	for i := 0; i < s.cellCount; i++ {
		for k, ref := range s.Cells.AdhesionSlots[i] {
			if ref == NoConnection {
				continue
			}
			if ref < 0 || int(ref) >= s.connCapacity {
				r.errorf("cell %d slot %d: connection index %d out of range", i, k, ref)
				continue
			}
			if !cc.Active[ref] {
				r.OrphanedSlots++
				r.warnf("cell %d slot %d: references inactive connection %d", i, k, ref)
				continue
			}
			if int(cc.CellA[ref]) != i && int(cc.CellB[ref]) != i {
				r.errorf("cell %d slot %d: connection %d joins %d and %d", i, k, ref, cc.CellA[ref], cc.CellB[ref])
			}
		}
		if !qmath.IsUnitQuat(s.Cells.Orientations.At(i)) {
			r.errorf("cell %d: orientation not unit", i)
		}
		if s.Cells.Masses[i] <= 0 {
			r.errorf("cell %d: non-positive mass %v", i, s.Cells.Masses[i])
		}
	}

	if r.ActiveConnections != s.connActive {
		r.errorf("active connection count %d, tracked %d", r.ActiveConnections, s.connActive)
	}
	return r
}
