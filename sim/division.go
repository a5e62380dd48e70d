package sim

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"

	"github.com/u0068/Biospheres-sub000/sim/qmath"
	"github.com/u0068/Biospheres-sub000/sim/trace"
)

const (
	// SplitOffset is how far each child moves from the parent center along the split axis.
	SplitOffset = 0.5

	// ChildBAgeOffset is added to child B's carried-over age so siblings never tie.
	ChildBAgeOffset = 1e-3

	// EquatorialBand is the half-width in degrees of the band around the split plane whose
	// bonds are duplicated to both children.
	EquatorialBand = 2.0
)

// ClassifyZone returns the inheritance zone of a bond whose world anchor direction makes
// the given angle (radians) with the world split direction.
func ClassifyZone(angle float64) Zone {
	deg := mgl64.RadToDeg(angle)
	switch {
	case math.Abs(deg-90) <= EquatorialBand:
		return ZoneC
	case deg < 90:
		return ZoneA
	default:
		return ZoneB
	}
}

// parentBond is a snapshot of one bond on a dividing cell, oriented from the parent side.
type parentBond struct {
	conn         int
	neighbor     int
	parentIsA    bool
	mode         int
	parentAnchor mgl64.Vec3 // parent-local
	neighborZone Zone
}

// childSpec describes one product of a division during inheritance.
type childSpec struct {
	index  int
	sign   float64 // +1 for child A, -1 for child B
	delta  mgl64.Quat
	orient mgl64.Quat
	keep   bool
}

// divideReady splits every cell that existed at the start of the pass and has reached its
// mode's split interval. Children appended during the pass are not revisited.
func (w *World) divideReady(g *Genome) {
	n := w.store.CellCount()
	for i := 0; i < n; i++ {
		mode := g.Mode(int(w.store.Cells.ModeIndices[i]))
		if !mode.Divides() || w.store.Cells.Ages[i] < mode.SplitInterval {
			continue
		}
		w.divide(i, g)
	}
}

// divide splits cell parent into child A (same index) and child B (new index), moves each
// of the parent's bonds to the child(ren) on its side of the split plane, and optionally
// bonds the two children. Connection manager failures skip the affected bond only.
func (w *World) divide(parent int, g *Genome) {
	s := w.store
	m := w.metrics
	modeIndex := int(s.Cells.ModeIndices[parent])
	mode := g.Mode(modeIndex)

	if s.CellCount() >= s.CellCapacity() {
		m.SkippedDivisions++
		logrus.Debugf("division of cell %d skipped: cell arena full (%d)", parent, s.CellCapacity())
		if w.trace.Enabled() {
			w.trace.RecordDivision(trace.DivisionRecord{
				Step: m.Steps, Parent: parent, ChildA: parent, ChildB: -1, Mode: modeIndex,
				Skipped: true, Reason: ErrCapacityExceeded.Error(),
			})
		}
		return
	}

	p := s.CellParamsOf(parent)
	parentQ := p.Orientation
	parentRadius := s.Cells.Radii[parent]
	splitLocal := mode.SplitDir()
	splitWorld := qmath.Rotate(parentQ, splitLocal)
	excess := p.Age - mode.SplitInterval

	bonds := w.snapshotBonds(parent)

	childA := childSpec{index: parent, sign: 1, delta: mode.ChildA.Orientation.Quat(), keep: mode.ChildA.KeepAdhesion}
	childB := childSpec{sign: -1, delta: mode.ChildB.Orientation.Quat(), keep: mode.ChildB.KeepAdhesion}
	childA.orient = qmath.NormalizeQuat(qmath.Mul(parentQ, childA.delta))
	childB.orient = qmath.NormalizeQuat(qmath.Mul(parentQ, childB.delta))

	paramsA := childParams(p, g, mode.ChildA.Mode, childA.orient, splitWorld.Mul(SplitOffset), excess)
	paramsB := childParams(p, g, mode.ChildB.Mode, childB.orient, splitWorld.Mul(-SplitOffset), excess+ChildBAgeOffset)

	idxB, err := s.AddCell(paramsB)
	if err != nil {
		m.SkippedDivisions++
		logrus.Debugf("division of cell %d skipped: %v", parent, err)
		return
	}
	childB.index = idxB
	s.writeCell(parent, paramsA)
	m.Divisions++
	if w.trace.Enabled() {
		w.trace.RecordDivision(trace.DivisionRecord{
			Step: m.Steps, Parent: parent, ChildA: parent, ChildB: idxB, Mode: modeIndex,
		})
	}

	for _, b := range bonds {
		w.inheritBond(g, b, parentQ, parentRadius, splitLocal, splitWorld, childA, childB)
	}

	if mode.ParentMakeAdhesion && childA.keep && childB.keep {
		_, err := s.AddConnection(childA.index, childB.index, ConnectionParams{
			ModeIndex: modeIndex,
			AnchorA:   qmath.InverseRotate(childA.delta, splitLocal.Mul(-1)),
			AnchorB:   qmath.InverseRotate(childB.delta, splitLocal),
			TwistRefA: childA.orient,
			TwistRefB: childB.orient,
			ZoneA:     ZoneB,
			ZoneB:     ZoneA,
		})
		w.recordInheritance(parent, childA.index, childB.index, ZoneNone, err)
	}
}

func childParams(p CellParams, g *Genome, mode int, orient mgl64.Quat, offset mgl64.Vec3, age float64) CellParams {
	cm := g.Mode(mode)
	c := p
	c.Position = p.Position.Add(offset)
	c.Orientation = orient
	c.Age = age
	c.ModeIndex = mode
	c.CellType = cm.CellType
	c.Color = cm.ColorVec()
	return c
}

func (w *World) snapshotBonds(parent int) []parentBond {
	s := w.store
	cc := &s.Connections
	var out []parentBond
	for _, conn := range s.Cells.AdhesionSlots[parent] {
		if conn == NoConnection || !cc.Active[conn] {
			continue
		}
		b := parentBond{conn: int(conn), mode: int(cc.ModeIndices[conn])}
		if int(cc.CellA[conn]) == parent {
			b.parentIsA = true
			b.neighbor = int(cc.CellB[conn])
			b.parentAnchor = cc.AnchorA.At(int(conn))
			b.neighborZone = cc.ZoneB[conn]
		} else {
			b.neighbor = int(cc.CellA[conn])
			b.parentAnchor = cc.AnchorB.At(int(conn))
			b.neighborZone = cc.ZoneA[conn]
		}
		out = append(out, b)
	}
	return out
}

// inheritBond deactivates one parent bond and recreates it on the child(ren) selected by
// its zone, with anchors recomputed from the reconstructed neighbor position.
func (w *World) inheritBond(g *Genome, b parentBond, parentQ mgl64.Quat, parentRadius float64, splitLocal, splitWorld mgl64.Vec3, childA, childB childSpec) {
	s := w.store
	zone := ClassifyZone(qmath.AngleBetween(qmath.Rotate(parentQ, b.parentAnchor), splitWorld))

	if err := s.RemoveConnection(b.conn); err != nil {
		logrus.Debugf("division: removing parent bond %d: %v", b.conn, err)
		return
	}
	w.metrics.BondsRemoved++

	var targets []childSpec
	switch zone {
	case ZoneA:
		targets = []childSpec{childA}
	case ZoneB:
		targets = []childSpec{childB}
	case ZoneC:
		targets = []childSpec{childA, childB}
	}

	neighborQ := s.Cells.Orientations.At(b.neighbor)
	neighborRadius := s.Cells.Radii[b.neighbor]
	restLength := g.Mode(b.mode).Adhesion.RestLength
	neighborLocal := b.parentAnchor.Mul(restLength + parentRadius + neighborRadius)
	toParentFrame := qmath.Mul(qmath.Inverse(neighborQ), parentQ)

	for _, child := range targets {
		if !child.keep {
			continue
		}
		childLocal := splitLocal.Mul(child.sign * SplitOffset)
		dirLocal := qmath.Normalize(neighborLocal.Sub(childLocal), b.parentAnchor)
		childAnchor := qmath.InverseRotate(child.delta, dirLocal)
		neighborAnchor := qmath.Rotate(toParentFrame, dirLocal.Mul(-1))

		params := ConnectionParams{ModeIndex: b.mode}
		a, bb := child.index, b.neighbor
		if b.parentIsA {
			params.AnchorA, params.AnchorB = childAnchor, neighborAnchor
			params.TwistRefA, params.TwistRefB = child.orient, neighborQ
			params.ZoneA, params.ZoneB = zone, b.neighborZone
		} else {
			a, bb = b.neighbor, child.index
			params.AnchorA, params.AnchorB = neighborAnchor, childAnchor
			params.TwistRefA, params.TwistRefB = neighborQ, child.orient
			params.ZoneA, params.ZoneB = b.neighborZone, zone
		}
		_, err := s.AddConnection(a, bb, params)
		w.recordInheritance(childA.index, child.index, b.neighbor, zone, err)
	}
}

// recordInheritance counts and traces one bond assignment. A failure is a sentinel from the
// connection manager and never aborts the division.
func (w *World) recordInheritance(parent, child, neighbor int, zone Zone, err error) {
	if err == nil {
		w.metrics.BondsCreated++
	} else {
		w.metrics.InheritanceFailures++
		level := logrus.DebugLevel
		if !errors.Is(err, ErrNoFreeSlot) && !errors.Is(err, ErrCapacityExceeded) {
			level = logrus.WarnLevel
		}
		logrus.StandardLogger().Logf(level, "division of cell %d: bond %d-%d (zone %s) not inherited: %v", parent, child, neighbor, zone, err)
	}
	if !w.trace.Enabled() {
		return
	}
	rec := trace.InheritanceRecord{
		Step: w.metrics.Steps, Parent: parent, Child: child, Neighbor: neighbor,
		Zone: zone.String(), OK: err == nil,
	}
	if err != nil {
		rec.Reason = err.Error()
	}
	w.trace.RecordInheritance(rec)
}
