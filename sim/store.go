package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/u0068/Biospheres-sub000/sim/kernel"
	"github.com/u0068/Biospheres-sub000/sim/qmath"
)

// MaxAdhesionsPerCell is the number of adhesion slots on every cell.
const MaxAdhesionsPerCell = 20

// NoConnection marks an empty adhesion slot.
const NoConnection int32 = -1

// Zone records which side of a division plane a bond endpoint fell on.
type Zone uint8

const (
	ZoneNone Zone = iota
	ZoneA         // positive side of the split plane, inherited by child A
	ZoneB         // negative side, inherited by child B
	ZoneC         // equatorial band, duplicated to both children
)

func (z Zone) String() string {
	switch z {
	case ZoneA:
		return "A"
	case ZoneB:
		return "B"
	case ZoneC:
		return "C"
	default:
		return "-"
	}
}

// CellParams describes a cell to append to the store.
type CellParams struct {
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Orientation     mgl64.Quat // zero value means identity
	Mass            float64    // must be > 0; radius is derived as mass^(1/3)
	Age             float64
	ModeIndex       int
	GenomeID        int
	CellType        int
	Color           mgl64.Vec3
	Energy          float64
}

// CellColumns is the per-cell SoA state. Index i of every column describes cell i.
type CellColumns struct {
	Positions         Vec3Column
	Velocities        Vec3Column
	Accelerations     Vec3Column // reset after every integration
	AngularVelocities Vec3Column
	Torques           Vec3Column // reset after every integration
	Orientations      QuatColumn
	Colors            Vec3Column

	Masses   []float64
	Radii    []float64 // cached mass^(1/3)
	Ages     []float64
	Energies []float64

	ModeIndices []int32
	GenomeIDs   []int32
	CellTypes   []int32

	AdhesionSlots [][MaxAdhesionsPerCell]int32
}

// ConnectionParams describes a bond to create between two cells.
type ConnectionParams struct {
	ModeIndex int
	AnchorA   mgl64.Vec3 // local to cell A; normalized on write
	AnchorB   mgl64.Vec3 // local to cell B; normalized on write
	TwistRefA mgl64.Quat // zero value means identity
	TwistRefB mgl64.Quat // zero value means identity
	ZoneA     Zone
	ZoneB     Zone
}

// ConnectionColumns is the per-connection SoA state.
type ConnectionColumns struct {
	CellA       []int32
	CellB       []int32
	ModeIndices []int32
	AnchorA     Vec3Column
	AnchorB     Vec3Column
	TwistRefA   QuatColumn
	TwistRefB   QuatColumn
	ZoneA       []Zone
	ZoneB       []Zone
	Active      []bool
}

// Store is the fixed-capacity columnar arena holding every cell and adhesion connection.
// Cells occupy the contiguous range [0, CellCount()). Connections are allocated from a
// free list below a high-water mark and may be compacted toward index 0.
//
// Store is not safe for concurrent mutation. Backends read it and write only their own
// accumulator columns during a step.
type Store struct {
	cellCapacity int
	connCapacity int
	cellCount    int

	connActive    int
	connHighWater int
	connFree      []int32

	Cells       CellColumns
	Connections ConnectionColumns
}

// NewStore allocates a store for cellCapacity cells and cellCapacity*MaxAdhesionsPerCell/2
// connections. Panics if cellCapacity is not positive.
func NewStore(cellCapacity int) *Store {
	if cellCapacity <= 0 {
		panic(fmt.Sprintf("Store: cell capacity must be > 0, got %d", cellCapacity))
	}
	connCapacity := cellCapacity * MaxAdhesionsPerCell / 2
	n := paddedLen(cellCapacity)
	s := &Store{
		cellCapacity: cellCapacity,
		connCapacity: connCapacity,
		connFree:     make([]int32, 0, connCapacity),
		Cells: CellColumns{
			Positions:         newVec3Column(n),
			Velocities:        newVec3Column(n),
			Accelerations:     newVec3Column(n),
			AngularVelocities: newVec3Column(n),
			Torques:           newVec3Column(n),
			Orientations:      newQuatColumn(n),
			Colors:            newVec3Column(n),
			Masses:            make([]float64, n),
			Radii:             make([]float64, n),
			Ages:              make([]float64, n),
			Energies:          make([]float64, n),
			ModeIndices:       make([]int32, n),
			GenomeIDs:         make([]int32, n),
			CellTypes:         make([]int32, n),
			AdhesionSlots:     make([][MaxAdhesionsPerCell]int32, n),
		},
		Connections: ConnectionColumns{
			CellA:       make([]int32, connCapacity),
			CellB:       make([]int32, connCapacity),
			ModeIndices: make([]int32, connCapacity),
			AnchorA:     newVec3Column(connCapacity),
			AnchorB:     newVec3Column(connCapacity),
			TwistRefA:   newQuatColumn(connCapacity),
			TwistRefB:   newQuatColumn(connCapacity),
			ZoneA:       make([]Zone, connCapacity),
			ZoneB:       make([]Zone, connCapacity),
			Active:      make([]bool, connCapacity),
		},
	}
	for i := range s.Cells.AdhesionSlots {
		clearSlots(&s.Cells.AdhesionSlots[i])
	}
	return s
}

func clearSlots(slots *[MaxAdhesionsPerCell]int32) {
	for k := range slots {
		slots[k] = NoConnection
	}
}

// CellCapacity returns the maximum number of cells.
func (s *Store) CellCapacity() int { return s.cellCapacity }

// ConnectionCapacity returns the maximum number of active connections.
func (s *Store) ConnectionCapacity() int { return s.connCapacity }

// CellCount returns the number of active cells.
func (s *Store) CellCount() int { return s.cellCount }

// ConnectionCount returns the number of active connections.
func (s *Store) ConnectionCount() int { return s.connActive }

// ConnectionHighWater returns one past the highest connection index ever allocated since the
// last compaction. Active connections all lie below it.
func (s *Store) ConnectionHighWater() int { return s.connHighWater }

// Fragmentation returns the fraction of slots below the high-water mark that are free.
func (s *Store) Fragmentation() float64 {
	if s.connHighWater == 0 {
		return 0
	}
	return float64(len(s.connFree)) / float64(s.connHighWater)
}

// AddCell appends a cell at the next contiguous index.
func (s *Store) AddCell(p CellParams) (int, error) {
	if s.cellCount >= s.cellCapacity {
		return -1, fmt.Errorf("add cell (capacity %d): %w", s.cellCapacity, ErrCapacityExceeded)
	}
	if p.Mass <= 0 {
		return -1, fmt.Errorf("add cell: mass must be > 0, got %v", p.Mass)
	}
	i := s.cellCount
	s.cellCount++
	s.writeCell(i, p)
	clearSlots(&s.Cells.AdhesionSlots[i])
	return i, nil
}

// writeCell overwrites the physical state of cell i. Adhesion slots are left alone.
func (s *Store) writeCell(i int, p CellParams) {
	c := &s.Cells
	orientation := p.Orientation
	if orientation == (mgl64.Quat{}) {
		orientation = mgl64.QuatIdent()
	}
	c.Positions.Set(i, p.Position)
	c.Velocities.Set(i, p.Velocity)
	c.Accelerations.Set(i, mgl64.Vec3{})
	c.AngularVelocities.Set(i, p.AngularVelocity)
	c.Torques.Set(i, mgl64.Vec3{})
	c.Orientations.Set(i, qmath.NormalizeQuat(orientation))
	c.Colors.Set(i, p.Color)
	c.Masses[i] = p.Mass
	c.Radii[i] = kernel.RadiusFromMass(p.Mass)
	c.Ages[i] = p.Age
	c.Energies[i] = p.Energy
	c.ModeIndices[i] = int32(p.ModeIndex)
	c.GenomeIDs[i] = int32(p.GenomeID)
	c.CellTypes[i] = int32(p.CellType)
}

// CellParamsOf reads cell i back into a CellParams.
func (s *Store) CellParamsOf(i int) CellParams {
	c := &s.Cells
	return CellParams{
		Position:        c.Positions.At(i),
		Velocity:        c.Velocities.At(i),
		AngularVelocity: c.AngularVelocities.At(i),
		Orientation:     c.Orientations.At(i),
		Mass:            c.Masses[i],
		Age:             c.Ages[i],
		ModeIndex:       int(c.ModeIndices[i]),
		GenomeID:        int(c.GenomeIDs[i]),
		CellType:        int(c.CellTypes[i]),
		Color:           c.Colors.At(i),
		Energy:          c.Energies[i],
	}
}

// Body returns the kernel view of cell i.
func (s *Store) Body(i int) kernel.Body {
	c := &s.Cells
	return kernel.Body{
		Position:        c.Positions.At(i),
		Velocity:        c.Velocities.At(i),
		AngularVelocity: c.AngularVelocities.At(i),
		Orientation:     c.Orientations.At(i),
		Mass:            c.Masses[i],
		Radius:          c.Radii[i],
	}
}

// RemoveCell removes cell i and its bonds, then moves the last active cell into slot i.
// Indices held across a removal are not stable.
func (s *Store) RemoveCell(i int) error {
	if i < 0 || i >= s.cellCount {
		return fmt.Errorf("remove cell %d (count %d): %w", i, s.cellCount, ErrInvalidIndex)
	}
	slots := s.Cells.AdhesionSlots[i]
	for _, conn := range slots {
		if conn == NoConnection {
			continue
		}
		if err := s.RemoveConnection(int(conn)); err != nil {
			return fmt.Errorf("remove cell %d: %w", i, err)
		}
	}

	last := s.cellCount - 1
	if i != last {
		s.moveCell(i, last)
	}
	clearSlots(&s.Cells.AdhesionSlots[last])
	s.cellCount--
	return nil
}

// moveCell copies cell src into dst and repoints src's connections at dst.
func (s *Store) moveCell(dst, src int) {
	c := &s.Cells
	c.Positions.move(dst, src)
	c.Velocities.move(dst, src)
	c.Accelerations.move(dst, src)
	c.AngularVelocities.move(dst, src)
	c.Torques.move(dst, src)
	c.Orientations.move(dst, src)
	c.Colors.move(dst, src)
	c.Masses[dst] = c.Masses[src]
	c.Radii[dst] = c.Radii[src]
	c.Ages[dst] = c.Ages[src]
	c.Energies[dst] = c.Energies[src]
	c.ModeIndices[dst] = c.ModeIndices[src]
	c.GenomeIDs[dst] = c.GenomeIDs[src]
	c.CellTypes[dst] = c.CellTypes[src]
	c.AdhesionSlots[dst] = c.AdhesionSlots[src]

	conns := &s.Connections
	for _, conn := range c.AdhesionSlots[dst] {
		if conn == NoConnection {
			continue
		}
		if conns.CellA[conn] == int32(src) {
			conns.CellA[conn] = int32(dst)
		}
		if conns.CellB[conn] == int32(src) {
			conns.CellB[conn] = int32(dst)
		}
	}
}

// SlotCount returns the number of occupied adhesion slots on cell i.
func (s *Store) SlotCount(i int) int {
	n := 0
	for _, conn := range s.Cells.AdhesionSlots[i] {
		if conn != NoConnection {
			n++
		}
	}
	return n
}

func (s *Store) freeSlot(i int) int {
	for k, conn := range s.Cells.AdhesionSlots[i] {
		if conn == NoConnection {
			return k
		}
	}
	return -1
}

// ConnectionsOf appends cell i's connection indices to dst in slot order.
func (s *Store) ConnectionsOf(i int, dst []int32) []int32 {
	for _, conn := range s.Cells.AdhesionSlots[i] {
		if conn != NoConnection {
			dst = append(dst, conn)
		}
	}
	return dst
}

// ConnectionBetween returns the active connection joining cells a and b, if any.
func (s *Store) ConnectionBetween(a, b int) (int, bool) {
	if a < 0 || a >= s.cellCount || b < 0 || b >= s.cellCount {
		return -1, false
	}
	for _, conn := range s.Cells.AdhesionSlots[a] {
		if conn == NoConnection || !s.Connections.Active[conn] {
			continue
		}
		if s.Connections.Other(int(conn), a) == b {
			return int(conn), true
		}
	}
	return -1, false
}

// Other returns the endpoint of connection c that is not cell.
func (c *ConnectionColumns) Other(conn, cell int) int {
	if int(c.CellA[conn]) == cell {
		return int(c.CellB[conn])
	}
	return int(c.CellA[conn])
}

// AddConnection bonds cells a and b. Checks run before any mutation, so a rejected request
// leaves every column untouched. Anchors are normalized; a degenerate anchor falls back to
// the current direction toward the other cell in the owner's local frame.
func (s *Store) AddConnection(a, b int, p ConnectionParams) (int, error) {
	if a == b {
		return -1, fmt.Errorf("add connection %d-%d: %w", a, b, ErrSelfConnection)
	}
	if a < 0 || a >= s.cellCount || b < 0 || b >= s.cellCount {
		return -1, fmt.Errorf("add connection %d-%d (count %d): %w", a, b, s.cellCount, ErrInvalidCell)
	}
	slotA, slotB := s.freeSlot(a), s.freeSlot(b)
	if slotA < 0 {
		return -1, fmt.Errorf("add connection %d-%d: cell %d: %w", a, b, a, ErrNoFreeSlot)
	}
	if slotB < 0 {
		return -1, fmt.Errorf("add connection %d-%d: cell %d: %w", a, b, b, ErrNoFreeSlot)
	}
	if _, exists := s.ConnectionBetween(a, b); exists {
		return -1, fmt.Errorf("add connection %d-%d: %w", a, b, ErrDuplicate)
	}

	var conn int
	switch {
	case len(s.connFree) > 0:
		conn = int(s.connFree[len(s.connFree)-1])
		s.connFree = s.connFree[:len(s.connFree)-1]
	case s.connHighWater < s.connCapacity:
		conn = s.connHighWater
		s.connHighWater++
	default:
		return -1, fmt.Errorf("add connection %d-%d (capacity %d): %w", a, b, s.connCapacity, ErrCapacityExceeded)
	}

	posA, posB := s.Cells.Positions.At(a), s.Cells.Positions.At(b)
	toB := qmath.Normalize(posB.Sub(posA), qmath.AxisX)
	fallbackA := qmath.InverseRotate(s.Cells.Orientations.At(a), toB)
	fallbackB := qmath.InverseRotate(s.Cells.Orientations.At(b), toB.Mul(-1))

	cc := &s.Connections
	cc.CellA[conn] = int32(a)
	cc.CellB[conn] = int32(b)
	cc.ModeIndices[conn] = int32(p.ModeIndex)
	cc.AnchorA.Set(conn, qmath.Normalize(p.AnchorA, fallbackA))
	cc.AnchorB.Set(conn, qmath.Normalize(p.AnchorB, fallbackB))
	cc.TwistRefA.Set(conn, twistOrIdentity(p.TwistRefA))
	cc.TwistRefB.Set(conn, twistOrIdentity(p.TwistRefB))
	cc.ZoneA[conn] = p.ZoneA
	cc.ZoneB[conn] = p.ZoneB
	cc.Active[conn] = true

	s.Cells.AdhesionSlots[a][slotA] = int32(conn)
	s.Cells.AdhesionSlots[b][slotB] = int32(conn)
	s.connActive++
	return conn, nil
}

func twistOrIdentity(q mgl64.Quat) mgl64.Quat {
	if q == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}
	return qmath.NormalizeQuat(q)
}

// RemoveConnection clears connection c from both endpoints' slots and deactivates it.
func (s *Store) RemoveConnection(c int) error {
	if c < 0 || c >= s.connCapacity {
		return fmt.Errorf("remove connection %d (capacity %d): %w", c, s.connCapacity, ErrInvalidIndex)
	}
	cc := &s.Connections
	if !cc.Active[c] {
		return fmt.Errorf("remove connection %d: %w", c, ErrNotActive)
	}
	s.clearSlotRef(int(cc.CellA[c]), int32(c))
	s.clearSlotRef(int(cc.CellB[c]), int32(c))
	cc.Active[c] = false
	cc.ZoneA[c], cc.ZoneB[c] = ZoneNone, ZoneNone
	s.connFree = append(s.connFree, int32(c))
	s.connActive--
	return nil
}

func (s *Store) clearSlotRef(cell int, conn int32) {
	if cell < 0 || cell >= len(s.Cells.AdhesionSlots) {
		return
	}
	slots := &s.Cells.AdhesionSlots[cell]
	for k := range slots {
		if slots[k] == conn {
			slots[k] = NoConnection
		}
	}
}

// CompactConnections moves every active connection toward index 0, preserving relative
// order, and rewrites all cell slot references. Returns the number of connections moved.
func (s *Store) CompactConnections() int {
	cc := &s.Connections
	remap := make([]int32, s.connHighWater)
	next := 0
	moved := 0
	for c := 0; c < s.connHighWater; c++ {
		if !cc.Active[c] {
			remap[c] = NoConnection
			continue
		}
		remap[c] = int32(next)
		if c != next {
			s.moveConnection(next, c)
			moved++
		}
		next++
	}
	for c := next; c < s.connHighWater; c++ {
		cc.Active[c] = false
	}
	for i := 0; i < s.cellCount; i++ {
		slots := &s.Cells.AdhesionSlots[i]
		for k, conn := range slots {
			if conn == NoConnection {
				continue
			}
			if int(conn) < len(remap) {
				slots[k] = remap[conn]
			}
		}
	}
	s.connHighWater = next
	s.connFree = s.connFree[:0]
	return moved
}

func (s *Store) moveConnection(dst, src int) {
	cc := &s.Connections
	cc.CellA[dst] = cc.CellA[src]
	cc.CellB[dst] = cc.CellB[src]
	cc.ModeIndices[dst] = cc.ModeIndices[src]
	cc.AnchorA.move(dst, src)
	cc.AnchorB.move(dst, src)
	cc.TwistRefA.move(dst, src)
	cc.TwistRefB.move(dst, src)
	cc.ZoneA[dst] = cc.ZoneA[src]
	cc.ZoneB[dst] = cc.ZoneB[src]
	cc.Active[dst] = true
	cc.Active[src] = false
}

// Frame returns the kernel bond frame of connection c.
func (s *Store) Frame(c int) kernel.BondFrame {
	cc := &s.Connections
	return kernel.BondFrame{
		AnchorA:   cc.AnchorA.At(c),
		AnchorB:   cc.AnchorB.At(c),
		TwistRefA: cc.TwistRefA.At(c),
		TwistRefB: cc.TwistRefB.At(c),
	}
}

// Reset empties the store without reallocating.
func (s *Store) Reset() {
	for i := 0; i < s.cellCount; i++ {
		clearSlots(&s.Cells.AdhesionSlots[i])
	}
	clear(s.Connections.Active)
	s.cellCount = 0
	s.connActive = 0
	s.connHighWater = 0
	s.connFree = s.connFree[:0]
}

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := &s.Cells
	cc := &s.Connections
	return &Store{
		cellCapacity:  s.cellCapacity,
		connCapacity:  s.connCapacity,
		cellCount:     s.cellCount,
		connActive:    s.connActive,
		connHighWater: s.connHighWater,
		connFree:      append(make([]int32, 0, s.connCapacity), s.connFree...),
		Cells: CellColumns{
			Positions:         c.Positions.clone(),
			Velocities:        c.Velocities.clone(),
			Accelerations:     c.Accelerations.clone(),
			AngularVelocities: c.AngularVelocities.clone(),
			Torques:           c.Torques.clone(),
			Orientations:      c.Orientations.clone(),
			Colors:            c.Colors.clone(),
			Masses:            append([]float64(nil), c.Masses...),
			Radii:             append([]float64(nil), c.Radii...),
			Ages:              append([]float64(nil), c.Ages...),
			Energies:          append([]float64(nil), c.Energies...),
			ModeIndices:       append([]int32(nil), c.ModeIndices...),
			GenomeIDs:         append([]int32(nil), c.GenomeIDs...),
			CellTypes:         append([]int32(nil), c.CellTypes...),
			AdhesionSlots:     append([][MaxAdhesionsPerCell]int32(nil), c.AdhesionSlots...),
		},
		Connections: ConnectionColumns{
			CellA:       append([]int32(nil), cc.CellA...),
			CellB:       append([]int32(nil), cc.CellB...),
			ModeIndices: append([]int32(nil), cc.ModeIndices...),
			AnchorA:     cc.AnchorA.clone(),
			AnchorB:     cc.AnchorB.clone(),
			TwistRefA:   cc.TwistRefA.clone(),
			TwistRefB:   cc.TwistRefB.clone(),
			ZoneA:       append([]Zone(nil), cc.ZoneA...),
			ZoneB:       append([]Zone(nil), cc.ZoneB...),
			Active:      append([]bool(nil), cc.Active...),
		},
	}
}
