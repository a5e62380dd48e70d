package sim

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// SceneMagic opens every scene blob.
const SceneMagic = "BIOSCENE"

// SceneVersion is the only layout LoadScene accepts.
const SceneVersion uint32 = 1

// MaxSceneCells bounds the cell capacity LoadScene will allocate for. Larger headers are
// rejected before any store memory is reserved.
const MaxSceneCells = 1 << 16

type sceneHeader struct {
	Magic         [8]byte
	Version       uint32
	CellCapacity  uint32
	CellCount     uint32
	ConnCapacity  uint32
	ConnHighWater uint32
	ConnActive    uint32
	FreeCount     uint32
}

// SaveScene writes the active prefix of every store column as little-endian arrays after a
// fixed header.
func SaveScene(w io.Writer, s *Store) error {
	bw := bufio.NewWriter(w)
	h := sceneHeader{
		Version:       SceneVersion,
		CellCapacity:  uint32(s.cellCapacity),
		CellCount:     uint32(s.cellCount),
		ConnCapacity:  uint32(s.connCapacity),
		ConnHighWater: uint32(s.connHighWater),
		ConnActive:    uint32(s.connActive),
		FreeCount:     uint32(len(s.connFree)),
	}
	copy(h.Magic[:], SceneMagic)

	enc := sceneCodec{}
	enc.write(bw, h)
	for _, col := range s.sceneColumns(s.cellCount, s.connHighWater) {
		enc.write(bw, col)
	}
	enc.write(bw, s.connFree)
	if enc.err != nil {
		return fmt.Errorf("writing scene: %w", enc.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	return nil
}

// LoadScene decodes a scene into a fresh store. The store is returned only after the
// header, every column and the integrity check succeed.
func LoadScene(r io.Reader) (*Store, error) {
	br := bufio.NewReader(r)
	var h sceneHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading scene header: %w: %v", ErrBadSceneHeader, err)
	}
	if string(h.Magic[:]) != SceneMagic {
		return nil, fmt.Errorf("magic %q: %w", strings.TrimRight(string(h.Magic[:]), "\x00"), ErrBadSceneHeader)
	}
	if h.Version != SceneVersion {
		return nil, fmt.Errorf("version %d, want %d: %w", h.Version, SceneVersion, ErrBadSceneHeader)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}

	s := NewStore(int(h.CellCapacity))
	dec := sceneCodec{}
	for _, col := range s.sceneColumns(int(h.CellCount), int(h.ConnHighWater)) {
		dec.read(br, col)
	}
	free := make([]int32, h.FreeCount)
	dec.read(br, free)
	if dec.err != nil {
		return nil, fmt.Errorf("reading scene payload: %w", dec.err)
	}

	s.cellCount = int(h.CellCount)
	s.connHighWater = int(h.ConnHighWater)
	s.connActive = int(h.ConnActive)
	seen := make(map[int32]bool, len(free))
	for _, c := range free {
		if c < 0 || int(c) >= s.connHighWater || s.Connections.Active[c] || seen[c] {
			return nil, fmt.Errorf("free list entry %d invalid: %w", c, ErrBadSceneHeader)
		}
		seen[c] = true
	}
	s.connFree = append(s.connFree, free...)
	if report := s.ValidateIntegrity(); !report.OK() {
		return nil, fmt.Errorf("scene failed integrity check: %s", strings.Join(report.Errors, "; "))
	}
	return s, nil
}

// validate checks the header counts against each other. Arithmetic is done in uint64 so a
// hostile capacity cannot wrap into a matching connection capacity.
func (h *sceneHeader) validate() error {
	cellCap := uint64(h.CellCapacity)
	switch {
	case cellCap == 0 || cellCap > MaxSceneCells:
		return fmt.Errorf("cell capacity %d outside [1, %d]: %w", h.CellCapacity, MaxSceneCells, ErrBadSceneHeader)
	case h.CellCount > h.CellCapacity:
		return fmt.Errorf("cell count %d above capacity %d: %w", h.CellCount, h.CellCapacity, ErrBadSceneHeader)
	case uint64(h.ConnCapacity) != cellCap*MaxAdhesionsPerCell/2:
		return fmt.Errorf("connection capacity %d, want %d: %w", h.ConnCapacity, cellCap*MaxAdhesionsPerCell/2, ErrBadSceneHeader)
	case h.ConnHighWater > h.ConnCapacity || h.ConnActive > h.ConnHighWater:
		return fmt.Errorf("connection counts active=%d high-water=%d capacity=%d: %w", h.ConnActive, h.ConnHighWater, h.ConnCapacity, ErrBadSceneHeader)
	case uint64(h.FreeCount) != uint64(h.ConnHighWater)-uint64(h.ConnActive):
		return fmt.Errorf("free list holds %d slots, high-water %d minus active %d: %w", h.FreeCount, h.ConnHighWater, h.ConnActive, ErrBadSceneHeader)
	}
	return nil
}

// sceneColumns lists the column prefixes in scene order. The slices alias store memory.
func (s *Store) sceneColumns(cells, conns int) []any {
	c := &s.Cells
	cc := &s.Connections
	vec := func(v Vec3Column, n int) []any { return []any{v.X[:n], v.Y[:n], v.Z[:n]} }
	quat := func(q QuatColumn, n int) []any { return []any{q.W[:n], q.X[:n], q.Y[:n], q.Z[:n]} }

	var cols []any
	cols = append(cols, vec(c.Positions, cells)...)
	cols = append(cols, vec(c.Velocities, cells)...)
	cols = append(cols, vec(c.Accelerations, cells)...)
	cols = append(cols, vec(c.AngularVelocities, cells)...)
	cols = append(cols, vec(c.Torques, cells)...)
	cols = append(cols, quat(c.Orientations, cells)...)
	cols = append(cols, vec(c.Colors, cells)...)
	cols = append(cols,
		c.Masses[:cells], c.Radii[:cells], c.Ages[:cells], c.Energies[:cells],
		c.ModeIndices[:cells], c.GenomeIDs[:cells], c.CellTypes[:cells],
		c.AdhesionSlots[:cells],
		cc.CellA[:conns], cc.CellB[:conns], cc.ModeIndices[:conns],
	)
	cols = append(cols, vec(cc.AnchorA, conns)...)
	cols = append(cols, vec(cc.AnchorB, conns)...)
	cols = append(cols, quat(cc.TwistRefA, conns)...)
	cols = append(cols, quat(cc.TwistRefB, conns)...)
	cols = append(cols, cc.ZoneA[:conns], cc.ZoneB[:conns], cc.Active[:conns])
	return cols
}

// sceneCodec keeps the first error so column loops stay flat.
type sceneCodec struct {
	err error
}

func (c *sceneCodec) write(w io.Writer, v any) {
	if c.err != nil {
		return
	}
	c.err = binary.Write(w, binary.LittleEndian, v)
}

func (c *sceneCodec) read(r io.Reader, v any) {
	if c.err != nil {
		return
	}
	c.err = binary.Read(r, binary.LittleEndian, v)
}
