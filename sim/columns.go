package sim

import "github.com/go-gl/mathgl/mgl64"

// LaneWidth is the column padding granularity. Column lengths are rounded up to a multiple
// of it so lane-batched loops never need a scalar tail.
const LaneWidth = 4

// paddedLen rounds n up to a multiple of LaneWidth.
func paddedLen(n int) int {
	return (n + LaneWidth - 1) / LaneWidth * LaneWidth
}

// Vec3Column stores one vector field as three contiguous component arrays.
type Vec3Column struct {
	X, Y, Z []float64
}

func newVec3Column(n int) Vec3Column {
	return Vec3Column{X: make([]float64, n), Y: make([]float64, n), Z: make([]float64, n)}
}

// At returns element i.
func (c Vec3Column) At(i int) mgl64.Vec3 {
	return mgl64.Vec3{c.X[i], c.Y[i], c.Z[i]}
}

// Set writes element i.
func (c Vec3Column) Set(i int, v mgl64.Vec3) {
	c.X[i], c.Y[i], c.Z[i] = v[0], v[1], v[2]
}

// Add accumulates v into element i.
func (c Vec3Column) Add(i int, v mgl64.Vec3) {
	c.X[i] += v[0]
	c.Y[i] += v[1]
	c.Z[i] += v[2]
}

// Zero clears elements [0, n).
func (c Vec3Column) Zero(n int) {
	clear(c.X[:n])
	clear(c.Y[:n])
	clear(c.Z[:n])
}

func (c Vec3Column) move(dst, src int) {
	c.X[dst], c.Y[dst], c.Z[dst] = c.X[src], c.Y[src], c.Z[src]
}

func (c Vec3Column) clone() Vec3Column {
	return Vec3Column{X: append([]float64(nil), c.X...), Y: append([]float64(nil), c.Y...), Z: append([]float64(nil), c.Z...)}
}

// QuatColumn stores one quaternion field as four contiguous component arrays.
type QuatColumn struct {
	W, X, Y, Z []float64
}

func newQuatColumn(n int) QuatColumn {
	return QuatColumn{W: make([]float64, n), X: make([]float64, n), Y: make([]float64, n), Z: make([]float64, n)}
}

// At returns element i.
func (c QuatColumn) At(i int) mgl64.Quat {
	return mgl64.Quat{W: c.W[i], V: mgl64.Vec3{c.X[i], c.Y[i], c.Z[i]}}
}

// Set writes element i.
func (c QuatColumn) Set(i int, q mgl64.Quat) {
	c.W[i], c.X[i], c.Y[i], c.Z[i] = q.W, q.V[0], q.V[1], q.V[2]
}

func (c QuatColumn) move(dst, src int) {
	c.W[dst], c.X[dst], c.Y[dst], c.Z[dst] = c.W[src], c.X[src], c.Y[src], c.Z[src]
}

func (c QuatColumn) clone() QuatColumn {
	return QuatColumn{
		W: append([]float64(nil), c.W...),
		X: append([]float64(nil), c.X...),
		Y: append([]float64(nil), c.Y...),
		Z: append([]float64(nil), c.Z...),
	}
}
