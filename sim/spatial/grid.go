// Package spatial provides the uniform grid used for neighbor queries during collision
// resolution. The grid is rebuilt from scratch every step.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BucketCapacity is the maximum number of cell indices a bucket holds. Insertions into a
// full bucket are refused, so very dense regions lose some neighbor pairs in exchange for a
// hard memory bound.
const BucketCapacity = 32

// DirectThreshold is the population below which callers skip the grid and test all pairs.
const DirectThreshold = 64

// Bucket is a fixed-size list of cell indices. It is a value type laid out contiguously in
// the grid's bucket array.
type Bucket struct {
	Count   int32
	Entries [BucketCapacity]int32
}

// Grid is a dense 3D uniform grid centered on the origin.
type Grid struct {
	resolution int
	cellSize   float64
	origin     float64 // world coordinate of the grid's minimum corner on every axis
	buckets    []Bucket
	dropped    int
}

// NewGrid creates a grid spanning [-extent/2, extent/2] on every axis, split into
// resolution buckets per axis.
func NewGrid(extent float64, resolution int) *Grid {
	if resolution <= 0 {
		panic("Grid: resolution must be > 0")
	}
	if extent <= 0 {
		panic("Grid: extent must be > 0")
	}
	return &Grid{
		resolution: resolution,
		cellSize:   extent / float64(resolution),
		origin:     -extent / 2,
		buckets:    make([]Bucket, resolution*resolution*resolution),
	}
}

// Resolution returns the number of buckets per axis.
func (g *Grid) Resolution() int { return g.resolution }

// CellSize returns the edge length of one bucket.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Dropped returns the number of insertions refused since the last Clear.
func (g *Grid) Dropped() int { return g.dropped }

// Clear empties every bucket.
func (g *Grid) Clear() {
	for i := range g.buckets {
		g.buckets[i].Count = 0
	}
	g.dropped = 0
}

// coord maps a world coordinate to a bucket coordinate, clamped into the grid so cells that
// leave the world extent still land in an edge bucket.
func (g *Grid) coord(v float64) int {
	c := int(math.Floor((v - g.origin) / g.cellSize))
	if c < 0 {
		return 0
	}
	if c >= g.resolution {
		return g.resolution - 1
	}
	return c
}

func (g *Grid) index(x, y, z int) int {
	return (z*g.resolution+y)*g.resolution + x
}

// BucketOf returns the flat bucket index that contains pos.
func (g *Grid) BucketOf(pos mgl64.Vec3) int {
	return g.index(g.coord(pos.X()), g.coord(pos.Y()), g.coord(pos.Z()))
}

// Insert adds cell index i at pos. Returns false when the bucket is full (soft clip).
func (g *Grid) Insert(i int32, pos mgl64.Vec3) bool {
	b := &g.buckets[g.BucketOf(pos)]
	if b.Count >= BucketCapacity {
		g.dropped++
		return false
	}
	b.Entries[b.Count] = i
	b.Count++
	return true
}

// Rebuild clears the grid and inserts cells [0, n) in index order using the given
// coordinate columns. Returns the number of refused insertions.
func (g *Grid) Rebuild(xs, ys, zs []float64, n int) int {
	g.Clear()
	for i := 0; i < n; i++ {
		g.Insert(int32(i), mgl64.Vec3{xs[i], ys[i], zs[i]})
	}
	return g.dropped
}

// At returns the indices stored in the bucket at flat index b. The slice aliases grid
// memory and is only valid until the next Clear or Rebuild.
func (g *Grid) At(b int) []int32 {
	bucket := &g.buckets[b]
	return bucket.Entries[:bucket.Count]
}

// Query appends to dst the indices from every bucket overlapping the cube of half-width
// radius around pos, and returns the extended slice. Results are ordered by bucket
// (z, y, x) and then insertion order; no deduplication is needed because each cell lives in
// exactly one bucket. Query only reads the grid and is safe for concurrent use.
func (g *Grid) Query(pos mgl64.Vec3, radius float64, dst []int32) []int32 {
	span := int(math.Ceil(radius / g.cellSize))
	cx, cy, cz := g.coord(pos.X()), g.coord(pos.Y()), g.coord(pos.Z())
	minX, maxX := clampRange(cx-span, cx+span, g.resolution)
	minY, maxY := clampRange(cy-span, cy+span, g.resolution)
	minZ, maxZ := clampRange(cz-span, cz+span, g.resolution)
	for z := minZ; z <= maxZ; z++ {
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				bucket := &g.buckets[g.index(x, y, z)]
				dst = append(dst, bucket.Entries[:bucket.Count]...)
			}
		}
	}
	return dst
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	return lo, hi
}
