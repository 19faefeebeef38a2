// Package chunkgrid implements the uniform n-per-axis partition of an
// axis-aligned box that octoweave uses both for ingestion chunking and for
// forest brick partitioning.
package chunkgrid

// Key is a lattice coordinate triplet, interpreted relative to a specific
// depth or a specific brick tree depending on context.
type Key struct {
	X, Y, Z uint32
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max [3]float64
}

// Grid is a uniform n x n x n partition of an AABB.
type Grid struct {
	n   int
	box AABB
}

// New constructs a Grid over box with n cells per axis. n must be >= 1.
func New(n int, box AABB) Grid {
	return Grid{n: n, box: box}
}

// N returns the number of cells per axis.
func (g Grid) N() int {
	return g.n
}

// Box returns the grid's bounding box.
func (g Grid) Box() AABB {
	return g.box
}

// Which maps a point to its chunk indices and linear index, clamping
// coordinates outside the box to [0, n-1] on each axis (edge-on-max maps to
// n-1).
func (g Grid) Which(x, y, z float64) (ix, iy, iz, idx int) {
	ix = g.axisIndex(x, 0)
	iy = g.axisIndex(y, 1)
	iz = g.axisIndex(z, 2)
	idx = ix + g.n*(iy+g.n*iz)
	return
}

func (g Grid) axisIndex(v float64, axis int) int {
	lo, hi := g.box.Min[axis], g.box.Max[axis]
	n := g.n
	if n <= 1 {
		return 0
	}
	if v <= lo {
		return 0
	}
	if v >= hi {
		return n - 1
	}
	span := hi - lo
	cell := span / float64(n)
	i := int((v - lo) / cell)
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return i
}

// ChunkBox returns the bounding box of the cell at (ix,iy,iz).
func (g Grid) ChunkBox(ix, iy, iz int) AABB {
	var out AABB
	for axis, i := range [3]int{ix, iy, iz} {
		lo, hi := g.box.Min[axis], g.box.Max[axis]
		cell := (hi - lo) / float64(g.n)
		out.Min[axis] = lo + float64(i)*cell
		out.Max[axis] = lo + float64(i+1)*cell
	}
	return out
}

// Unravel inverts the linearization idx = ix + n*(iy + n*iz).
func (g Grid) Unravel(idx int) (ix, iy, iz int) {
	n := g.n
	ix = idx % n
	rest := idx / n
	iy = rest % n
	iz = rest / n
	return
}

// Count returns the total number of cells, n^3.
func (g Grid) Count() int {
	return g.n * g.n * g.n
}
