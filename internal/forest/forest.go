// Package forest maps a built hierarchy onto an n x n x n brick of root
// octrees: tree-local key derivation, content-gated uniform refinement,
// 2:1 balancing across tree boundaries, and per-quadrant mean aggregation.
//
// Split is the pure key derivation the level-policy engine depends on; it
// carries no dependency on Build or on any backend, so levelpolicy can
// import it without pulling in the forest materializer itself.
//
// Build itself delegates to a backend interface rather than materializing
// trees directly: the five-call protocol (NewBrick, Refine, Balance,
// VisitLeaves, Dispose) is the seam a real, possibly GPU-resident or
// out-of-process octree engine would sit behind. refBackend, the only
// implementation here, is a pure in-process reference that operates on
// plain slices and maps.
package forest

import (
	"sync/atomic"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/octoerr"
)

// Split derives a node key's tree-local coordinates: tree = k mod n (which
// root of the brick), local = k div n (coordinates within that root). d is
// accepted for interface symmetry with the depth-qualified key but does not
// enter the formula.
func Split(k chunkgrid.Key, d uint8, n int) (tree, local chunkgrid.Key) {
	_ = d
	un := uint32(n)
	tree = chunkgrid.Key{X: k.X % un, Y: k.Y % un, Z: k.Z % un}
	local = chunkgrid.Key{X: k.X / un, Y: k.Y / un, Z: k.Z / un}
	return
}

// TreeIndex linearizes tree-local root coordinates: t.x + n*(t.y + n*t.z).
func TreeIndex(tree chunkgrid.Key, n int) int {
	return int(tree.X) + n*(int(tree.Y)+n*int(tree.Z))
}

// Quadrant is one materialized leaf: a cell at Level within its tree,
// carrying the aggregated occupancy mean.
type Quadrant struct {
	Level   uint8
	X, Y, Z uint32
	Prob    float64
}

// Config carries the brick shape and the already-computed per-tree target
// refinement levels (the output of levelpolicy.Compute).
type Config struct {
	N                  int
	MinLevel, MaxLevel int
	Levels             []int // length N^3
}

// State is the forest handle's lifecycle position.
type State int32

const (
	StateUninitialized State = iota
	StateBuilt
	StateDisposed
)

// maxBrickTrees bounds the brick a backend will allocate. It exists so a
// pathological N doesn't silently try to allocate N^3 per-tree slices; the
// reference backend fails closed with BackendFailure instead.
const maxBrickTrees = 1 << 16

// backend is the materialization engine a forest Handle delegates to. It's
// the pluggable extension point: swapping refBackend for one that drives a
// real (GPU-resident, out-of-process, SIMD) octree library requires no
// change to Build or Handle, only a new implementation of this interface.
type backend interface {
	// NewBrick allocates backend-side storage for an n x n x n tree grid.
	NewBrick(n int) error
	// Refine grows tree t toward targetLevel. hasContent gates the refine:
	// a tree with no content stays a single root quadrant at level 0.
	Refine(t, targetLevel int, hasContent bool, agg map[chunkgrid.Key]*leafAgg) error
	// Balance enforces 2:1 balancing across the brick's 26-connectivity and
	// materializes every tree's leaves at its balanced level.
	Balance() error
	// VisitLeaves calls visit once per materialized leaf, tree by tree.
	VisitLeaves(visit func(tree int, q Quadrant))
	// Dispose releases backend resources. Idempotent.
	Dispose()
}

// Handle owns a materialized forest. It must be released via Dispose, which
// is idempotent and infallible.
type Handle struct {
	n        int
	backend  backend
	disposed atomic.Bool
}

// N returns the brick's per-axis tree count.
func (h *Handle) N() int { return h.n }

// State reports the handle's current lifecycle state.
func (h *Handle) State() State {
	if h.disposed.Load() {
		return StateDisposed
	}
	return StateBuilt
}

// VisitLeaves calls visit once per materialized leaf, tree by tree. A no-op
// after Dispose.
func (h *Handle) VisitLeaves(visit func(tree int, q Quadrant)) {
	if h.disposed.Load() {
		return
	}
	h.backend.VisitLeaves(visit)
}

// Dispose releases backend resources. Safe to call more than once.
func (h *Handle) Dispose() {
	if h.disposed.CompareAndSwap(false, true) {
		h.backend.Dispose()
	}
}

type leafAgg struct {
	sum   float64
	count int
}

// Build implements the five-step materialization protocol against the
// reference backend: content detection, uniform content-gated refinement
// per tree, 2:1 balance across the brick's 26-connectivity, per-quadrant
// mean aggregation at each tree's target level, and write-down to the
// balanced (possibly finer) leaves.
func Build(h hierarchy.Hierarchy, cfg Config) (*Handle, error) {
	if cfg.N <= 0 {
		return nil, octoerr.Invalid("n must be positive", nil)
	}
	if cfg.MinLevel > cfg.MaxLevel {
		return nil, octoerr.Invalid("min_level must be <= max_level", nil)
	}
	n := cfg.N
	total := n * n * n
	if len(cfg.Levels) != total {
		return nil, octoerr.Invalid("levels must have length n^3", nil)
	}

	be := newRefBackend()
	if err := be.NewBrick(n); err != nil {
		return nil, err
	}

	targetLevel := make([]int, total)
	for i, lv := range cfg.Levels {
		targetLevel[i] = clampInt(lv, cfg.MinLevel, cfg.MaxLevel)
	}

	// Step 1: content detection and per-(tree, quadrant) aggregation,
	// projecting every td-depth leaf through Split.
	hasContent := make([]bool, total)
	aggregates := make([]map[chunkgrid.Key]*leafAgg, total)
	for ndk, node := range h.Nodes {
		if !node.IsLeaf || ndk.Depth != h.TD {
			continue
		}
		tree, local := Split(ndk.Key, ndk.Depth, n)
		t := TreeIndex(tree, n)
		hasContent[t] = true

		lt := targetLevel[t]
		shift := int(h.TD) - lt
		if shift < 0 {
			shift = 0
		}
		qk := chunkgrid.Key{X: local.X >> uint(shift), Y: local.Y >> uint(shift), Z: local.Z >> uint(shift)}

		byTree := aggregates[t]
		if byTree == nil {
			byTree = make(map[chunkgrid.Key]*leafAgg)
			aggregates[t] = byTree
		}
		agg := byTree[qk]
		if agg == nil {
			agg = &leafAgg{}
			byTree[qk] = agg
		}
		agg.sum += node.Probability
		agg.count++
	}

	// Steps 2-3: a quadrant in tree t refines iff has_content[t] and its
	// level is below Lt; since refinement repeats until no quadrant
	// satisfies the predicate, a content tree ends up as a full octree down
	// to Lt, and an empty tree stays a single root quadrant at level 0.
	for t := 0; t < total; t++ {
		if err := be.Refine(t, targetLevel[t], hasContent[t], aggregates[t]); err != nil {
			return nil, err
		}
	}

	// Step 4-6: balance 2:1 across full 26-connectivity, then materialize
	// each tree's leaves at its balanced level.
	if err := be.Balance(); err != nil {
		return nil, err
	}

	return &Handle{n: n, backend: be}, nil
}

// refBackend is the in-process reference backend: plain slices and maps,
// no external dependency. A production deployment could replace it with a
// backend that drives an out-of-process or GPU-resident octree library
// behind the same interface.
type refBackend struct {
	n           int
	total       int
	targetLevel []int
	level       []int
	aggregates  []map[chunkgrid.Key]*leafAgg

	leavesByTree [][]Quadrant
}

func newRefBackend() *refBackend {
	return &refBackend{}
}

func (b *refBackend) NewBrick(n int) error {
	total := n * n * n
	if total > maxBrickTrees {
		return octoerr.Backend("brick tree count exceeds backend capacity", nil)
	}
	b.n = n
	b.total = total
	b.targetLevel = make([]int, total)
	b.level = make([]int, total)
	b.aggregates = make([]map[chunkgrid.Key]*leafAgg, total)
	return nil
}

func (b *refBackend) Refine(t, targetLevel int, hasContent bool, agg map[chunkgrid.Key]*leafAgg) error {
	if t < 0 || t >= b.total {
		return octoerr.Backend("tree index out of range", nil)
	}
	b.targetLevel[t] = targetLevel
	if hasContent {
		b.level[t] = targetLevel
		b.aggregates[t] = agg
	}
	return nil
}

func (b *refBackend) Balance() error {
	balance(b.level, b.n)

	b.leavesByTree = make([][]Quadrant, b.total)
	for t := 0; t < b.total; t++ {
		lvl := b.level[t]
		side := uint32(1) << uint(lvl)
		byTree := b.aggregates[t]
		lt := b.targetLevel[t]
		downShift := uint(0)
		if lvl > lt {
			downShift = uint(lvl - lt)
		}

		leaves := make([]Quadrant, 0, side*side*side)
		for x := uint32(0); x < side; x++ {
			for y := uint32(0); y < side; y++ {
				for z := uint32(0); z < side; z++ {
					var prob float64
					if byTree != nil {
						ancestor := chunkgrid.Key{X: x >> downShift, Y: y >> downShift, Z: z >> downShift}
						if agg, ok := byTree[ancestor]; ok && agg.count > 0 {
							prob = agg.sum / float64(agg.count)
						}
					}
					leaves = append(leaves, Quadrant{Level: uint8(lvl), X: x, Y: y, Z: z, Prob: prob})
				}
			}
		}
		b.leavesByTree[t] = leaves
	}
	return nil
}

func (b *refBackend) VisitLeaves(visit func(tree int, q Quadrant)) {
	for t, leaves := range b.leavesByTree {
		for _, q := range leaves {
			visit(t, q)
		}
	}
}

func (b *refBackend) Dispose() {
	b.leavesByTree = nil
	b.aggregates = nil
}

var _ backend = (*refBackend)(nil)

// balance relaxes level to satisfy 2:1 balancing: no tree's level may be
// more than one below any of its 26-connected neighbors'.
func balance(level []int, n int) {
	total := n * n * n
	changed := true
	for changed {
		changed = false
		for i := 0; i < total; i++ {
			x := i % n
			y := (i / n) % n
			z := i / (n * n)
			for dz := -1; dz <= 1; dz++ {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 && dz == 0 {
							continue
						}
						nx, ny, nz := x+dx, y+dy, z+dz
						if nx < 0 || nx >= n || ny < 0 || ny >= n || nz < 0 || nz >= n {
							continue
						}
						nb := nx + n*(ny+n*nz)
						if level[nb] > level[i]+1 {
							level[i] = level[nb] - 1
							changed = true
						}
					}
				}
			}
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
