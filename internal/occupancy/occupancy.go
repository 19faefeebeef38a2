// Package occupancy converts one chunk's point cloud into a sparse mapping
// from an integer key at a chosen emission depth to occupancy probability.
// The emitter is a pure function: identical points and configuration always
// produce a byte-identical worker output.
package occupancy

import (
	"math"
	"sync"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/octoerr"
	"github.com/octoweave/octoweave/internal/union"
)

// childSlotPool recycles the per-downsample-level parent-to-8-slot scratch
// map. It's safe under concurrent Emit calls (one per internal/parallel
// worker goroutine) since sync.Pool itself is concurrency-safe; pooling
// never leaks into Emit's returned Output, which is always a fresh map, so
// determinism is unaffected.
var childSlotPool = sync.Pool{
	New: func() interface{} {
		return make(map[chunkgrid.Key][8]float64, 64)
	},
}

func getChildSlots() map[chunkgrid.Key][8]float64 {
	return childSlotPool.Get().(map[chunkgrid.Key][8]float64)
}

func putChildSlots(m map[chunkgrid.Key][8]float64) {
	for k := range m {
		delete(m, k)
	}
	childSlotPool.Put(m)
}

// Point3 is a single 3D point, in the same coordinate space as Config.Box.
type Point3 struct {
	X, Y, Z float64
}

// Config carries every recognized occupancy option.
type Config struct {
	Box         chunkgrid.AABB // spatial extent this chunk's internal tree covers
	Res         float64        // finest internal voxel resolution; <=0 defaults to 1.0
	ProbHit     float64        // <=0 defaults to 0.7
	ProbMiss    float64        // <=0 defaults to 0.4
	ClampMin    float64        // <=0 defaults to 0.001
	ClampMax    float64        // <=0 defaults to 0.999
	Origin      Point3         // ray origin for free-space updates
	MaxRange    float64        // <=0 means unlimited
	LazyEval    bool           // hint to the underlying occupancy engine; no-op in this implementation
	Discretize  bool           // hint to the underlying occupancy engine; no-op in this implementation
	EmitRes     float64        // target emission cell size; <=0 means Res
	MaxDepthCap int            // <=0 means uncapped
}

// Output is one worker's contribution: a sparse probability map at a single
// emission depth TD.
type Output struct {
	TD  uint8
	Ptd map[chunkgrid.Key]float64
}

const maxDepth = 30

func (c Config) resolved() (res, emitRes, probHit, probMiss, clampMin, clampMax float64) {
	res = c.Res
	if res <= 0 {
		res = 1.0
	}
	emitRes = c.EmitRes
	if emitRes <= 0 {
		emitRes = res
	}
	probHit = c.ProbHit
	if probHit <= 0 {
		probHit = 0.7
	}
	probMiss = c.ProbMiss
	if probMiss <= 0 {
		probMiss = 0.4
	}
	clampMin = c.ClampMin
	if clampMin <= 0 {
		clampMin = 0.001
	}
	clampMax = c.ClampMax
	if clampMax <= 0 {
		clampMax = 0.999
	}
	return
}

func depthForVoxelSize(extent, voxel float64) int {
	if extent <= 0 || voxel <= 0 {
		return 0
	}
	d := 0
	size := extent
	for size > voxel && d < maxDepth {
		size /= 2
		d++
	}
	return d
}

func clampProb(p, lo, hi float64) float64 {
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

// Emit is a pure function of points and cfg: it builds a sparse
// finest-resolution probability map, applies hit/miss updates, clamps, then
// downsamples to the requested emission resolution by repeated parent
// combination through union.Eight.
func Emit(points []Point3, cfg Config) (Output, error) {
	res, emitRes, probHit, probMiss, clampMin, clampMax := cfg.resolved()
	if clampMin >= clampMax {
		return Output{}, octoerr.Invalid("clamp_min must be less than clamp_max", nil)
	}

	extent := cfg.Box.Max[0] - cfg.Box.Min[0]
	for axis := 1; axis < 3; axis++ {
		if span := cfg.Box.Max[axis] - cfg.Box.Min[axis]; span > extent {
			extent = span
		}
	}
	if extent <= 0 {
		extent = 1.0
	}

	internalDepth := depthForVoxelSize(extent, res)
	emitDepth := depthForVoxelSize(extent, emitRes)
	if emitDepth > internalDepth {
		emitDepth = internalDepth
	}
	if cfg.MaxDepthCap > 0 && cfg.MaxDepthCap < emitDepth {
		emitDepth = cfg.MaxDepthCap
	}
	if cfg.MaxDepthCap > 0 && cfg.MaxDepthCap < internalDepth {
		internalDepth = cfg.MaxDepthCap
	}
	if internalDepth > maxDepth || emitDepth > maxDepth {
		return Output{}, octoerr.Capacity("requested depth exceeds 30-bit key capacity", nil)
	}

	finest := make(map[chunkgrid.Key]float64, len(points))
	side := uint32(1) << uint(internalDepth)
	voxel := extent / float64(side)

	keyFor := func(p Point3) chunkgrid.Key {
		return chunkgrid.Key{
			X: axisIndex(p.X, cfg.Box.Min[0], voxel, side),
			Y: axisIndex(p.Y, cfg.Box.Min[1], voxel, side),
			Z: axisIndex(p.Z, cfg.Box.Min[2], voxel, side),
		}
	}

	hitSentinel := probHit
	for _, p := range points {
		if cfg.MaxRange > 0 {
			dx, dy, dz := p.X-cfg.Origin.X, p.Y-cfg.Origin.Y, p.Z-cfg.Origin.Z
			if math.Sqrt(dx*dx+dy*dy+dz*dz) > cfg.MaxRange {
				continue
			}
		}

		markFreeCellsAlongRay(finest, cfg.Origin, p, cfg.Box.Min, voxel, side, probMiss, clampMin, clampMax, keyFor)

		k := keyFor(p)
		existing, ok := finest[k]
		if !ok {
			finest[k] = clampProb(hitSentinel, clampMin, clampMax)
			continue
		}
		finest[k] = clampProb(union.Two(existing, hitSentinel, hitSentinel), clampMin, clampMax)
	}

	levels := internalDepth - emitDepth
	current := finest
	for i := 0; i < levels; i++ {
		next := make(map[chunkgrid.Key]float64, len(current))
		children := getChildSlots()
		present := make(map[chunkgrid.Key][8]bool)
		for k, v := range current {
			parent := chunkgrid.Key{X: k.X >> 1, Y: k.Y >> 1, Z: k.Z >> 1}
			idx := childIndex(k)
			slots := children[parent]
			slots[idx] = v
			children[parent] = slots
			pres := present[parent]
			pres[idx] = true
			present[parent] = pres
		}
		for parent, slots := range children {
			pres := present[parent]
			var arr [8]float64
			for i := 0; i < 8; i++ {
				if pres[i] {
					arr[i] = slots[i]
				} else {
					arr[i] = hitSentinel
				}
			}
			next[parent] = clampProb(union.Eight(arr, hitSentinel), clampMin, clampMax)
		}
		putChildSlots(children)
		current = next
	}

	return Output{TD: uint8(emitDepth), Ptd: current}, nil
}

func childIndex(k chunkgrid.Key) int {
	idx := 0
	if k.X&1 != 0 {
		idx |= 1
	}
	if k.Y&1 != 0 {
		idx |= 2
	}
	if k.Z&1 != 0 {
		idx |= 4
	}
	return idx
}

func axisIndex(v, min, voxel float64, side uint32) uint32 {
	if voxel <= 0 {
		return 0
	}
	rel := v - min
	if rel < 0 {
		return 0
	}
	i := uint32(rel / voxel)
	if i >= side {
		i = side - 1
	}
	return i
}

// markFreeCellsAlongRay walks from origin to hit in voxel-sized steps and
// applies a miss update to every strictly-intermediate cell it crosses.
func markFreeCellsAlongRay(
	finest map[chunkgrid.Key]float64,
	origin, hit Point3,
	boxMin [3]float64,
	voxel float64,
	side uint32,
	probMiss, clampMin, clampMax float64,
	keyFor func(Point3) chunkgrid.Key,
) {
	dx, dy, dz := hit.X-origin.X, hit.Y-origin.Y, hit.Z-origin.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist <= voxel {
		return
	}
	steps := int(dist / voxel)
	if steps < 1 {
		return
	}

	hitKey := keyFor(hit)
	for s := 1; s < steps; s++ {
		t := float64(s) / float64(steps)
		p := Point3{X: origin.X + t*dx, Y: origin.Y + t*dy, Z: origin.Z + t*dz}
		k := keyFor(p)
		if k == hitKey {
			continue
		}
		existing, ok := finest[k]
		if !ok {
			finest[k] = clampProb(probMiss, clampMin, clampMax)
			continue
		}
		finest[k] = clampProb(union.Two(existing, probMiss, probMiss), clampMin, clampMax)
	}
}
