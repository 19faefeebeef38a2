// Package capi exposes octoweave's four programmatic entry points through
// cgo, for embedding in non-Go hosts. Handles are opaque ints indexing into
// a process-local, mutex-guarded table; no Go pointer ever crosses the cgo
// boundary, following the opaque-handle discipline of the C reference API
// this wraps (ow_hierarchy_t / ow_forest_t).
package main

/*
#include <stdlib.h>

typedef struct {
	double res;
	double prob_hit;
	double prob_miss;
	double clamp_min;
	double clamp_max;
	double origin_xyz[3];
	double max_range;
	int lazy_eval;
	int discretize;
	double emit_res;
	int max_depth_cap;
} ow_chunk_params_t;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/forest"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/levelpolicy"
	"github.com/octoweave/octoweave/internal/occupancy"
)

var (
	handleMu     sync.Mutex
	nextHandle   C.int = 1
	hierarchies        = make(map[C.int]hierarchy.Hierarchy)
	forests            = make(map[C.int]*forest.Handle)
)

func storeHierarchy(h hierarchy.Hierarchy) C.int {
	handleMu.Lock()
	defer handleMu.Unlock()
	id := nextHandle
	nextHandle++
	hierarchies[id] = h
	return id
}

func storeForest(f *forest.Handle) C.int {
	handleMu.Lock()
	defer handleMu.Unlock()
	id := nextHandle
	nextHandle++
	forests[id] = f
	return id
}

// octoweave_build_hierarchy builds a hierarchy from a flat xyz point array
// (length 3*count) using a single occupancy chunk spanning [0,1]^3, and
// returns an opaque hierarchy handle, or 0 on failure.
//
//export octoweave_build_hierarchy
func octoweave_build_hierarchy(xyz *C.double, count C.size_t, params *C.ow_chunk_params_t, tau, pUnknown C.double, baseDepth C.int) C.int {
	if xyz == nil || params == nil || count == 0 {
		return 0
	}

	n := int(count)
	points := make([]occupancy.Point3, n)
	slice := unsafe.Slice(xyz, 3*n)
	for i := 0; i < n; i++ {
		points[i] = occupancy.Point3{X: float64(slice[3*i]), Y: float64(slice[3*i+1]), Z: float64(slice[3*i+2])}
	}

	occCfg := occupancy.Config{
		Box:         chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}},
		Res:         float64(params.res),
		ProbHit:     float64(params.prob_hit),
		ProbMiss:    float64(params.prob_miss),
		ClampMin:    float64(params.clamp_min),
		ClampMax:    float64(params.clamp_max),
		Origin:      occupancy.Point3{X: float64(params.origin_xyz[0]), Y: float64(params.origin_xyz[1]), Z: float64(params.origin_xyz[2])},
		MaxRange:    float64(params.max_range),
		LazyEval:    params.lazy_eval != 0,
		Discretize:  params.discretize != 0,
		EmitRes:     float64(params.emit_res),
		MaxDepthCap: int(params.max_depth_cap),
	}

	out, err := occupancy.Emit(points, occCfg)
	if err != nil {
		return 0
	}

	h, err := hierarchy.Build([]occupancy.Output{out}, hierarchy.BuildConfig{
		Tau:       float64(tau),
		PUnknown:  float64(pUnknown),
		BaseDepth: uint8(int(baseDepth)),
	})
	if err != nil {
		return 0
	}

	return storeHierarchy(h)
}

// octoweave_compute_levels computes per-tree levels by leaf-count quantiles
// for the hierarchy at handle h, writing n^3 ints into outLevels. Returns 0
// on success, non-zero on failure.
//
//export octoweave_compute_levels
func octoweave_compute_levels(h C.int, n C.int, qLo, qHi C.double, lLow, lMid, lHigh C.int, outLevels *C.int, outLen C.size_t) C.int {
	handleMu.Lock()
	hh, ok := hierarchies[h]
	handleMu.Unlock()
	if !ok || outLevels == nil || n <= 0 {
		return 1
	}

	total := int(n) * int(n) * int(n)
	if int(outLen) < total {
		return 2
	}

	spec := levelpolicy.PolicySpec{
		Strategy: levelpolicy.ByLeafCountQuantiles,
		QLo:      float64(qLo),
		QHi:      float64(qHi),
		LLow:     int(lLow),
		LMid:     int(lMid),
		LHigh:    int(lHigh),
		MinLevel: 0,
		MaxLevel: 30,
	}
	levels, err := levelpolicy.Compute(hh, int(n), spec)
	if err != nil {
		return 3
	}

	out := unsafe.Slice(outLevels, total)
	for i, lv := range levels {
		out[i] = C.int(lv)
	}
	return 0
}

// octoweave_build_forest materializes a uniform-level forest for the
// hierarchy at handle h and returns an opaque forest handle, or 0 on
// failure.
//
//export octoweave_build_forest
func octoweave_build_forest(h C.int, n, level C.int) C.int {
	handleMu.Lock()
	hh, ok := hierarchies[h]
	handleMu.Unlock()
	if !ok || n <= 0 {
		return 0
	}

	total := int(n) * int(n) * int(n)
	levels := make([]int, total)
	for i := range levels {
		levels[i] = int(level)
	}

	fh, err := forest.Build(hh, forest.Config{N: int(n), MinLevel: 0, MaxLevel: 30, Levels: levels})
	if err != nil {
		return 0
	}
	return storeForest(fh)
}

// octoweave_dispose_forest releases the forest handle f and removes it from
// the handle table. Safe to call more than once.
//
//export octoweave_dispose_forest
func octoweave_dispose_forest(f C.int) {
	handleMu.Lock()
	fh, ok := forests[f]
	if ok {
		delete(forests, f)
	}
	handleMu.Unlock()
	if ok {
		fh.Dispose()
	}
}

func main() {}
