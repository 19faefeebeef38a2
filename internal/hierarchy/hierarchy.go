// Package hierarchy builds the sparse probabilistic occupancy hierarchy:
// per-chunk worker outputs are merged, rolled up bottom-up through the
// stable union kernel, and emitted as a sparse node set gated by a
// probability threshold and by child evidence.
package hierarchy

import (
	"math"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/occupancy"
	"github.com/octoweave/octoweave/internal/octoerr"
	"github.com/octoweave/octoweave/internal/union"
)

const maxDepth = 30

// NDKey is a depth-qualified key, used as a map key for Hierarchy.Nodes.
type NDKey struct {
	Key   chunkgrid.Key
	Depth uint8
}

// Node is a single hierarchy node.
type Node struct {
	Probability float64
	IsLeaf      bool
}

// Hierarchy is the sparse, immutable node set produced by Build.
type Hierarchy struct {
	Nodes     map[NDKey]Node
	BaseDepth uint8
	TD        uint8
}

// BuildConfig carries Build's tunables.
type BuildConfig struct {
	Tau        float64 // refinement threshold, in probability or log-odds space per UseLogOdds
	UseLogOdds bool
	PUnknown   float64
	BaseDepth  uint8
}

func clampUnit(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func passes(p, tau float64, useLogOdds bool) bool {
	if !useLogOdds {
		return p >= tau
	}
	if p <= 0 {
		return math.Inf(-1) >= tau
	}
	if p >= 1 {
		return math.Inf(1) >= tau
	}
	return math.Log(p/(1-p)) >= tau
}

func parentOf(k chunkgrid.Key) chunkgrid.Key {
	return chunkgrid.Key{X: k.X >> 1, Y: k.Y >> 1, Z: k.Z >> 1}
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

func childKey(parent chunkgrid.Key, childIdx int) chunkgrid.Key {
	return chunkgrid.Key{
		X: parent.X*2 + uint32(childIdx&1),
		Y: parent.Y*2 + uint32((childIdx>>1)&1),
		Z: parent.Z*2 + uint32((childIdx>>2)&1),
	}
}

// Build implements the three-step hierarchy construction: global-td merge,
// bottom-up roll-up through the stable union, and evidence-gated emission.
func Build(outputs []occupancy.Output, cfg BuildConfig) (Hierarchy, error) {
	pUnknown := clampUnit(cfg.PUnknown)

	var td uint8
	for _, o := range outputs {
		if o.TD > td {
			td = o.TD
		}
	}
	if int(cfg.BaseDepth) > int(td) {
		return Hierarchy{}, octoerr.Invalid("base_depth must be <= td", nil)
	}
	if int(td) > maxDepth {
		return Hierarchy{}, octoerr.Capacity("td exceeds 30-bit key capacity", nil)
	}

	// Step 1: merge every worker's map into the layer at its own td.
	layers := make(map[uint8]map[chunkgrid.Key]float64)
	for _, o := range outputs {
		layer := layers[o.TD]
		if layer == nil {
			layer = make(map[chunkgrid.Key]float64)
			layers[o.TD] = layer
		}
		for k, v := range o.Ptd {
			v = clampUnit(v)
			if existing, ok := layer[k]; ok {
				layer[k] = union.Two(existing, v, pUnknown)
			} else {
				layer[k] = v
			}
		}
	}

	// Step 2: roll up from td-1 down to base_depth.
	for d := int(td) - 1; d >= int(cfg.BaseDepth); d-- {
		children := layers[uint8(d+1)]
		layer := layers[uint8(d)]
		if layer == nil && len(children) > 0 {
			layer = make(map[chunkgrid.Key]float64)
		}

		groups := make(map[chunkgrid.Key][8]float64)
		present := make(map[chunkgrid.Key][8]bool)
		for k, v := range children {
			parent := parentOf(k)
			idx := childIndex(k)
			slots := groups[parent]
			slots[idx] = v
			groups[parent] = slots
			pres := present[parent]
			pres[idx] = true
			present[parent] = pres
		}

		for parent, slots := range groups {
			pres := present[parent]
			var arr [8]float64
			for i := 0; i < 8; i++ {
				if pres[i] {
					arr[i] = slots[i]
				} else {
					arr[i] = pUnknown
				}
			}
			rolled := union.Eight(arr, pUnknown)
			if existing, ok := layer[parent]; ok {
				layer[parent] = union.Two(existing, rolled, pUnknown)
			} else {
				layer[parent] = rolled
			}
		}

		if layer != nil {
			layers[uint8(d)] = layer
		}
	}

	// Step 3: evidence-gated emission, starting from base_depth.
	nodes := make(map[NDKey]Node)
	base := layers[cfg.BaseDepth]
	for k, p := range base {
		classify(nodes, layers, k, cfg.BaseDepth, td, p, cfg.Tau, cfg.UseLogOdds, pUnknown)
	}

	return Hierarchy{Nodes: nodes, BaseDepth: cfg.BaseDepth, TD: td}, nil
}

func classify(
	nodes map[NDKey]Node,
	layers map[uint8]map[chunkgrid.Key]float64,
	k chunkgrid.Key,
	depth, td uint8,
	p, tau float64,
	useLogOdds bool,
	pUnknown float64,
) {
	var presentChildren []chunkgrid.Key
	if depth < td {
		childLayer := layers[depth+1]
		for i := 0; i < 8; i++ {
			ck := childKey(k, i)
			if _, ok := childLayer[ck]; ok {
				presentChildren = append(presentChildren, ck)
			}
		}
	}

	isInternal := depth < td && passes(p, tau, useLogOdds) && len(presentChildren) > 0
	nodes[NDKey{Key: k, Depth: depth}] = Node{Probability: p, IsLeaf: !isInternal}

	if !isInternal {
		return
	}
	childLayer := layers[depth+1]
	for _, ck := range presentChildren {
		classify(nodes, layers, ck, depth+1, td, childLayer[ck], tau, useLogOdds, pUnknown)
	}
}
