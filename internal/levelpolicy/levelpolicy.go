// Package levelpolicy computes per-tree target refinement levels from
// hierarchy statistics. It depends only on forest.Split for the tree-local
// key projection, never on the forest backend itself, so the policy engine
// stays usable before a forest is ever built.
package levelpolicy

import (
	"math"
	"sort"

	"github.com/octoweave/octoweave/internal/forest"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/octoerr"
)

// Strategy names one of the seven recognized level-assignment policies.
type Strategy string

const (
	Uniform              Strategy = "uniform"
	Explicit             Strategy = "explicit"
	ByLeafCountLinear    Strategy = "by_leafcount_linear"
	ByLeafCountQuantiles Strategy = "by_leafcount_quantiles"
	ByMeanProbThreshold  Strategy = "by_mean_prob_threshold"
	BandsByCount         Strategy = "bands_by_count"
	BandsByMeanProb      Strategy = "bands_by_mean_prob"
)

// PolicySpec selects a strategy and carries every strategy's parameters;
// only the fields relevant to Strategy are read.
type PolicySpec struct {
	Strategy Strategy

	Level  int   // Uniform
	Levels []int // Explicit, length must equal tree count

	LMin, LMax int // ByLeafCountLinear

	QLo, QHi                 float64 // ByLeafCountQuantiles
	LLow, LMid, LHigh        int     // ByLeafCountQuantiles, ByMeanProbThreshold (LLow/LHigh only)

	Threshold float64 // ByMeanProbThreshold

	Thresholds []float64 // BandsByCount, BandsByMeanProb, strictly ascending
	BandLevels []int     // len(BandLevels) must equal len(Thresholds)+1

	MinLevel, MaxLevel int
}

// TreeStats accumulates, for one root tree, the leaf count and probability
// sum of every td-depth hierarchy leaf projected into it.
type TreeStats struct {
	LeafCount int
	ProbSum   float64
}

// Mean returns the tree's mean leaf probability, 0 for an empty tree.
func (s TreeStats) Mean() float64 {
	if s.LeafCount == 0 {
		return 0
	}
	return s.ProbSum / float64(s.LeafCount)
}

// Config carries the level clamp bounds shared by every strategy.
type Config struct {
	MinLevel, MaxLevel int
}

// Policy computes one target level per tree from accumulated statistics.
type Policy interface {
	Levels(stats []TreeStats, cfg Config) ([]int, error)
}

// Compute projects every td-depth hierarchy leaf into its tree via
// forest.Split, accumulates per-tree statistics, and dispatches to the
// strategy named by spec.
func Compute(h hierarchy.Hierarchy, n int, spec PolicySpec) ([]int, error) {
	if n <= 0 {
		return nil, octoerr.Invalid("n must be positive", nil)
	}
	total := n * n * n

	stats := make([]TreeStats, total)
	for ndk, node := range h.Nodes {
		if !node.IsLeaf || ndk.Depth != h.TD {
			continue
		}
		tree, _ := forest.Split(ndk.Key, ndk.Depth, n)
		t := forest.TreeIndex(tree, n)
		stats[t].LeafCount++
		stats[t].ProbSum += node.Probability
	}

	policy, err := buildPolicy(spec)
	if err != nil {
		return nil, err
	}
	return policy.Levels(stats, Config{MinLevel: spec.MinLevel, MaxLevel: spec.MaxLevel})
}

func buildPolicy(spec PolicySpec) (Policy, error) {
	switch spec.Strategy {
	case Uniform:
		return UniformPolicy{Level: spec.Level}, nil
	case Explicit:
		return ExplicitPolicy{Levels: spec.Levels}, nil
	case ByLeafCountLinear:
		return ByLeafCountLinearPolicy{LMin: spec.LMin, LMax: spec.LMax}, nil
	case ByLeafCountQuantiles:
		return ByLeafCountQuantilesPolicy{QLo: spec.QLo, QHi: spec.QHi, LLow: spec.LLow, LMid: spec.LMid, LHigh: spec.LHigh}, nil
	case ByMeanProbThreshold:
		return ByMeanProbThresholdPolicy{Threshold: spec.Threshold, LLow: spec.LLow, LHigh: spec.LHigh}, nil
	case BandsByCount:
		return BandsByCountPolicy{Thresholds: spec.Thresholds, Levels: spec.BandLevels}, nil
	case BandsByMeanProb:
		return BandsByMeanProbPolicy{Thresholds: spec.Thresholds, Levels: spec.BandLevels}, nil
	default:
		return nil, octoerr.Invalid("unrecognized level-policy strategy", nil)
	}
}

// UniformPolicy assigns the same level to every tree.
type UniformPolicy struct{ Level int }

func (p UniformPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	out := make([]int, len(stats))
	for i := range out {
		out[i] = clamp(p.Level, cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

// ExplicitPolicy assigns a precomputed level per tree.
type ExplicitPolicy struct{ Levels []int }

func (p ExplicitPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	if len(p.Levels) != len(stats) {
		return nil, octoerr.Invalid("explicit levels length must equal tree count", nil)
	}
	out := make([]int, len(p.Levels))
	for i, lv := range p.Levels {
		out[i] = clamp(lv, cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

// ByLeafCountLinearPolicy linearly maps each tree's leaf count between
// [c_min, c_max] onto [LMin, LMax], rounded and clamped.
type ByLeafCountLinearPolicy struct{ LMin, LMax int }

func (p ByLeafCountLinearPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	out := make([]int, len(stats))
	if len(stats) == 0 {
		return out, nil
	}
	cmin, cmax := stats[0].LeafCount, stats[0].LeafCount
	for _, s := range stats {
		if s.LeafCount < cmin {
			cmin = s.LeafCount
		}
		if s.LeafCount > cmax {
			cmax = s.LeafCount
		}
	}
	for i, s := range stats {
		var lv int
		if cmin == cmax {
			lv = p.LMin
		} else {
			t := float64(s.LeafCount-cmin) / float64(cmax-cmin)
			lv = int(math.Round(float64(p.LMin) + t*float64(p.LMax-p.LMin)))
		}
		out[i] = clamp(lv, cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

// ByLeafCountQuantilesPolicy buckets trees by leaf-count quantile.
type ByLeafCountQuantilesPolicy struct {
	QLo, QHi          float64
	LLow, LMid, LHigh int
}

func (p ByLeafCountQuantilesPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	if p.QLo > p.QHi {
		return nil, octoerr.Invalid("q_lo must be <= q_hi", nil)
	}
	n := len(stats)
	out := make([]int, n)
	if n == 0 {
		return out, nil
	}

	counts := make([]int, n)
	for i, s := range stats {
		counts[i] = s.LeafCount
	}
	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)

	qlo := clampFloat(p.QLo, 0, 1)
	qhi := clampFloat(p.QHi, 0, 1)
	loThresh := sorted[int(math.Round(qlo*float64(n-1)))]
	hiThresh := sorted[int(math.Round(qhi*float64(n-1)))]

	for i, c := range counts {
		var lv int
		switch {
		case c <= loThresh:
			lv = p.LLow
		case c >= hiThresh:
			lv = p.LHigh
		default:
			lv = p.LMid
		}
		out[i] = clamp(lv, cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

// ByMeanProbThresholdPolicy assigns LHigh to trees whose mean leaf
// probability meets Threshold, LLow otherwise.
type ByMeanProbThresholdPolicy struct {
	Threshold  float64
	LLow, LHigh int
}

func (p ByMeanProbThresholdPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	out := make([]int, len(stats))
	for i, s := range stats {
		lv := p.LLow
		if s.Mean() >= p.Threshold {
			lv = p.LHigh
		}
		out[i] = clamp(lv, cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

// BandsByCountPolicy assigns levels by walking strictly ascending leaf-count
// thresholds; a tree's band is the first threshold it does not exceed.
// Mis-sized Thresholds/Levels fall back to Uniform(0).
type BandsByCountPolicy struct {
	Thresholds []float64
	Levels     []int
}

func (p BandsByCountPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	return bandLevels(p.Thresholds, p.Levels, func(s TreeStats) float64 { return float64(s.LeafCount) }, stats, cfg)
}

// BandsByMeanProbPolicy is BandsByCountPolicy over mean leaf probability.
type BandsByMeanProbPolicy struct {
	Thresholds []float64
	Levels     []int
}

func (p BandsByMeanProbPolicy) Levels(stats []TreeStats, cfg Config) ([]int, error) {
	return bandLevels(p.Thresholds, p.Levels, func(s TreeStats) float64 { return s.Mean() }, stats, cfg)
}

func bandLevels(thresholds []float64, levels []int, metric func(TreeStats) float64, stats []TreeStats, cfg Config) ([]int, error) {
	if len(levels) != len(thresholds)+1 {
		return UniformPolicy{Level: 0}.Levels(stats, cfg)
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return UniformPolicy{Level: 0}.Levels(stats, cfg)
		}
	}

	out := make([]int, len(stats))
	for i, s := range stats {
		v := metric(s)
		b := len(thresholds)
		for j, th := range thresholds {
			if v <= th {
				b = j
				break
			}
		}
		out[i] = clamp(levels[b], cfg.MinLevel, cfg.MaxLevel)
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
