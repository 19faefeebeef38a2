package cmd

import (
	"fmt"

	"github.com/octoweave/octoweave/internal/levelpolicy"
	"github.com/octoweave/octoweave/internal/octoconfig"
)

// strategyFromConfig translates the config file's policy.strategy string
// (the names octoconfig.Config.Validate accepts) into the levelpolicy
// package's own Strategy constants, and assembles the rest of the spec from
// the matching PolicyConfig fields.
func strategyFromConfig(pc octoconfig.PolicyConfig) (levelpolicy.PolicySpec, error) {
	spec := levelpolicy.PolicySpec{
		Level:      pc.Level,
		Levels:     pc.Levels,
		MinLevel:   pc.MinLevel,
		MaxLevel:   pc.MaxLevel,
		QLo:        pc.QLo,
		QHi:        pc.QHi,
		Threshold:  pc.Threshold,
		Thresholds: pc.Bands,
	}

	switch pc.Strategy {
	case "uniform":
		spec.Strategy = levelpolicy.Uniform
	case "explicit":
		spec.Strategy = levelpolicy.Explicit
	case "leaf_count_linear":
		spec.Strategy = levelpolicy.ByLeafCountLinear
		spec.LMin, spec.LMax = pc.MinLevel, pc.MaxLevel
	case "leaf_count_quantiles":
		spec.Strategy = levelpolicy.ByLeafCountQuantiles
	case "mean_prob_threshold":
		spec.Strategy = levelpolicy.ByMeanProbThreshold
	case "bands_by_count":
		spec.Strategy = levelpolicy.BandsByCount
	case "bands_by_mean_prob":
		spec.Strategy = levelpolicy.BandsByMeanProb
	default:
		return levelpolicy.PolicySpec{}, fmt.Errorf("unrecognized policy strategy: %q", pc.Strategy)
	}

	return spec, nil
}
