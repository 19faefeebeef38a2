package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/leafio"
	"github.com/octoweave/octoweave/internal/levelpolicy"
	"github.com/octoweave/octoweave/internal/octoerr"
)

var (
	levelsInput  string
	levelsOutput string
	levelsTD     int
	levelsLLow   int
	levelsLMid   int
	levelsLHigh  int
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Compute per-tree refinement levels from a built hierarchy's leaf CSV",
	RunE:  runLevels,
}

func init() {
	levelsCmd.Flags().StringVarP(&levelsInput, "input", "i", "", "Input hierarchy leaf CSV")
	levelsCmd.Flags().StringVarP(&levelsOutput, "output", "o", "", "Output levels JSON (one int per tree)")
	levelsCmd.Flags().IntVar(&levelsTD, "td", 0, "Hierarchy's TD depth; 0 infers it as the max depth seen in the input")
	levelsCmd.Flags().IntVar(&levelsLLow, "l-low", 0, "Low-band level for quantile/threshold strategies")
	levelsCmd.Flags().IntVar(&levelsLMid, "l-mid", 0, "Mid-band level for the quantile strategy")
	levelsCmd.Flags().IntVar(&levelsLHigh, "l-high", 0, "High-band level for quantile/threshold strategies")
	levelsCmd.MarkFlagRequired("input")
	levelsCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(levelsCmd)
}

func runLevels(c *cobra.Command, args []string) error {
	leaves, err := leafio.ReadFile(levelsInput)
	if err != nil {
		return fmt.Errorf("failed to read leaf CSV: %w", err)
	}

	td := uint8(levelsTD)
	if levelsTD == 0 {
		for _, l := range leaves {
			if l.Depth > td {
				td = l.Depth
			}
		}
	}

	nodes := make(map[hierarchy.NDKey]hierarchy.Node, len(leaves))
	for _, l := range leaves {
		if l.Depth != td {
			continue
		}
		k := chunkgrid.Key{X: l.X, Y: l.Y, Z: l.Z}
		nodes[hierarchy.NDKey{Key: k, Depth: l.Depth}] = hierarchy.Node{Probability: l.Prob, IsLeaf: true}
	}
	h := hierarchy.Hierarchy{Nodes: nodes, TD: td}

	spec, err := strategyFromConfig(cfg.Policy)
	if err != nil {
		return err
	}
	if levelsLLow != 0 || levelsLMid != 0 || levelsLHigh != 0 {
		spec.LLow, spec.LMid, spec.LHigh = levelsLLow, levelsLMid, levelsLHigh
	}

	levels, err := levelpolicy.Compute(h, cfg.Grid.N, spec)
	if err != nil {
		return fmt.Errorf("failed to compute levels: %w", err)
	}
	logger.Info("computed %d per-tree level(s) via %q", len(levels), cfg.Policy.Strategy)

	// Level vectors are small and read back once by `materialize`, not
	// reprocessed in bulk, so a plain json.Marshal is the right tool here.
	encoded, err := json.Marshal(levels)
	if err != nil {
		return octoerr.IO("failed to marshal levels JSON", err)
	}
	if err := os.WriteFile(levelsOutput, encoded, 0o644); err != nil {
		return octoerr.IO("failed to write levels JSON", err)
	}
	return nil
}
