package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/forest"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/leafio"
)

var (
	materializeInput  string
	materializeLevels string
	materializeOutput string
	materializeTD     int
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Materialize a forest of balanced octrees from a hierarchy leaf CSV and per-tree levels",
	RunE:  runMaterialize,
}

func init() {
	materializeCmd.Flags().StringVarP(&materializeInput, "input", "i", "", "Input hierarchy leaf CSV")
	materializeCmd.Flags().StringVar(&materializeLevels, "levels", "", "Input levels JSON, from the levels command")
	materializeCmd.Flags().StringVarP(&materializeOutput, "output", "o", "", "Output quadrant CSV: tree,level,x,y,z,prob")
	materializeCmd.Flags().IntVar(&materializeTD, "td", 0, "Hierarchy's TD depth; 0 infers it as the max depth seen in the input")
	materializeCmd.MarkFlagRequired("input")
	materializeCmd.MarkFlagRequired("levels")
	materializeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(materializeCmd)
}

func runMaterialize(c *cobra.Command, args []string) error {
	leaves, err := leafio.ReadFile(materializeInput)
	if err != nil {
		return fmt.Errorf("failed to read leaf CSV: %w", err)
	}

	td := uint8(materializeTD)
	if materializeTD == 0 {
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

	raw, err := os.ReadFile(materializeLevels)
	if err != nil {
		return fmt.Errorf("failed to read levels JSON: %w", err)
	}
	var levels []int
	if err := json.Unmarshal(raw, &levels); err != nil {
		return fmt.Errorf("failed to decode levels JSON: %w", err)
	}

	fcfg := forest.Config{
		N:        cfg.Grid.N,
		MinLevel: cfg.Policy.MinLevel,
		MaxLevel: cfg.Policy.MaxLevel,
		Levels:   levels,
	}
	handle, err := forest.Build(h, fcfg)
	if err != nil {
		return fmt.Errorf("failed to materialize forest: %w", err)
	}
	defer handle.Dispose()

	out, err := os.Create(materializeOutput)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	count := 0
	handle.VisitLeaves(func(tree int, q forest.Quadrant) {
		fmt.Fprintf(out, "%d,%d,%d,%d,%d,%g\n", tree, q.Level, q.X, q.Y, q.Z, q.Prob)
		count++
	})
	logger.Info("materialized %d quadrant(s) across %d tree(s)", count, handle.N()*handle.N()*handle.N())
	return nil
}
