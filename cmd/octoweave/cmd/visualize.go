package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octoweave/octoweave/internal/leafio"
	"github.com/octoweave/octoweave/internal/viz"
)

var (
	vizInput  string
	vizSliceZ uint32
	vizDepth  uint8
	vizOutPGM string
	vizOutSVG string
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Render a PGM slice (and optional histogram SVG) from a hierarchy leaf CSV",
	RunE:  runVisualize,
}

func init() {
	visualizeCmd.Flags().StringVarP(&vizInput, "input", "i", "", "Input hierarchy leaf CSV")
	visualizeCmd.Flags().Uint32Var(&vizSliceZ, "slice-z", 0, "Z coordinate of the slice to render")
	visualizeCmd.Flags().Uint8Var(&vizDepth, "depth", 0, "Depth of leaves to render")
	visualizeCmd.Flags().StringVarP(&vizOutPGM, "out-pgm", "o", "", "Output PGM slice path")
	visualizeCmd.Flags().StringVar(&vizOutSVG, "out-svg", "", "Optional output histogram SVG path")
	visualizeCmd.MarkFlagRequired("input")
	visualizeCmd.MarkFlagRequired("out-pgm")
	visualizeCmd.MarkFlagRequired("depth")
	rootCmd.AddCommand(visualizeCmd)
}

func runVisualize(c *cobra.Command, args []string) error {
	leaves, err := leafio.ReadFile(vizInput)
	if err != nil {
		return fmt.Errorf("failed to read leaf CSV: %w", err)
	}

	params := viz.Params{SliceZ: vizSliceZ, Depth: vizDepth, OutPGM: vizOutPGM, OutSVG: vizOutSVG}
	if err := viz.Render(leaves, params); err != nil {
		return fmt.Errorf("failed to render visualization: %w", err)
	}
	logger.Info("rendered slice to %s", vizOutPGM)
	return nil
}
