// Package cmd implements the octoweave command-line tool: cobra subcommands
// for building a hierarchy from point-cloud input, computing per-tree
// levels, materializing a forest, exporting artifacts, and rendering a
// slice visualization.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/octoweave/octoweave/internal/octoconfig"
	"github.com/octoweave/octoweave/internal/octolog"
)

var (
	// Global flags
	verbose    bool
	configPath string
	logger     octolog.Logger

	// cfg is the loaded configuration, available to every subcommand after
	// PersistentPreRunE runs.
	cfg *octoconfig.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "octoweave",
	Short: "Build and materialize sparse probabilistic occupancy hierarchies",
	Long: `octoweave ingests a point cloud, builds a sparse probabilistic occupancy
hierarchy over it, computes a per-tree refinement level, and materializes an
n x n x n forest of balanced octrees from the result. It also exports the
materialized artifacts to a configured sink and renders slice visualizations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := octolog.LevelInfo
		if verbose {
			logLevel = octolog.LevelDebug
		}
		logger = octolog.NewDefaultLogger(logLevel, os.Stdout)

		loaded, err := octoconfig.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		if cfg.Log.Level != "" {
			logger.(*octolog.DefaultLogger).SetLevel(octolog.ParseLogLevel(cfg.Log.Level))
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to octoweave config file")

	binName := BinName()
	rootCmd.Example = `  # Build a hierarchy from a point cloud CSV
  ` + binName + ` build -i points.csv -o leaves.csv

  # Compute per-tree levels for a built hierarchy
  ` + binName + ` levels -i leaves.csv -o levels.json

  # Materialize a forest and write quadrant CSV
  ` + binName + ` materialize -i leaves.csv --levels levels.json -o forest.csv

  # Export materialized artifacts to the configured sink
  ` + binName + ` export -i forest.csv --key runs/latest/forest.csv

  # Render a slice visualization from a leaf CSV
  ` + binName + ` visualize -i leaves.csv --slice-z 0 --depth 6 -o slice.pgm`
}

// GetLogger returns the configured logger.
func GetLogger() octolog.Logger {
	return logger
}

// GetConfig returns the loaded configuration.
func GetConfig() *octoconfig.Config {
	return cfg
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
