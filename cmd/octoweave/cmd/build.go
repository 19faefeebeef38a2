package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/octoweave/octoweave/internal/chunkgrid"
	"github.com/octoweave/octoweave/internal/hierarchy"
	"github.com/octoweave/octoweave/internal/leafio"
	"github.com/octoweave/octoweave/internal/occupancy"
	"github.com/octoweave/octoweave/internal/parallel"
	"github.com/octoweave/octoweave/internal/pointio"
)

var (
	buildInput      string
	buildOutput     string
	buildStrict     bool
	buildSkipHeader bool
	buildTau        float64
	buildLogOdds    bool
	buildPUnknown   float64
	buildBaseDepth  int
	buildGzip       bool
	buildZstd       bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a sparse occupancy hierarchy from a point-cloud CSV",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildInput, "input", "i", "", "Input point-cloud CSV (x,y,z[,chunk_idx])")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output hierarchy leaf CSV")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "Fail on the first malformed input line")
	buildCmd.Flags().BoolVar(&buildSkipHeader, "skip-header", false, "Skip the first non-empty input line")
	buildCmd.Flags().Float64Var(&buildTau, "tau", 0.5, "Refinement threshold")
	buildCmd.Flags().BoolVar(&buildLogOdds, "log-odds", false, "Interpret tau in log-odds space")
	buildCmd.Flags().Float64Var(&buildPUnknown, "p-unknown", 0.5, "Probability assigned to unseen cells")
	buildCmd.Flags().IntVar(&buildBaseDepth, "base-depth", 0, "Shallowest depth the hierarchy carries nodes at")
	buildCmd.Flags().BoolVar(&buildGzip, "gzip", false, "Gzip-compress the output leaf CSV")
	buildCmd.Flags().BoolVar(&buildZstd, "zstd", false, "Zstd-compress the output leaf CSV")
	buildCmd.MarkFlagRequired("input")
	buildCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(c *cobra.Command, args []string) error {
	// runID correlates this build's log lines and run-scoped data directory,
	// mirroring the teacher's per-task taskUUID tagging.
	runID := uuid.NewString()
	if err := os.MkdirAll(cfg.GetRunDir(runID), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	runLogger := logger.WithRunID(runID)
	runLogger.Info("starting build run")

	f, err := os.Open(buildInput)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	ic := cfg.Ingest
	gn := cfg.Grid.N
	// The ingestion grid spans the unit cube by convention; a real deployment
	// derives Box from the input's own bounding box before the first pass.
	grid := chunkgrid.New(gn, chunkgrid.AABB{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}})

	opts := pointio.ParserOptions{StrictMode: buildStrict, SkipHeader: buildSkipHeader}
	chunks, err := pointio.Read(f, opts, &grid)
	if err != nil {
		return fmt.Errorf("failed to read point input: %w", err)
	}
	runLogger.Info("read %d chunk(s) from %s", len(chunks), buildInput)

	chunkIDs := make([]int, 0, len(chunks))
	for id := range chunks {
		chunkIDs = append(chunkIDs, id)
	}
	sort.Ints(chunkIDs)

	pcfg := parallel.DefaultConfig()
	if ic.MaxWorkers > 0 {
		pcfg.MaxWorkers = ic.MaxWorkers
	}

	outputs, err := parallel.BuildOrdered(len(chunkIDs), pcfg.MaxWorkers, func(i int) (occupancy.Output, error) {
		chunkID := chunkIDs[i]
		ix, iy, iz := grid.Unravel(chunkID)
		box := grid.ChunkBox(ix, iy, iz)
		occCfg := occupancy.Config{
			Box:         box,
			Res:         ic.Res,
			ProbHit:     ic.ProbHit,
			ProbMiss:    ic.ProbMiss,
			ClampMin:    ic.ClampMin,
			ClampMax:    ic.ClampMax,
			MaxRange:    ic.MaxRange,
			EmitRes:     ic.EmitRes,
			MaxDepthCap: ic.MaxDepthCap,
		}
		return occupancy.Emit(chunks[chunkID], occCfg)
	})
	if err != nil {
		return fmt.Errorf("occupancy emission failed: %w", err)
	}

	hcfg := hierarchy.BuildConfig{
		Tau:        buildTau,
		UseLogOdds: buildLogOdds,
		PUnknown:   buildPUnknown,
		BaseDepth:  uint8(buildBaseDepth),
	}
	h, err := hierarchy.Build(outputs, hcfg)
	if err != nil {
		return fmt.Errorf("failed to build hierarchy: %w", err)
	}
	runLogger.Info("built hierarchy: %d node(s), td=%d", len(h.Nodes), h.TD)

	leaves := make([]leafio.Leaf, 0, len(h.Nodes))
	for ndk, node := range h.Nodes {
		if !node.IsLeaf {
			continue
		}
		leaves = append(leaves, leafio.Leaf{
			X: ndk.Key.X, Y: ndk.Key.Y, Z: ndk.Key.Z,
			Depth: ndk.Depth, Prob: node.Probability,
		})
	}

	switch {
	case buildGzip:
		return leafio.NewGzipWriter().WriteToFile(leaves, buildOutput)
	case buildZstd:
		return leafio.NewZstdWriter().WriteToFile(leaves, buildOutput)
	default:
		return leafio.NewWriter().WriteToFile(leaves, buildOutput)
	}
}
