package cmd

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/octoweave/octoweave/internal/sink"
)

var (
	exportInputs []string
	exportKeys   []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload one or more materialized artifacts to the configured sink",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringArrayVarP(&exportInputs, "input", "i", nil, "Local artifact path to upload (repeatable)")
	exportCmd.Flags().StringArrayVar(&exportKeys, "key", nil, "Destination key within the sink, paired by position with --input (repeatable)")
	exportCmd.MarkFlagRequired("input")
	exportCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(exportCmd)
}

type exportJob struct {
	input string
	key   string
}

func runExport(c *cobra.Command, args []string) error {
	if len(exportInputs) != len(exportKeys) {
		return fmt.Errorf("--input and --key must be given the same number of times (%d vs %d)", len(exportInputs), len(exportKeys))
	}

	uploader, err := sink.New(&cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to construct sink: %w", err)
	}

	jobs := make([]exportJob, len(exportInputs))
	for i := range exportInputs {
		jobs[i] = exportJob{input: exportInputs[i], key: exportKeys[i]}
	}

	// Uploads are independent of each other, unlike the core pipeline's
	// order-sensitive chunk builds, so an unordered bounded fan-out fits
	// here rather than internal/parallel.BuildOrdered.
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))

	var uploaded atomic.Int64
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := uploader.UploadFile(ctx, job.key, job.input); err != nil {
				return fmt.Errorf("failed to upload %s: %w", job.input, err)
			}
			logger.Info("uploaded %s to %s", job.input, uploader.GetURL(job.key))
			uploaded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("exported %d artifact(s)", uploaded.Load())
	return nil
}
