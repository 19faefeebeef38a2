// Package parallel provides the single concurrency primitive used by
// octoweave's core pipeline: a deterministic, order-preserving parallel
// build driver.
package parallel

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Config controls BuildOrdered's worker fan-out.
type Config struct {
	// MaxWorkers caps the number of concurrent goroutines. <= 0 defaults to
	// runtime.GOMAXPROCS(0).
	MaxWorkers int
}

// DefaultConfig returns the default parallel configuration.
func DefaultConfig() Config {
	return Config{MaxWorkers: runtime.GOMAXPROCS(0)}
}

// BuildOrdered runs build(0), build(1), ..., build(n-1) across up to
// maxThreads goroutines and returns their results in input order.
//
// Each worker claims the next index from a shared atomic counter and writes
// its result directly into its own disjoint slot of the output slice, so
// result[i] always holds build(i)'s output regardless of how the runtime
// schedules workers or how many workers are used. If any call to build
// returns an error, the first such error is returned once every in-flight
// worker has drained; partial results are not returned.
func BuildOrdered[R any](n int, maxThreads int, build func(i int) (R, error)) ([]R, error) {
	results := make([]R, n)
	if n == 0 {
		return results, nil
	}

	workers := maxThreads
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	var next atomic.Int64
	g := new(errgroup.Group)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return nil
				}
				r, err := build(i)
				if err != nil {
					return err
				}
				results[i] = r
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
