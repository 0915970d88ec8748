// Package sweep exhaustively benchmarks an implementation × size × thread
// count matrix and produces the flat result table consumed by roofline and
// plotting analysis. One measurement per cell, strictly sequential, with
// exclusion rules for cells known to be prohibitively slow.
package sweep

import (
	"context"
	"errors"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/logger"
	"github.com/samcharles93/gemmtune/internal/results"
	"github.com/samcharles93/gemmtune/internal/tilestore"
)

// ErrNoResults is the overall failure when a completed sweep produced no
// valid result at all.
var ErrNoResults = errors.New("sweep: no valid results")

// BaselineImpl is the unoptimized reference implementation subject to the
// exclusion rules below.
const BaselineImpl = "naive"

// Options configures one sweep.
type Options struct {
	Impls        []string
	Sizes        []int
	ThreadCounts []int
	// Reps is forwarded to the executable; higher than during search since
	// each surviving cell is measured exactly once.
	Reps int
	// DefaultTile is used when no tuned tile exists for a thread count.
	DefaultTile bench.Tile
	// Tiles optionally supplies tuned tiles per thread count.
	Tiles *tilestore.Store
}

func (o Options) withDefaults() Options {
	if len(o.Impls) == 0 {
		o.Impls = []string{"naive", "blocked", "packed", "mk_avx2"}
	}
	if len(o.Sizes) == 0 {
		o.Sizes = []int{256, 512, 1024, 1536, 2048, 3072, 4096}
	}
	if len(o.ThreadCounts) == 0 {
		o.ThreadCounts = []int{1, 8}
	}
	if o.Reps <= 0 {
		o.Reps = 2
	}
	if o.DefaultTile == (bench.Tile{}) {
		o.DefaultTile = bench.Tile{MB: 256, NB: 256, KB: 256}
	}
	return o
}

// Excluded reports whether a cell is skipped without measurement. The naive
// baseline dominates total sweep time without adding comparative value at
// large sizes: it is dropped at N >= 4096 regardless of thread count, and at
// N >= 2048 with more than one thread.
func Excluded(impl string, n, threads int) bool {
	if impl != BaselineImpl {
		return false
	}
	if n >= 4096 {
		return true
	}
	return n >= 2048 && threads > 1
}

// Runner drives one sweep against a Measurer.
type Runner struct {
	Measurer bench.Measurer
	Opts     Options
}

// Run measures every non-excluded cell and returns the surviving rows in
// measurement order. Failed cells are recorded in the session log but never
// appear as rows. Cancellation between cells is graceful: the rows measured
// so far are returned. A sweep that runs to completion without a single
// valid result fails with ErrNoResults.
func (r *Runner) Run(ctx context.Context, session *results.Session) ([]bench.Result, error) {
	opts := r.Opts.withDefaults()
	log := logger.FromContext(ctx)

	total := len(opts.Impls) * len(opts.Sizes) * len(opts.ThreadCounts)
	cell := 0

	var rows []bench.Result
	for _, impl := range opts.Impls {
		for _, n := range opts.Sizes {
			for _, threads := range opts.ThreadCounts {
				cell++
				if ctx.Err() != nil {
					log.Warn("sweep interrupted", "measured", len(rows))
					return rows, nil
				}

				req := bench.Request{
					Impl:    impl,
					N:       n,
					Tile:    r.tileFor(opts, threads),
					Threads: threads,
					Reps:    opts.Reps,
				}

				if Excluded(impl, n, threads) {
					log.Info("skipping cell (too slow)",
						"cell", cell, "total", total, "impl", impl, "N", n, "threads", threads)
					if session != nil {
						session.RecordSkipped(req, "baseline too slow at this size")
					}
					continue
				}

				log.Info("running cell",
					"cell", cell, "total", total, "impl", impl, "N", n, "threads", threads)

				res, ok := r.Measurer.Measure(ctx, req)
				if !ok {
					log.Warn("cell failed", "impl", impl, "N", n, "threads", threads)
					if session != nil {
						session.RecordFailed(req, "invocation or parse failure")
					}
					continue
				}

				log.Info("cell result", "gflops", res.GFLOPS, "time_ms", res.TimeMS)
				if session != nil {
					session.RecordOK(res)
				}
				rows = append(rows, res)
			}
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoResults
	}
	return rows, nil
}

func (r *Runner) tileFor(opts Options, threads int) bench.Tile {
	if opts.Tiles != nil {
		if tile, ok := opts.Tiles.Lookup(threads); ok {
			return tile
		}
	}
	return opts.DefaultTile
}

// BestByImpl picks each implementation's best-throughput row at the given
// thread count, for the end-of-sweep summary.
func BestByImpl(rows []bench.Result, threads int) map[string]bench.Result {
	best := make(map[string]bench.Result)
	for _, row := range rows {
		if row.Threads != threads {
			continue
		}
		if cur, ok := best[row.Impl]; !ok || row.GFLOPS > cur.GFLOPS {
			best[row.Impl] = row
		}
	}
	return best
}
