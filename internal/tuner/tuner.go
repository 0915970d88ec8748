// Package tuner implements the grid-search autotuner: for each thread count
// it walks a fixed Cartesian grid of tile candidates, scores each cell with
// repeated measurements across a small set of problem sizes, and records the
// best-scoring configuration. Measurements run strictly sequentially; the
// only mutable state is the explicit best-so-far accumulator owned by the
// search loop.
package tuner

import (
	"context"
	"strconv"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/logger"
)

// Options configures one tuning run.
type Options struct {
	// Impl is the kernel implementation under tuning.
	Impl string
	// ThreadCounts is the ordered set of thread counts to tune for.
	ThreadCounts []int
	// TestSizes are the problem sizes each cell is scored across.
	TestSizes []int
	// Reps is the repetition count per (cell, size); reduced relative to a
	// full sweep because search favors speed over precision.
	Reps int
	// Grid is the candidate space; DefaultGrid when zero.
	Grid Grid
}

func (o Options) withDefaults() Options {
	if o.Impl == "" {
		o.Impl = "mk_avx2"
	}
	if len(o.ThreadCounts) == 0 {
		o.ThreadCounts = []int{1, 2, 4, 8}
	}
	if len(o.TestSizes) == 0 {
		o.TestSizes = []int{2048, 4096}
	}
	if o.Reps <= 0 {
		o.Reps = 2
	}
	if o.Grid.Size() == 0 {
		o.Grid = DefaultGrid()
	}
	return o
}

// Winner is the best configuration found for one thread count.
type Winner struct {
	Tile  bench.Tile
	Score float64
}

// Result maps a thread-count label ("t1", "t8") to its winner. Thread counts
// whose every cell failed to produce valid data are omitted entirely.
type Result map[string]Winner

// Tiles projects the result to the persistable tile records.
func (r Result) Tiles() map[string]bench.Tile {
	tiles := make(map[string]bench.Tile, len(r))
	for label, w := range r {
		tiles[label] = w.Tile
	}
	return tiles
}

// Label is the store key for a thread count.
func Label(threads int) string {
	return "t" + strconv.Itoa(threads)
}

// Tuner runs the grid search against a Measurer.
type Tuner struct {
	Measurer bench.Measurer
	Opts     Options
}

// Run executes the search. Cancellation is honored between cell evaluations,
// never mid-measurement, and is not an error: whatever thread counts were
// fully evaluated before the interrupt are returned as valid partial output.
func (t *Tuner) Run(ctx context.Context) Result {
	opts := t.Opts.withDefaults()
	log := logger.FromContext(ctx)

	result := make(Result)
	for _, threads := range opts.ThreadCounts {
		if ctx.Err() != nil {
			log.Warn("tuning interrupted, keeping completed thread counts", "completed", len(result))
			break
		}
		winner, found := t.tuneThreads(ctx, opts, threads)
		if ctx.Err() != nil {
			// The interrupt landed mid-grid: the partial best for this thread
			// count is discarded, earlier entries stay intact.
			log.Warn("tuning interrupted, keeping completed thread counts", "completed", len(result))
			break
		}
		if !found {
			log.Warn("no valid configuration found", "threads", threads)
			continue
		}
		result[Label(threads)] = winner
		log.Info("best configuration",
			"threads", threads,
			"MB", winner.Tile.MB, "NB", winner.Tile.NB, "KB", winner.Tile.KB,
			"gflops", winner.Score)
	}
	return result
}

// tuneThreads evaluates the full grid for one thread count and returns the
// best cell. The best-so-far is an explicit accumulator, replaced strictly
// when a cell scores greater; equal scores keep the earlier cell.
func (t *Tuner) tuneThreads(ctx context.Context, opts Options, threads int) (Winner, bool) {
	log := logger.FromContext(ctx).With("threads", threads)

	tiles := opts.Grid.Tiles()
	total := len(tiles)

	var best Winner
	found := false

	for i, tile := range tiles {
		if ctx.Err() != nil {
			return best, found
		}
		log.Info("testing config",
			"cell", i+1, "total", total,
			"MB", tile.MB, "NB", tile.NB, "KB", tile.KB)

		score, ok := t.scoreCell(ctx, opts, threads, tile)
		if !ok {
			log.Warn("no valid results for cell", "MB", tile.MB, "NB", tile.NB, "KB", tile.KB)
			continue
		}
		log.Info("cell score", "gflops", score)

		if !found || score > best.Score {
			best = Winner{Tile: tile, Score: score}
			found = true
			log.Info("new best", "gflops", score)
		}
	}
	return best, found
}

// scoreCell reduces the per-size aggregated scores of one grid cell to a
// single cell score (mean across sizes). Sizes with no valid data are
// dropped; a cell with zero valid size-scores never becomes the best.
func (t *Tuner) scoreCell(ctx context.Context, opts Options, threads int, tile bench.Tile) (float64, bool) {
	log := logger.FromContext(ctx)

	var sizeScores []float64
	for _, n := range opts.TestSizes {
		if ctx.Err() != nil {
			return 0, false
		}
		req := bench.Request{
			Impl:    opts.Impl,
			N:       n,
			Tile:    tile,
			Threads: threads,
			Reps:    opts.Reps,
		}
		agg := bench.Repeat(ctx, t.Measurer, req, opts.Reps)
		if !agg.OK() {
			continue
		}
		log.Debug("size score", "N", n, "gflops", agg.Mean, "failed", agg.Failed)
		sizeScores = append(sizeScores, agg.Mean)
	}
	if len(sizeScores) == 0 {
		return 0, false
	}
	return bench.Mean(sizeScores), true
}
