package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/logger"
	"github.com/samcharles93/gemmtune/internal/tilestore"
	"github.com/samcharles93/gemmtune/internal/tuner"
)

func tuneCmd() *cli.Command {
	var (
		impl      string
		threads   string
		testSizes string
		reps      int64
		outPath   string
	)

	flags := append([]cli.Flag{}, commonBenchFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "impl",
			Usage:       "kernel implementation to tune",
			Value:       "mk_avx2",
			Destination: &impl,
		},
		&cli.StringFlag{
			Name:        "threads",
			Usage:       "comma-separated thread counts to tune for",
			Value:       "1,2,4,8",
			Destination: &threads,
		},
		&cli.StringFlag{
			Name:        "sizes",
			Usage:       "comma-separated problem sizes each cell is scored across",
			Value:       "2048,4096",
			Destination: &testSizes,
		},
		&cli.Int64Flag{
			Name:        "reps",
			Usage:       "repetitions per measurement (reduced for search speed)",
			Value:       2,
			Destination: &reps,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "path of the tuned-tile store",
			Value:       "data/best_tiles.json",
			Destination: &outPath,
		},
	)

	return &cli.Command{
		Name:  "tune",
		Usage: "Search the tile grid for the best configuration per thread count",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			threadCounts, err := parseIntList(threads)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --threads: %v", err), 1)
			}
			sizes, err := parseIntList(testSizes)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --sizes: %v", err), 1)
			}

			measurer := &bench.ExecMeasurer{Path: benchPath, Timeout: timeout}
			if err := measurer.Check(); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v (build the benchmark first)", err), 1)
			}

			grid := tuner.DefaultGrid()
			log.Info("starting grid search",
				"impl", impl, "threads", threads, "cells", grid.Size(), "sizes", testSizes)

			tn := &tuner.Tuner{
				Measurer: measurer,
				Opts: tuner.Options{
					Impl:         impl,
					ThreadCounts: threadCounts,
					TestSizes:    sizes,
					Reps:         int(reps),
					Grid:         grid,
				},
			}
			result := tn.Run(ctx)

			if len(result) == 0 {
				return cli.Exit("error: no valid configurations found", 1)
			}

			store := &tilestore.Store{Path: outPath}
			if err := store.Save(result.Tiles()); err != nil {
				return cli.Exit(fmt.Sprintf("error: save tiles: %v", err), 1)
			}

			fmt.Println("=== Auto-tuning Complete ===")
			fmt.Printf("Results saved to %s\n\n", outPath)
			fmt.Println("Best configurations:")
			for _, t := range threadCounts {
				label := tuner.Label(t)
				w, ok := result[label]
				if !ok {
					continue
				}
				fmt.Printf("  %s: MB=%d, NB=%d, KB=%d (%.2f GFLOP/s)\n",
					label, w.Tile.MB, w.Tile.NB, w.Tile.KB, w.Score)
			}
			if ctx.Err() != nil {
				fmt.Println("\n(interrupted: partial results for completed thread counts)")
			}
			return nil
		},
	}
}
