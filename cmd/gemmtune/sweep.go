package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/logger"
	"github.com/samcharles93/gemmtune/internal/results"
	"github.com/samcharles93/gemmtune/internal/sweep"
	"github.com/samcharles93/gemmtune/internal/tilestore"
)

func sweepCmd() *cli.Command {
	var (
		impls     string
		sizes     string
		threads   string
		reps      int64
		tilesPath string
	)

	flags := append([]cli.Flag{}, commonBenchFlags()...)
	flags = append(flags, loggingFlags()...)
	flags = append(flags, outDirFlag(),
		&cli.StringFlag{
			Name:        "impls",
			Usage:       "comma-separated implementations to benchmark",
			Value:       "naive,blocked,packed,mk_avx2",
			Destination: &impls,
		},
		&cli.StringFlag{
			Name:        "sizes",
			Usage:       "comma-separated problem sizes",
			Value:       "256,512,1024,1536,2048,3072,4096",
			Destination: &sizes,
		},
		&cli.StringFlag{
			Name:        "threads",
			Usage:       "comma-separated thread counts",
			Value:       "1,8",
			Destination: &threads,
		},
		&cli.Int64Flag{
			Name:        "reps",
			Usage:       "repetitions per cell",
			Value:       2,
			Destination: &reps,
		},
		&cli.StringFlag{
			Name:        "tiles",
			Usage:       "tuned-tile store consulted per thread count",
			Value:       "data/best_tiles.json",
			Destination: &tilesPath,
		},
	)

	return &cli.Command{
		Name:  "sweep",
		Usage: "Exhaustively benchmark an implementation x size x threads matrix",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			implList := parseStringList(impls)
			if len(implList) == 0 {
				return cli.Exit("error: --impls: empty list", 1)
			}
			sizeList, err := parseIntList(sizes)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --sizes: %v", err), 1)
			}
			threadCounts, err := parseIntList(threads)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --threads: %v", err), 1)
			}

			measurer := &bench.ExecMeasurer{Path: benchPath, Timeout: timeout}
			if err := measurer.Check(); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v (build the benchmark first)", err), 1)
			}

			total := len(implList) * len(sizeList) * len(threadCounts)
			log.Info("starting comprehensive sweep", "cells", total, "out_dir", outDir)

			session := results.NewSession(benchPath)
			runner := &sweep.Runner{
				Measurer: measurer,
				Opts: sweep.Options{
					Impls:        implList,
					Sizes:        sizeList,
					ThreadCounts: threadCounts,
					Reps:         int(reps),
					Tiles:        &tilestore.Store{Path: tilesPath},
				},
			}

			rows, err := runner.Run(ctx, session)
			if errors.Is(err, sweep.ErrNoResults) {
				return cli.Exit("error: no valid results obtained", 1)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: sweep: %v", err), 1)
			}

			stamp := time.Now().Format("20060102_150405")
			tablePath := filepath.Join(outDir, fmt.Sprintf("comprehensive_benchmark_%s.csv", stamp))
			if err := results.WriteTable(tablePath, rows); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			sessionPath := filepath.Join(outDir, fmt.Sprintf("session_%s.json", stamp))
			if err := session.Write(sessionPath); err != nil {
				log.Warn("session log not written", "err", err)
			}

			log.Info("sweep complete", "rows", len(rows), "table", tablePath, "run_id", session.ID)

			// Best result per implementation at the highest thread count.
			maxThreads := threadCounts[0]
			for _, t := range threadCounts {
				if t > maxThreads {
					maxThreads = t
				}
			}
			fmt.Println("=== Performance Summary ===")
			best := sweep.BestByImpl(rows, maxThreads)
			for _, impl := range implList {
				row, ok := best[impl]
				if !ok {
					continue
				}
				fmt.Printf("%10s: %8.2f GFLOP/s (N=%d)\n", impl, row.GFLOPS, row.N)
			}
			return nil
		},
	}
}
