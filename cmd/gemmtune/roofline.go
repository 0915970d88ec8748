package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/logger"
	"github.com/samcharles93/gemmtune/internal/results"
	"github.com/samcharles93/gemmtune/internal/roofline"
)

func rooflineCmd() *cli.Command {
	var (
		mb, nb, kb int64
		cores      int64
		ghz        float64
		peakGflops float64
		peakBW     float64
		measureBW  bool
		measured   float64
		csvPath    string
		jsonOutput bool
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags,
		&cli.Int64Flag{Name: "mb", Usage: "tile MB", Value: 256, Destination: &mb},
		&cli.Int64Flag{Name: "nb", Usage: "tile NB", Value: 256, Destination: &nb},
		&cli.Int64Flag{Name: "kb", Usage: "tile KB", Value: 256, Destination: &kb},
		&cli.Int64Flag{
			Name:        "cores",
			Usage:       "physical core count for the peak estimate (0 = detect)",
			Destination: &cores,
		},
		&cli.Float64Flag{
			Name:        "ghz",
			Usage:       "clock frequency for the peak estimate",
			Value:       4.0,
			Destination: &ghz,
		},
		&cli.Float64Flag{
			Name:        "peak-gflops",
			Usage:       "override the analytical peak compute estimate",
			Destination: &peakGflops,
		},
		&cli.Float64Flag{
			Name:        "peak-bw",
			Usage:       "peak memory bandwidth in GB/s (overrides the default)",
			Destination: &peakBW,
		},
		&cli.BoolFlag{
			Name:        "measure-bw",
			Usage:       "measure memory bandwidth with a stream micro-benchmark",
			Destination: &measureBW,
		},
		&cli.Float64Flag{
			Name:        "measured",
			Usage:       "measured throughput in GFLOP/s for efficiency reporting",
			Destination: &measured,
		},
		&cli.StringFlag{
			Name:        "csv",
			Usage:       "sweep table whose best row supplies the measured throughput",
			Destination: &csvPath,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "emit the analysis as JSON",
			Destination: &jsonOutput,
		},
	)

	return &cli.Command{
		Name:  "roofline",
		Usage: "Analyze tile geometry against the machine's compute/memory roofline",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			if mb <= 0 || nb <= 0 || kb <= 0 {
				return cli.Exit("error: tile dimensions must be positive", 1)
			}
			tile := bench.Tile{MB: int(mb), NB: int(nb), KB: int(kb)}

			cfg := LoadConfig()
			peak := peakGflops
			if peak <= 0 && cfg.PeakGFLOPS != nil {
				peak = *cfg.PeakGFLOPS
			}
			if peak <= 0 {
				peak = roofline.EstimatePeakCompute(int(cores), ghz)
				log.Info("estimated peak compute",
					"cores", runtime.NumCPU(), "flops_per_cycle", roofline.FlopsPerCycle(),
					"ghz", ghz, "gflops", peak)
			}

			bw := peakBW
			if bw <= 0 && cfg.PeakBandwidth != nil {
				bw = *cfg.PeakBandwidth
			}
			if measureBW {
				log.Info("measuring memory bandwidth")
				bw = roofline.MeasureBandwidth()
				log.Info("measured memory bandwidth", "gb_s", bw)
			}
			if bw <= 0 {
				bw = roofline.DefaultBandwidthGBs
				log.Info("using default bandwidth estimate", "gb_s", bw)
			}

			if measured <= 0 && csvPath != "" {
				best, err := bestThroughput(csvPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				measured = best
			}

			params := roofline.Params{PeakGFLOPS: peak, BandwidthGBs: bw}
			point := roofline.Analyze(tile)

			if jsonOutput {
				return printRooflineJSON(point, params, measured)
			}
			printRooflineText(point, params, measured)
			return nil
		},
	}
}

// bestThroughput returns the highest throughput row of a sweep table.
func bestThroughput(path string) (float64, error) {
	rows, err := results.ReadTable(path)
	if err != nil {
		return 0, err
	}
	var best float64
	for _, row := range rows {
		if row.GFLOPS > best {
			best = row.GFLOPS
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("no rows with throughput in %s", path)
	}
	return best, nil
}

func printRooflineJSON(point roofline.Point, params roofline.Params, measured float64) error {
	report := map[string]any{
		"point":   point,
		"params":  params,
		"ridge":   params.Ridge(),
		"ceiling": params.Ceiling(point.Intensity),
		"bound":   params.Classify(point.Intensity),
	}
	if measured > 0 {
		report["measured"] = measured
		report["efficiency"] = params.Efficiency(measured)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printRooflineText(point roofline.Point, params roofline.Params, measured float64) {
	fmt.Println("=== Roofline Analysis ===")
	fmt.Printf("Tile:            %dx%dx%d\n", point.Tile.MB, point.Tile.NB, point.Tile.KB)
	fmt.Printf("Peak compute:    %.0f GFLOP/s\n", params.PeakGFLOPS)
	fmt.Printf("Peak bandwidth:  %.1f GB/s\n", params.BandwidthGBs)
	fmt.Printf("Intensity:       %.2f FLOPs/byte (%d FLOPs / %d bytes)\n",
		point.Intensity, point.FLOPs, point.Bytes)
	fmt.Printf("Ridge point:     %.2f FLOPs/byte\n", params.Ridge())
	fmt.Printf("Ceiling here:    %.1f GFLOP/s\n", params.Ceiling(point.Intensity))
	fmt.Printf("Status:          %s\n", params.Classify(point.Intensity))
	if measured > 0 {
		fmt.Printf("Measured:        %.2f GFLOP/s (%.1f%% of peak)\n",
			measured, params.Efficiency(measured)*100)
	}
}
