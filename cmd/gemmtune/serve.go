package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gemmtune/internal/api"
	"github.com/samcharles93/gemmtune/internal/logger"
	"github.com/samcharles93/gemmtune/internal/roofline"
	"github.com/samcharles93/gemmtune/internal/tilestore"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		tilesPath   string
		peakGflops  float64
		peakBW      float64
	)

	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags, outDirFlag(),
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.StringFlag{
			Name:        "tiles",
			Usage:       "tuned-tile store to serve",
			Value:       "data/best_tiles.json",
			Destination: &tilesPath,
		},
		&cli.Float64Flag{
			Name:        "peak-gflops",
			Usage:       "peak compute for roofline responses (0 = estimate)",
			Destination: &peakGflops,
		},
		&cli.Float64Flag{
			Name:        "peak-bw",
			Usage:       "peak bandwidth for roofline responses (0 = default)",
			Destination: &peakBW,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve tuning and sweep artifacts as a read-only JSON API",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg)
			ctx = withLogger(ctx)
			log := logger.FromContext(ctx)

			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
			}
			if peakGflops <= 0 && cfg.PeakGFLOPS != nil {
				peakGflops = *cfg.PeakGFLOPS
			}
			if peakGflops <= 0 {
				peakGflops = roofline.EstimatePeakCompute(0, 4.0)
			}
			if peakBW <= 0 && cfg.PeakBandwidth != nil {
				peakBW = *cfg.PeakBandwidth
			}
			if peakBW <= 0 {
				peakBW = roofline.DefaultBandwidthGBs
			}

			server := api.NewServer(
				&tilestore.Store{Path: tilesPath},
				outDir,
				roofline.Params{PeakGFLOPS: peakGflops, BandwidthGBs: peakBW},
			)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr, "out_dir", outDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
