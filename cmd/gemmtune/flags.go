package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gemmtune/internal/logger"
)

var (
	benchPath string
	outDir    string
	timeout   time.Duration
	logLevel  string
	logFormat string
	debug     bool
)

func commonBenchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bench",
			Aliases:     []string{"b"},
			Usage:       "path to the gemm_bench executable",
			Value:       "./gemm_bench",
			Destination: &benchPath,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "time budget per benchmark invocation",
			Value:       5 * time.Minute,
			Destination: &timeout,
		},
	}
}

func outDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "out-dir",
		Usage:       "directory for result tables and session logs",
		Value:       "data",
		Destination: &outDir,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// withLogger builds the configured logger and attaches it to the context.
func withLogger(ctx context.Context) context.Context {
	level := logLevel
	if debug {
		level = "debug"
	}
	return logger.WithContext(ctx, logger.Setup(os.Stderr, logFormat, level))
}

// parseIntList parses a comma-separated list of positive integers, as used
// by the --threads and --sizes flags.
func parseIntList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid list entry %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}

// parseStringList splits a comma-separated list, dropping empty entries.
func parseStringList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
