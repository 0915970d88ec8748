package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the gemmtune configuration file
// (~/.config/gemmtune/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	BenchPath string `yaml:"bench_path"`
	OutDir    string `yaml:"out_dir"`
	Timeout   string `yaml:"timeout"`

	// Roofline machine parameters
	PeakGFLOPS    *float64 `yaml:"peak_gflops"`
	PeakBandwidth *float64 `yaml:"peak_bandwidth"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gemmtune", "config.yaml")
}

// applyCommonConfig applies config file defaults to the shared flag
// variables when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.BenchPath != "" && !c.IsSet("bench") {
		benchPath = cfg.BenchPath
	}
	if cfg.OutDir != "" && !c.IsSet("out-dir") {
		outDir = cfg.OutDir
	}
	if cfg.Timeout != "" && !c.IsSet("timeout") {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or fails to parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
