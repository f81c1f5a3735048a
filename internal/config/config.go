// Package config loads the driver's CLI flags and the pipeline config
// file they point at, per SPEC_FULL.md §9: flags via the standard
// library's flag package (mirroring the teacher's internal/config),
// pipeline stages via a JSON document the driver deserialises itself
// (the core accepts only the already-deserialised pipeline.Stage list).
package config

import (
	"flag"
	"os"
)

// Config holds the driver's top-level settings.
type Config struct {
	RootDir      string // beatmap library root to scan
	OutputDir    string // where converted .sm packs are written
	DataDir      string // cache database location
	PipelinePath string // JSON pipeline config file
	LogLevel     string
	Workers      int // bounded worker-pool size for per-set concurrency
	ForceRescan  bool
}

// Parse reads CLI flags into a Config.
func Parse() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.RootDir, "root", ".", "beatmap library root to scan")
	flag.StringVar(&cfg.OutputDir, "out", "./sm-out", "directory converted simfile packs are written to")
	flag.StringVar(&cfg.DataDir, "data-dir", defaultDataDir(), "data directory for the incremental-conversion cache")
	flag.StringVar(&cfg.PipelinePath, "pipeline", "pipeline.json", "pipeline config file (stage list)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.Workers, "workers", 1, "number of beatmap sets converted concurrently")
	flag.BoolVar(&cfg.ForceRescan, "force", false, "ignore the cache and reconvert every set")

	flag.Parse()
	return cfg
}

func defaultDataDir() string {
	if dir := os.Getenv("OSU2SM_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".osu2sm"
	}
	return home + "/.osu2sm"
}
