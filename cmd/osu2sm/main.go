// Command osu2sm scans a library of osu! beatmap sets, converts each one
// to StepMania charts, runs the user-configured transformation pipeline,
// and writes one .sm pack per set. The driver is the ambient collaborator
// spec.md §6 leaves external: CLI/config, filesystem scan, and wiring of
// the osuio/convert/pipeline/smio/cache core, grounded on the teacher's
// cmd/engine/main.go startup-and-fatal-exit shape.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/osu2sm/osu2sm/internal/cache"
	"github.com/osu2sm/osu2sm/internal/chart"
	"github.com/osu2sm/osu2sm/internal/config"
	"github.com/osu2sm/osu2sm/internal/convert"
	"github.com/osu2sm/osu2sm/internal/detrand"
	"github.com/osu2sm/osu2sm/internal/keyalloc"
	"github.com/osu2sm/osu2sm/internal/osu2smerr"
	"github.com/osu2sm/osu2sm/internal/osuio"
	"github.com/osu2sm/osu2sm/internal/pipeline"
	"github.com/osu2sm/osu2sm/internal/scanner"
	"github.com/osu2sm/osu2sm/internal/smio"
)

func main() {
	cfg := config.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	stages, err := config.LoadPipeline(cfg.PipelinePath)
	if err != nil {
		logger.Error("cannot load pipeline config", "path", cfg.PipelinePath, "error", err)
		os.Exit(1)
	}
	pl, err := pipeline.New(stages, "driver-input", logger)
	if err != nil {
		logger.Error("cannot resolve pipeline", "error", err)
		os.Exit(1)
	}
	configFingerprint, err := config.Fingerprint(cfg.PipelinePath)
	if err != nil {
		logger.Error("cannot fingerprint pipeline config", "error", err)
		os.Exit(1)
	}
	configHash := cache.HashConfig(configFingerprint)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("cannot create data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	cacheDB, err := cache.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("cannot open cache", "error", err)
		os.Exit(1)
	}
	defer cacheDB.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		logger.Error("cannot create output directory", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	sc := scanner.NewScanner(logger)
	progress := make(chan scanner.Progress, 64)
	ctx := context.Background()

	var sets []scanner.Set
	var scanErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range progress {
			// progress events are consumed silently by default; a future
			// interactive frontend can render them.
		}
	}()
	sets, scanErr = sc.Scan(ctx, []string{cfg.RootDir}, progress)
	wg.Wait()
	if scanErr != nil {
		logger.Error("scan failed", "error", scanErr)
		os.Exit(1)
	}

	d := &driver{
		cfg:        cfg,
		logger:     logger,
		pipeline:   pl,
		cache:      cacheDB,
		configHash: configHash,
	}
	d.run(sets)
}

type driver struct {
	cfg        *config.Config
	logger     *slog.Logger
	pipeline   *pipeline.Pipeline
	cache      *cache.DB
	configHash string
}

// run processes every discovered beatmap set. Beyond one worker, sets are
// converted concurrently over a bounded pool, per SPEC_FULL.md §5: each
// worker gets its own pipeline.Store, so concurrency never crosses a
// single set's synchronous pipeline execution.
func (d *driver) run(sets []scanner.Set) {
	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, set := range sets {
		sem <- struct{}{}
		wg.Add(1)
		go func(set scanner.Set) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := d.convertSet(set); err != nil {
				d.logger.Error("beatmap set conversion failed", "dir", set.DirPath, "error", err)
			}
		}(set)
	}
	wg.Wait()
}

// convertSet loads and converts every .osu in set, runs the pipeline over
// the resulting simfiles, and writes the output .sm — unless the cache
// shows the set unchanged since the last run under this pipeline config.
func (d *driver) convertSet(set scanner.Set) error {
	contentHash, err := cache.HashSet(set.DirPath)
	if err != nil {
		return fmt.Errorf("hash set: %w", err)
	}
	if !d.cfg.ForceRescan {
		if entry, ok, err := d.cache.Lookup(set.DirPath, contentHash, d.configHash); err != nil {
			d.logger.Warn("cache lookup failed", "dir", set.DirPath, "error", err)
		} else if ok {
			d.logger.Debug("cache hit, skipping set", "dir", set.DirPath, "output", entry.OutputPath)
			return nil
		}
	}

	simfiles := make([]*chart.Simfile, 0, len(set.OsuPaths))
	for _, osuPath := range set.OsuPaths {
		sf, err := d.convertOne(osuPath)
		if err != nil {
			d.logger.Error("beatmap conversion failed", "path", osuPath, "error", err)
			continue
		}
		simfiles = append(simfiles, sf)
	}
	if len(simfiles) == 0 {
		return fmt.Errorf("no beatmap in %s converted successfully", set.DirPath)
	}

	store := pipeline.NewStore()
	out, err := d.pipeline.Run(store, simfiles)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	outputPath := filepath.Join(d.cfg.OutputDir, filepath.Base(set.DirPath)+".sm")
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	if err := smio.Write(f, out); err != nil {
		return fmt.Errorf("write simfile: %w", err)
	}

	if err := d.cache.Record(cache.Entry{
		DirPath:     set.DirPath,
		ContentHash: contentHash,
		ConfigHash:  d.configHash,
		OutputPath:  outputPath,
	}); err != nil {
		d.logger.Warn("cache record failed", "dir", set.DirPath, "error", err)
	}
	return nil
}

func (d *driver) convertOne(osuPath string) (*chart.Simfile, error) {
	f, err := os.Open(osuPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", osuPath, err)
	}
	defer f.Close()

	bm, err := osuio.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", osuPath, err)
	}

	var sf *chart.Simfile
	switch bm.Mode {
	case osuio.ModeMania:
		sf, err = convert.Mania(bm, d.logger)
	case osuio.ModeStandard:
		rng := detrand.New(bm.AudioFilename, bm.Title, bm.Version, "standard-convert")
		sf, err = convert.Standard(bm, standardConfig(rng), rng, d.logger)
	default:
		d.logger.Warn("unsupported mode, skipping beatmap", "path", osuPath, "mode", bm.Mode)
		return nil, &osu2smerr.ModeNotSupported{Mode: bm.Mode}
	}
	if err != nil {
		return nil, err
	}

	sf.Title = bm.Title
	sf.TitleTranslit = bm.TitleUnicode
	sf.Artist = bm.Artist
	sf.ArtistTranslit = bm.ArtistUnicode
	sf.MusicPath = bm.AudioFilename
	sf.DifficultyLabel = bm.Version
	sf.PreviewStartSeconds = bm.PreviewStartMs / 1000
	if sf.Meter == 0 {
		sf.Meter = 1
	}
	return sf, nil
}

// standardConfig returns the default osu!standard→chart conversion
// parameters; a production build would source these from the pipeline
// config file alongside the stage list.
func standardConfig(rng *rand.Rand) convert.StandardConfig {
	return convert.StandardConfig{
		KeyCount:          4,
		DistToKeyCount:    []float64{50, 120, 200},
		MinSliderBounceMs: 60,
		SpinsPerSecond:    2,
		StepsPerSpin:      4,
		Curve:             keyalloc.NewCurve([]keyalloc.CurvePoint{{Seconds: 0, Weight: 1}}),
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
