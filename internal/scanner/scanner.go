// Package scanner discovers beatmap sets under a library root: the
// driver's filesystem-scan external collaborator, grounded on the
// teacher's internal/scanner directory walk and progress-channel shape,
// retargeted from individual audio files to osu! beatmap-set directories
// (a directory holding one or more *.osu difficulty files over shared
// audio).
package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is one discovered beatmap set: a directory and the *.osu files
// directly inside it, sorted by filename for determinism.
type Set struct {
	DirPath  string
	OsuPaths []string
}

// Progress reports scan progress, mirroring the teacher's ScanProgress
// shape (path/status/counters) narrowed to what a beatmap-set scan needs.
type Progress struct {
	DirPath   string
	Status    string // "found", "error"
	Error     string
	Processed int64
	Total     int64
}

// Scanner walks a library root for beatmap set directories.
type Scanner struct {
	logger *slog.Logger
}

func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan walks roots depth-first, emitting one Set per directory containing
// at least one *.osu file, plus Progress events on the given channel.
// Scan closes progress before returning.
func (s *Scanner) Scan(ctx context.Context, roots []string, progress chan<- Progress) ([]Set, error) {
	defer close(progress)

	var total int64
	for _, root := range roots {
		count, err := s.countSetDirs(root)
		if err != nil {
			s.logger.Warn("failed to count beatmap sets in root", "root", root, "error", err)
			continue
		}
		total += count
	}

	var sets []Set
	var processed int64
	for _, root := range roots {
		dirSets, err := s.scanRoot(ctx, root, &processed, total, progress)
		if err != nil {
			if err == context.Canceled {
				return sets, err
			}
			s.logger.Error("scan error", "root", root, "error", err)
			continue
		}
		sets = append(sets, dirSets...)
	}
	return sets, nil
}

func (s *Scanner) scanRoot(ctx context.Context, root string, processed *int64, total int64, progress chan<- Progress) ([]Set, error) {
	byDir := map[string][]string{}
	var dirOrder []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, continue scanning
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".osu" {
			return nil
		}
		dir := filepath.Dir(path)
		if _, seen := byDir[dir]; !seen {
			dirOrder = append(dirOrder, dir)
		}
		byDir[dir] = append(byDir[dir], path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sets := make([]Set, 0, len(dirOrder))
	for _, dir := range dirOrder {
		osuPaths := byDir[dir]
		sort.Strings(osuPaths)
		*processed++

		select {
		case progress <- Progress{DirPath: dir, Status: "found", Processed: *processed, Total: total}:
		case <-ctx.Done():
			return sets, ctx.Err()
		}
		sets = append(sets, Set{DirPath: dir, OsuPaths: osuPaths})
	}
	return sets, nil
}

func (s *Scanner) countSetDirs(root string) (int64, error) {
	seen := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == ".osu" {
			seen[filepath.Dir(path)] = true
		}
		return nil
	})
	return int64(len(seen)), err
}
