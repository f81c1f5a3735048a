package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Entry mirrors one row of the beatmap_sets table.
type Entry struct {
	DirPath     string
	ContentHash string
	ConfigHash  string
	OutputPath  string
}

// HashSet computes the content hash of a beatmap set directory: the
// SHA-256 of every *.osu file's contents, concatenated in sorted filename
// order. Sorted order keeps the hash stable regardless of directory
// listing order, and restricting to *.osu means unrelated assets (audio,
// images) in the same set directory never cause a spurious cache miss.
func HashSet(dirPath string) (string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return "", fmt.Errorf("cache: read set dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".osu" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		f, err := os.Open(filepath.Join(dirPath, name))
		if err != nil {
			return "", fmt.Errorf("cache: open %s: %w", name, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("cache: hash %s: %w", name, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashConfig hashes an arbitrary config fingerprint string (the driver
// passes a canonical serialization of the active pipeline configuration),
// so a cache hit also requires the conversion settings to be unchanged.
func HashConfig(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// Lookup reports whether dirPath has a cached entry whose content and
// config hashes both match, returning that entry's recorded output path.
func (d *DB) Lookup(dirPath, contentHash, configHash string) (Entry, bool, error) {
	var e Entry
	row := d.db.QueryRow(`
		SELECT dir_path, content_hash, config_hash, output_path
		FROM beatmap_sets WHERE dir_path = ?
	`, dirPath)
	err := row.Scan(&e.DirPath, &e.ContentHash, &e.ConfigHash, &e.OutputPath)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: lookup %s: %w", dirPath, err)
	}
	if e.ContentHash != contentHash || e.ConfigHash != configHash {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Record upserts the cache entry for a converted beatmap set.
func (d *DB) Record(e Entry) error {
	_, err := d.db.Exec(`
		INSERT INTO beatmap_sets (dir_path, content_hash, config_hash, output_path, last_converted_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(dir_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			config_hash = excluded.config_hash,
			output_path = excluded.output_path,
			last_converted_at = CURRENT_TIMESTAMP
	`, e.DirPath, e.ContentHash, e.ConfigHash, e.OutputPath)
	if err != nil {
		return fmt.Errorf("cache: record %s: %w", e.DirPath, err)
	}
	return nil
}

// Forget removes a set's cache entry, forcing it to reconvert next run.
func (d *DB) Forget(dirPath string) error {
	_, err := d.db.Exec("DELETE FROM beatmap_sets WHERE dir_path = ?", dirPath)
	if err != nil {
		return fmt.Errorf("cache: forget %s: %w", dirPath, err)
	}
	return nil
}
