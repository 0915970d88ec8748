// Package tilestore persists tuned tile configurations as a small JSON
// key-value record mapping a thread-count label ("t1", "t8") to tile
// dimensions. The file is human-readable and safe to check into version
// control; writes are atomic so an interrupted tuning run never leaves a
// torn record behind.
package tilestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/gemmtune/internal/bench"
)

var (
	ErrNotFound = errors.New("tilestore: file not found")
	ErrInvalid  = errors.New("tilestore: invalid record")
)

// Store reads and writes the tuned-tile record at Path.
type Store struct {
	Path string
}

// Save writes the record atomically: marshal to a temp file in the target
// directory, then rename over the destination.
func (s *Store) Save(tiles map[string]bench.Tile) error {
	if err := validate(tiles); err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("tilestore: create %s: %w", dir, err)
	}

	// Map keys marshal in sorted order, so re-tuning produces stable diffs.
	data, err := json.MarshalIndent(tiles, "", "  ")
	if err != nil {
		return fmt.Errorf("tilestore: marshal: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".tiles-*.json")
	if err != nil {
		return fmt.Errorf("tilestore: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("tilestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tilestore: close: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("tilestore: rename: %w", err)
	}
	return nil
}

// Load reads and validates the record. A missing file is ErrNotFound; a
// present but malformed record is ErrInvalid.
func (s *Store) Load() (map[string]bench.Tile, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, fmt.Errorf("tilestore: read %s: %w", s.Path, err)
	}

	var tiles map[string]bench.Tile
	if err := json.Unmarshal(data, &tiles); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, s.Path, err)
	}
	if err := validate(tiles); err != nil {
		return nil, err
	}
	return tiles, nil
}

// Lookup returns the tuned tile for a thread count, if one was recorded.
func (s *Store) Lookup(threads int) (bench.Tile, bool) {
	tiles, err := s.Load()
	if err != nil {
		return bench.Tile{}, false
	}
	tile, ok := tiles["t"+strconv.Itoa(threads)]
	return tile, ok
}

func validate(tiles map[string]bench.Tile) error {
	for label, tile := range tiles {
		if !validLabel(label) {
			return fmt.Errorf("%w: bad thread-count label %q", ErrInvalid, label)
		}
		if tile.MB <= 0 || tile.NB <= 0 || tile.KB <= 0 {
			return fmt.Errorf("%w: non-positive tile %+v for %s", ErrInvalid, tile, label)
		}
	}
	return nil
}

func validLabel(label string) bool {
	if len(label) < 2 || label[0] != 't' {
		return false
	}
	n, err := strconv.Atoi(label[1:])
	return err == nil && n > 0
}
