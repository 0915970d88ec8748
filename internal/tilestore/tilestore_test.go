package tilestore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/gemmtune/internal/bench"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := &Store{Path: filepath.Join(t.TempDir(), "data", "best_tiles.json")}
	tiles := map[string]bench.Tile{
		"t1": {MB: 256, NB: 256, KB: 128},
		"t8": {MB: 320, NB: 256, KB: 96},
	}
	if err := s.Save(tiles); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got["t1"] != (bench.Tile{MB: 256, NB: 256, KB: 128}) {
		t.Fatalf("t1 = %+v", got["t1"])
	}
	if got["t8"] != (bench.Tile{MB: 320, NB: 256, KB: 96}) {
		t.Fatalf("t8 = %+v", got["t8"])
	}
}

func TestSaveIsHumanReadable(t *testing.T) {
	t.Parallel()

	s := &Store{Path: filepath.Join(t.TempDir(), "best_tiles.json")}
	if err := s.Save(map[string]bench.Tile{"t1": {MB: 256, NB: 192, KB: 128}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"MB": 256`) {
		t.Fatalf("expected indented MB field, got:\n%s", text)
	}
	if !strings.HasSuffix(text, "\n") {
		t.Fatal("expected trailing newline")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	s := &Store{Path: filepath.Join(t.TempDir(), "absent.json")}
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "best_tiles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := &Store{Path: path}
	if _, err := s.Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsBadLabel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "best_tiles.json")
	record := `{"threads-8": {"MB": 256, "NB": 256, "KB": 128}}`
	if err := os.WriteFile(path, []byte(record), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := &Store{Path: path}
	if _, err := s.Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsNonPositiveTile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "best_tiles.json")
	record := `{"t1": {"MB": 0, "NB": 256, "KB": 128}}`
	if err := os.WriteFile(path, []byte(record), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := &Store{Path: path}
	if _, err := s.Load(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	s := &Store{Path: filepath.Join(t.TempDir(), "best_tiles.json")}
	if err := s.Save(map[string]bench.Tile{"t4": {MB: 192, NB: 192, KB: 160}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	tile, ok := s.Lookup(4)
	if !ok {
		t.Fatal("expected tuned tile for 4 threads")
	}
	if tile != (bench.Tile{MB: 192, NB: 192, KB: 160}) {
		t.Fatalf("tile = %+v", tile)
	}

	if _, ok := s.Lookup(2); ok {
		t.Fatal("expected no tile for untuned thread count")
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := &Store{Path: filepath.Join(dir, "best_tiles.json")}
	if err := s.Save(map[string]bench.Tile{"t1": {MB: 128, NB: 128, KB: 96}}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(map[string]bench.Tile{"t1": {MB: 256, NB: 256, KB: 128}}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got["t1"] != (bench.Tile{MB: 256, NB: 256, KB: 128}) {
		t.Fatalf("t1 = %+v, want second record", got["t1"])
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the store file in %s, found %d entries", dir, len(entries))
	}
}
