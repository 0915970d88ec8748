// Package results persists benchmark output: the flat CSV table consumed by
// downstream roofline and plotting analysis, and a JSON session log of every
// attempted cell. Both formats are fixed data contracts validated on read.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samcharles93/gemmtune/internal/bench"
)

// Header is the fixed sweep-table schema. Readers reject files whose header
// does not match field for field.
var Header = []string{
	"impl", "M", "N", "K", "threads", "MB", "NB", "KB",
	"time_ms", "gflops", "relerr", "notes",
}

var ErrBadSchema = errors.New("results: table does not match schema")

// WriteTable writes one row per successful benchmark cell, in the order the
// cells were measured. Failed cells are absent, never zero rows.
func WriteTable(path string, rows []bench.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("results: create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("results: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("results: write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Impl,
			strconv.Itoa(r.M),
			strconv.Itoa(r.N),
			strconv.Itoa(r.K),
			strconv.Itoa(r.Threads),
			strconv.Itoa(r.Tile.MB),
			strconv.Itoa(r.Tile.NB),
			strconv.Itoa(r.Tile.KB),
			formatFloat(r.TimeMS),
			formatFloat(r.GFLOPS),
			formatFloat(r.RelErr),
			r.Notes,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("results: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("results: flush: %w", err)
	}
	return f.Close()
}

// ReadTable reads a sweep table back, validating the header and every row
// against the schema.
func ReadTable(path string) ([]bench.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("results: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("results: read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBadSchema, path)
	}
	for i, name := range Header {
		if records[0][i] != name {
			return nil, fmt.Errorf("%w: %s: header column %d is %q, want %q",
				ErrBadSchema, path, i, records[0][i], name)
		}
	}

	rows := make([]bench.Result, 0, len(records)-1)
	for _, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadSchema, path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (bench.Result, error) {
	ints := make([]int, 7)
	for i, col := range []int{1, 2, 3, 4, 5, 6, 7} {
		v, err := strconv.Atoi(rec[col])
		if err != nil {
			return bench.Result{}, fmt.Errorf("column %s: %v", Header[col], err)
		}
		ints[i] = v
	}
	floats := make([]float64, 3)
	for i, col := range []int{8, 9, 10} {
		v, err := strconv.ParseFloat(rec[col], 64)
		if err != nil {
			return bench.Result{}, fmt.Errorf("column %s: %v", Header[col], err)
		}
		floats[i] = v
	}

	row := bench.Result{
		Impl:    rec[0],
		M:       ints[0],
		N:       ints[1],
		K:       ints[2],
		Threads: ints[3],
		Tile:    bench.Tile{MB: ints[4], NB: ints[5], KB: ints[6]},
		TimeMS:  floats[0],
		GFLOPS:  floats[1],
		RelErr:  floats[2],
		Notes:   rec[11],
	}
	if !row.Valid() {
		return bench.Result{}, fmt.Errorf("row for impl=%s N=%d fails validation", row.Impl, row.N)
	}
	return row, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
