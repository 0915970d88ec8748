package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/samcharles93/gemmtune/internal/bench"
)

// Cell outcome status values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// CellOutcome records what happened to one sweep cell, including failures
// and exclusions that never become table rows.
type CellOutcome struct {
	Impl    string     `json:"impl"`
	N       int        `json:"N"`
	Threads int        `json:"threads"`
	Tile    bench.Tile `json:"tile"`
	Status  string     `json:"status"`
	GFLOPS  float64    `json:"gflops,omitempty"`
	TimeMS  float64    `json:"time_ms,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

// Session is the JSON audit log of one sweep run.
type Session struct {
	ID         string        `json:"id"`
	BenchPath  string        `json:"bench_path"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Cells      []CellOutcome `json:"cells"`
}

// NewSession starts a session log with a fresh run ID.
func NewSession(benchPath string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		BenchPath: benchPath,
		StartedAt: time.Now().UTC(),
	}
}

// RecordOK logs a successful cell.
func (s *Session) RecordOK(res bench.Result) {
	s.Cells = append(s.Cells, CellOutcome{
		Impl:    res.Impl,
		N:       res.N,
		Threads: res.Threads,
		Tile:    res.Tile,
		Status:  StatusOK,
		GFLOPS:  res.GFLOPS,
		TimeMS:  res.TimeMS,
	})
}

// RecordFailed logs a cell whose every repetition failed.
func (s *Session) RecordFailed(req bench.Request, reason string) {
	s.Cells = append(s.Cells, CellOutcome{
		Impl:    req.Impl,
		N:       req.N,
		Threads: req.Threads,
		Tile:    req.Tile,
		Status:  StatusFailed,
		Reason:  reason,
	})
}

// RecordSkipped logs a cell excluded before any measurement.
func (s *Session) RecordSkipped(req bench.Request, reason string) {
	s.Cells = append(s.Cells, CellOutcome{
		Impl:    req.Impl,
		N:       req.N,
		Threads: req.Threads,
		Tile:    req.Tile,
		Status:  StatusSkipped,
		Reason:  reason,
	})
}

// Write finalizes the session and writes it as indented JSON.
func (s *Session) Write(path string) error {
	s.FinishedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("results: create dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("results: marshal session: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("results: write session: %w", err)
	}
	return nil
}
