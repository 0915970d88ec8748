package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/samcharles93/gemmtune/internal/logger"
)

// ErrBenchNotFound is returned by Check when the benchmark executable is
// absent or not executable. This is the one fatal environment failure: the
// whole run aborts before any measurement is attempted.
var ErrBenchNotFound = errors.New("bench: benchmark executable not found")

// DefaultTimeout bounds a single invocation. Large naive-implementation
// cells can legitimately run for minutes.
const DefaultTimeout = 5 * time.Minute

// ExecMeasurer launches the external benchmark executable once per Measure
// call. Thread count travels through OMP_NUM_THREADS; placement is pinned
// to cores with close binding to reduce measurement variance.
type ExecMeasurer struct {
	// Path to the gemm_bench executable.
	Path string
	// Timeout per invocation; DefaultTimeout when zero.
	Timeout time.Duration
}

// Check verifies the executable exists and carries an execute bit.
func (m *ExecMeasurer) Check() error {
	info, err := os.Stat(m.Path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBenchNotFound, m.Path)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrBenchNotFound, m.Path)
	}
	return nil
}

// Measure runs one isolated measurement. Launch failure, non-zero exit,
// timeout and unparseable output all report (zero Result, false); none of
// them is fatal to the caller.
func (m *ExecMeasurer) Measure(ctx context.Context, req Request) (Result, bool) {
	log := logger.FromContext(ctx)

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.Path,
		"--impl", req.Impl,
		"--N", strconv.Itoa(req.N),
		"--MB", strconv.Itoa(req.Tile.MB),
		"--NB", strconv.Itoa(req.Tile.NB),
		"--KB", strconv.Itoa(req.Tile.KB),
		"--reps", strconv.Itoa(req.Reps),
	)
	cmd.Env = append(os.Environ(),
		"OMP_NUM_THREADS="+strconv.Itoa(req.Threads),
		"OMP_PLACES=cores",
		"OMP_PROC_BIND=close",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Warn("benchmark timed out",
				"impl", req.Impl, "N", req.N, "threads", req.Threads, "timeout", timeout)
			return Result{}, false
		}
		log.Warn("benchmark failed",
			"impl", req.Impl, "N", req.N, "threads", req.Threads,
			"err", err, "stderr", strings.TrimSpace(stderr.String()))
		return Result{}, false
	}

	res, ok := ParseSummary(stdout.String())
	if !ok {
		log.Warn("benchmark output missing summary line",
			"impl", req.Impl, "N", req.N, "threads", req.Threads)
		return Result{}, false
	}
	return res, true
}
