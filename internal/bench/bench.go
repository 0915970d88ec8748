// Package bench drives the external gemm_bench executable and turns its
// output into typed measurements. The executable is treated as an opaque
// measurement oracle: one process launch per measurement, fixed CLI and
// environment contract, bounded by a timeout. Failures are reported as
// "no result" so a multi-thousand-cell sweep tolerates isolated bad cells.
package bench

import (
	"context"
	"math"
)

// Tile is the sub-block geometry a GEMM problem is decomposed into.
// Value type; compared and stored without reference to thread count.
type Tile struct {
	MB int `json:"MB"`
	NB int `json:"NB"`
	KB int `json:"KB"`
}

// Request fully determines one measurement. Immutable once constructed;
// translation to argv and environment happens only at the exec boundary.
type Request struct {
	Impl    string
	N       int
	Tile    Tile
	Threads int
	// Reps is forwarded to the executable as --reps; the binary times that
	// many iterations internally and reports its best.
	Reps int
}

// Result is the parsed summary of one successful benchmark invocation.
type Result struct {
	Impl    string
	M       int
	N       int
	K       int
	Threads int
	Tile    Tile
	TimeMS  float64
	GFLOPS  float64
	RelErr  float64
	Notes   string
}

// Valid reports whether the numeric fields are finite and non-negative.
// Results failing this check are excluded from aggregation.
func (r Result) Valid() bool {
	for _, v := range []float64{r.TimeMS, r.GFLOPS, r.RelErr} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return r.M > 0 && r.N > 0 && r.K > 0 && r.Threads > 0
}

// Measurer is the measurement oracle. Implementations must be safe to call
// sequentially; callers never run measurements concurrently because parallel
// child processes would contend for the cores under test.
//
// The boolean is false for any failed measurement (launch failure, non-zero
// exit, timeout, unparseable output). Failure is not an error: the caller
// skips the cell and proceeds.
type Measurer interface {
	Measure(ctx context.Context, req Request) (Result, bool)
}
