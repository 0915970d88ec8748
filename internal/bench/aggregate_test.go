package bench

import (
	"context"
	"testing"
)

// scriptedMeasurer replays a fixed sequence of outcomes. A negative value
// means the repetition fails.
type scriptedMeasurer struct {
	scores []float64
	calls  int
}

func (s *scriptedMeasurer) Measure(_ context.Context, req Request) (Result, bool) {
	if s.calls >= len(s.scores) {
		return Result{}, false
	}
	score := s.scores[s.calls]
	s.calls++
	if score < 0 {
		return Result{}, false
	}
	return Result{
		Impl: req.Impl, M: req.N, N: req.N, K: req.N,
		Threads: req.Threads, Tile: req.Tile,
		TimeMS: 1, GFLOPS: score, RelErr: 0,
	}, true
}

func TestRepeatMean(t *testing.T) {
	t.Parallel()

	m := &scriptedMeasurer{scores: []float64{10.0, 12.0, 11.0}}
	agg := Repeat(context.Background(), m, Request{Impl: "mk_avx2", N: 2048, Threads: 1}, 3)

	if !agg.OK() {
		t.Fatal("expected valid data")
	}
	if agg.Mean != 11.0 {
		t.Fatalf("mean = %v, want 11.0", agg.Mean)
	}
	if agg.Median != 11.0 {
		t.Fatalf("median = %v, want 11.0", agg.Median)
	}
	if agg.Valid != 3 || agg.Failed != 0 {
		t.Fatalf("valid/failed = %d/%d, want 3/0", agg.Valid, agg.Failed)
	}
}

func TestRepeatSkipsFailedRepetitions(t *testing.T) {
	t.Parallel()

	// The 12.0 run errors out; the mean covers only the two valid results.
	m := &scriptedMeasurer{scores: []float64{10.0, -1, 11.0}}
	agg := Repeat(context.Background(), m, Request{Impl: "mk_avx2", N: 2048, Threads: 1}, 3)

	if agg.Mean != 10.5 {
		t.Fatalf("mean = %v, want 10.5", agg.Mean)
	}
	if agg.Valid != 2 || agg.Failed != 1 {
		t.Fatalf("valid/failed = %d/%d, want 2/1", agg.Valid, agg.Failed)
	}
}

func TestRepeatAllFailed(t *testing.T) {
	t.Parallel()

	m := &scriptedMeasurer{scores: []float64{-1, -1}}
	agg := Repeat(context.Background(), m, Request{}, 2)

	if agg.OK() {
		t.Fatal("expected no-data flag when every repetition fails")
	}
	if agg.Mean != 0 {
		t.Fatalf("mean = %v, want 0", agg.Mean)
	}
	if agg.Failed != 2 {
		t.Fatalf("failed = %d, want 2", agg.Failed)
	}
}

func TestRepeatHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &scriptedMeasurer{scores: []float64{10.0, 10.0}}
	agg := Repeat(ctx, m, Request{}, 2)

	if m.calls != 0 {
		t.Fatalf("expected no measurements after cancellation, got %d", m.calls)
	}
	if agg.OK() {
		t.Fatal("expected no data after immediate cancellation")
	}
}

func TestMedian(t *testing.T) {
	t.Parallel()

	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Fatalf("empty median = %v, want 0", got)
	}
}
