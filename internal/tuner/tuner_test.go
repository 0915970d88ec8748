package tuner

import (
	"context"
	"testing"

	"github.com/samcharles93/gemmtune/internal/bench"
)

// fakeMeasurer is a deterministic measurement oracle: score decides each
// request's throughput, or fails it by returning ok=false.
type fakeMeasurer struct {
	score func(req bench.Request) (float64, bool)
	calls int
}

func (f *fakeMeasurer) Measure(_ context.Context, req bench.Request) (bench.Result, bool) {
	f.calls++
	gflops, ok := f.score(req)
	if !ok {
		return bench.Result{}, false
	}
	return bench.Result{
		Impl: req.Impl, M: req.N, N: req.N, K: req.N,
		Threads: req.Threads, Tile: req.Tile,
		TimeMS: 1, GFLOPS: gflops, RelErr: 0,
	}, true
}

func smallGrid() Grid {
	return Grid{MB: []int{128, 256}, NB: []int{128, 256}, KB: []int{128}}
}

func TestGridEnumeration(t *testing.T) {
	t.Parallel()

	g := DefaultGrid()
	if got, want := g.Size(), 4*4*5; got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
	tiles := g.Tiles()
	if len(tiles) != g.Size() {
		t.Fatalf("len(Tiles()) = %d, want %d", len(tiles), g.Size())
	}
	if tiles[0] != (bench.Tile{MB: 128, NB: 128, KB: 96}) {
		t.Fatalf("first tile = %+v, want lexicographic minimum", tiles[0])
	}
	if tiles[len(tiles)-1] != (bench.Tile{MB: 320, NB: 320, KB: 256}) {
		t.Fatalf("last tile = %+v, want lexicographic maximum", tiles[len(tiles)-1])
	}
	// Lexicographic over (MB, NB, KB): KB varies fastest.
	if tiles[1] != (bench.Tile{MB: 128, NB: 128, KB: 128}) {
		t.Fatalf("second tile = %+v, want KB to vary fastest", tiles[1])
	}
}

func TestRunSelectsBestCell(t *testing.T) {
	t.Parallel()

	// (256,256,128) scores higher than every other cell at every test size.
	score := func(req bench.Request) (float64, bool) {
		if req.Tile == (bench.Tile{MB: 256, NB: 256, KB: 128}) {
			return 300.0, true
		}
		return 100.0 + float64(req.Tile.MB)/100, true
	}

	opts := Options{
		Impl:         "mk_avx2",
		ThreadCounts: []int{1},
		TestSizes:    []int{2048, 4096},
		Reps:         2,
		Grid:         smallGrid(),
	}

	for run := 0; run < 3; run++ {
		tn := &Tuner{Measurer: &fakeMeasurer{score: score}, Opts: opts}
		result := tn.Run(context.Background())

		w, ok := result["t1"]
		if !ok {
			t.Fatal("expected t1 entry")
		}
		if w.Tile != (bench.Tile{MB: 256, NB: 256, KB: 128}) {
			t.Fatalf("run %d: winner tile = %+v", run, w.Tile)
		}
		if w.Score != 300.0 {
			t.Fatalf("run %d: winner score = %v, want 300.0", run, w.Score)
		}
	}
}

func TestRunBestScoreDominatesAllCells(t *testing.T) {
	t.Parallel()

	// A distinct deterministic score per cell.
	cellScore := func(tile bench.Tile) float64 {
		return float64(tile.MB)*7 + float64(tile.NB)*3 + float64(tile.KB)
	}
	fake := &fakeMeasurer{score: func(req bench.Request) (float64, bool) {
		return cellScore(req.Tile), true
	}}

	opts := Options{ThreadCounts: []int{1}, TestSizes: []int{2048}, Reps: 1, Grid: smallGrid()}
	result := (&Tuner{Measurer: fake, Opts: opts}).Run(context.Background())

	w := result["t1"]
	for _, tile := range opts.Grid.Tiles() {
		if got := cellScore(tile); w.Score < got {
			t.Fatalf("best score %v below cell %+v score %v", w.Score, tile, got)
		}
	}
}

func TestRunEvaluatesEveryCellDespiteFailures(t *testing.T) {
	t.Parallel()

	fake := &fakeMeasurer{score: func(req bench.Request) (float64, bool) {
		// Half the grid fails outright; enumeration must still cover it all.
		if req.Tile.MB == 128 {
			return 0, false
		}
		return 200, true
	}}

	opts := Options{ThreadCounts: []int{1}, TestSizes: []int{2048, 4096}, Reps: 2, Grid: smallGrid()}
	(&Tuner{Measurer: fake, Opts: opts}).Run(context.Background())

	want := smallGrid().Size() * len(opts.TestSizes) * opts.Reps
	if fake.calls != want {
		t.Fatalf("measure calls = %d, want %d (every cell attempted)", fake.calls, want)
	}
}

func TestRunOmitsThreadCountWithNoData(t *testing.T) {
	t.Parallel()

	fake := &fakeMeasurer{score: func(req bench.Request) (float64, bool) {
		if req.Threads == 2 {
			return 0, false
		}
		return 150, true
	}}

	opts := Options{ThreadCounts: []int{1, 2}, TestSizes: []int{2048}, Reps: 1, Grid: smallGrid()}
	result := (&Tuner{Measurer: fake, Opts: opts}).Run(context.Background())

	if _, ok := result["t1"]; !ok {
		t.Fatal("expected t1 entry")
	}
	if _, ok := result["t2"]; ok {
		t.Fatal("t2 must be omitted, not stored as a zero-score entry")
	}
}

func TestRunTieKeepsEarlierCell(t *testing.T) {
	t.Parallel()

	fake := &fakeMeasurer{score: func(req bench.Request) (float64, bool) {
		return 100, true
	}}

	opts := Options{ThreadCounts: []int{1}, TestSizes: []int{2048}, Reps: 1, Grid: smallGrid()}
	result := (&Tuner{Measurer: fake, Opts: opts}).Run(context.Background())

	// All scores equal: the first cell in enumeration order wins.
	if w := result["t1"]; w.Tile != (bench.Tile{MB: 128, NB: 128, KB: 128}) {
		t.Fatalf("tie winner = %+v, want first enumerated cell", w.Tile)
	}
}

func TestRunCancellationKeepsCompletedThreadCounts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	perThread := smallGrid().Size() // one size, one rep: calls per thread count
	fake := &fakeMeasurer{}
	fake.score = func(req bench.Request) (float64, bool) {
		if fake.calls == perThread+1 {
			// Interrupt mid-grid during the second thread count.
			cancel()
		}
		return 100 + float64(req.Tile.MB), true
	}

	opts := Options{ThreadCounts: []int{1, 2, 4}, TestSizes: []int{2048}, Reps: 1, Grid: smallGrid()}
	result := (&Tuner{Measurer: fake, Opts: opts}).Run(ctx)

	if _, ok := result["t1"]; !ok {
		t.Fatal("completed t1 entry must survive the interrupt")
	}
	if _, ok := result["t2"]; ok {
		t.Fatal("in-progress t2 must be discarded")
	}
	if _, ok := result["t4"]; ok {
		t.Fatal("t4 must never start after the interrupt")
	}
}

func TestResultTiles(t *testing.T) {
	t.Parallel()

	r := Result{
		"t1": {Tile: bench.Tile{MB: 256, NB: 256, KB: 128}, Score: 120},
		"t8": {Tile: bench.Tile{MB: 320, NB: 256, KB: 96}, Score: 400},
	}
	tiles := r.Tiles()
	if len(tiles) != 2 {
		t.Fatalf("len(tiles) = %d, want 2", len(tiles))
	}
	if tiles["t8"] != (bench.Tile{MB: 320, NB: 256, KB: 96}) {
		t.Fatalf("t8 tile = %+v", tiles["t8"])
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()
	if Label(8) != "t8" {
		t.Fatalf("Label(8) = %q, want t8", Label(8))
	}
}
