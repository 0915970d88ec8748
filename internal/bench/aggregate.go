package bench

import (
	"context"
	"sort"
)

// Aggregate reduces repeated measurements of one configuration to summary
// statistics over the successful repetitions only.
type Aggregate struct {
	Mean   float64
	Median float64
	Valid  int
	Failed int
}

// OK reports whether at least one repetition produced valid data. A zero
// Mean with OK()==false means "no data", never a genuine measurement of
// zero throughput.
func (a Aggregate) OK() bool {
	return a.Valid > 0
}

// Repeat invokes the measurer reps times with the same request and collects
// the throughput of the successful runs. Failed repetitions are counted and
// discarded. Cancellation is honored between repetitions; a partial tally is
// returned as-is.
func Repeat(ctx context.Context, m Measurer, req Request, reps int) Aggregate {
	var agg Aggregate
	scores := make([]float64, 0, reps)

	for i := 0; i < reps; i++ {
		if ctx.Err() != nil {
			break
		}
		res, ok := m.Measure(ctx, req)
		if !ok {
			agg.Failed++
			continue
		}
		agg.Valid++
		scores = append(scores, res.GFLOPS)
	}

	if len(scores) > 0 {
		agg.Mean = Mean(scores)
		agg.Median = Median(scores)
	}
	return agg
}

// Mean returns the arithmetic mean of vals. Zero for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Median returns the median of vals, the midpoint average for even counts.
// Preferred over the mean for single noisy comparisons.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
