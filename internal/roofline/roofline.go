// Package roofline models measured GEMM performance against the machine's
// compute and memory ceilings. Operational intensity is derived from tile
// geometry; peak compute is estimated from CPU features; peak bandwidth is
// either measured with a stream micro-benchmark or defaulted conservatively.
package roofline

import "github.com/samcharles93/gemmtune/internal/bench"

// DefaultBandwidthGBs is the conservative fallback when bandwidth
// measurement is unavailable.
const DefaultBandwidthGBs = 50.0

// Bound classifies a point relative to the ridge.
type Bound string

const (
	ComputeBound Bound = "compute-bound"
	MemoryBound  Bound = "memory-bound"
)

// Point carries the derived arithmetic of one tile geometry. It is always
// paired with a measured or estimated throughput for classification; it is
// never persisted on its own.
type Point struct {
	Tile      bench.Tile `json:"tile"`
	FLOPs     int64      `json:"flops"`
	Bytes     int64      `json:"bytes"`
	Intensity float64    `json:"intensity"`
}

// Analyze computes the operational intensity of a tile: one multiply and one
// add per output element per inner-dimension step, against the bytes moved
// when each input panel is read exactly once and the output tile is read
// once and written once, with 4-byte elements.
func Analyze(t bench.Tile) Point {
	mb, nb, kb := int64(t.MB), int64(t.NB), int64(t.KB)
	flops := 2 * mb * nb * kb
	bytes := 4 * (mb*kb + kb*nb + 2*mb*nb)
	return Point{
		Tile:      t,
		FLOPs:     flops,
		Bytes:     bytes,
		Intensity: float64(flops) / float64(bytes),
	}
}

// Params are the machine ceilings for one analysis run; computed once,
// read-only afterwards.
type Params struct {
	PeakGFLOPS   float64 `json:"peak_gflops"`
	BandwidthGBs float64 `json:"peak_bandwidth_gbs"`
}

// Ceiling is the attainable throughput at a given operational intensity.
func (p Params) Ceiling(intensity float64) float64 {
	memory := p.BandwidthGBs * intensity
	if memory < p.PeakGFLOPS {
		return memory
	}
	return p.PeakGFLOPS
}

// Ridge is the intensity at which the compute and memory ceilings intersect.
func (p Params) Ridge() float64 {
	return p.PeakGFLOPS / p.BandwidthGBs
}

// Classify reports whether a point is compute- or memory-bound. A point
// exactly at the ridge is compute-bound.
func (p Params) Classify(intensity float64) Bound {
	if intensity >= p.Ridge() {
		return ComputeBound
	}
	return MemoryBound
}

// Efficiency is measured throughput as a fraction of peak compute.
func (p Params) Efficiency(measuredGFLOPS float64) float64 {
	if p.PeakGFLOPS <= 0 {
		return 0
	}
	return measuredGFLOPS / p.PeakGFLOPS
}
