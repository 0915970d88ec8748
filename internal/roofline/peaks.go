package roofline

import (
	"runtime"
	"time"

	"golang.org/x/sys/cpu"
)

// FlopsPerCycle is the per-core single-precision FLOPs per cycle implied by
// the widest available SIMD extension, assuming one FMA pipe.
func FlopsPerCycle() int {
	switch {
	case cpu.X86.HasAVX512F:
		return 32 // 16 f32 lanes, multiply+add
	case cpu.X86.HasAVX2 && cpu.X86.HasFMA:
		return 16 // 8 f32 lanes, multiply+add
	case cpu.X86.HasAVX:
		return 8
	default:
		return 4
	}
}

// EstimatePeakCompute is the analytical ceiling in GFLOP/s:
// cores x FLOPs/cycle/core x clock frequency. Cores defaults to the
// machine's logical CPU count when non-positive.
func EstimatePeakCompute(cores int, ghz float64) float64 {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return float64(cores) * float64(FlopsPerCycle()) * ghz
}

// streamElems is 64 Mi float32 values per buffer, 256 MB each, far beyond
// any cache so the triad streams from memory.
const (
	streamElems = 64 * 1024 * 1024
	streamReps  = 10
)

// MeasureBandwidth times a streaming read-read-write triad (c[i] = a[i] +
// b[i], 12 bytes moved per element per repetition) and converts to GB/s.
// Returns DefaultBandwidthGBs if the measurement produces nonsense.
func MeasureBandwidth() float64 {
	return measureBandwidth(streamElems, streamReps)
}

func measureBandwidth(elems, reps int) float64 {
	a := make([]float32, elems)
	b := make([]float32, elems)
	c := make([]float32, elems)
	for i := range a {
		a[i] = 1.0
		b[i] = 2.0
	}

	// Warmup pass faults the pages in before timing.
	stream(c, a, b)

	start := time.Now()
	for rep := 0; rep < reps; rep++ {
		stream(c, a, b)
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return DefaultBandwidthGBs
	}

	bytes := float64(elems) * 12.0 * float64(reps)
	return bytes / (elapsed * 1e9)
}

func stream(c, a, b []float32) {
	for i := range c {
		c[i] = a[i] + b[i]
	}
}
