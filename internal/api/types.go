package api

import (
	"github.com/samcharles93/gemmtune/internal/bench"
	"github.com/samcharles93/gemmtune/internal/roofline"
)

// resultRow is the JSON projection of one sweep table row.
type resultRow struct {
	Impl    string  `json:"impl"`
	M       int     `json:"M"`
	N       int     `json:"N"`
	K       int     `json:"K"`
	Threads int     `json:"threads"`
	MB      int     `json:"MB"`
	NB      int     `json:"NB"`
	KB      int     `json:"KB"`
	TimeMS  float64 `json:"time_ms"`
	GFLOPS  float64 `json:"gflops"`
	RelErr  float64 `json:"relerr"`
	Notes   string  `json:"notes,omitempty"`
}

func toRow(r bench.Result) resultRow {
	return resultRow{
		Impl:    r.Impl,
		M:       r.M,
		N:       r.N,
		K:       r.K,
		Threads: r.Threads,
		MB:      r.Tile.MB,
		NB:      r.Tile.NB,
		KB:      r.Tile.KB,
		TimeMS:  r.TimeMS,
		GFLOPS:  r.GFLOPS,
		RelErr:  r.RelErr,
		Notes:   r.Notes,
	}
}

type rooflineResponse struct {
	Point      roofline.Point  `json:"point"`
	Params     roofline.Params `json:"params"`
	Ridge      float64         `json:"ridge"`
	Ceiling    float64         `json:"ceiling"`
	Bound      roofline.Bound  `json:"bound"`
	Measured   float64         `json:"measured,omitempty"`
	Efficiency float64         `json:"efficiency,omitempty"`
}
