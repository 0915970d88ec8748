package tuner

import "github.com/samcharles93/gemmtune/internal/bench"

// Grid is the discrete candidate space for tile dimensions.
type Grid struct {
	MB []int
	NB []int
	KB []int
}

// DefaultGrid is the candidate space tuned kernels are searched over.
func DefaultGrid() Grid {
	return Grid{
		MB: []int{128, 192, 256, 320},
		NB: []int{128, 192, 256, 320},
		KB: []int{96, 128, 160, 192, 256},
	}
}

// Size is the exact number of cells, independent of measurement outcomes.
func (g Grid) Size() int {
	return len(g.MB) * len(g.NB) * len(g.KB)
}

// Tiles enumerates the full Cartesian product in lexicographic order over
// (MB, NB, KB). The order is fixed so re-runs with noise-free measurements
// reproduce the same selection: ties keep the earlier-found configuration.
func (g Grid) Tiles() []bench.Tile {
	tiles := make([]bench.Tile, 0, g.Size())
	for _, mb := range g.MB {
		for _, nb := range g.NB {
			for _, kb := range g.KB {
				tiles = append(tiles, bench.Tile{MB: mb, NB: nb, KB: kb})
			}
		}
	}
	return tiles
}
