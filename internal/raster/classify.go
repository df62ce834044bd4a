package raster

import "fmt"

// HighestPosition assigns each cell the 1-based index of the input grid
// holding the greatest value there. Ties resolve to the lowest index. Cells
// where some inputs are nodata consider only the valid inputs; a cell where
// every input is nodata stays nodata.
func HighestPosition(grids []*Grid) (*Grid, error) {
	if err := alignAll(grids); err != nil {
		return nil, fmt.Errorf("highest position: %w", err)
	}

	out := grids[0].emptyLike()
	for i := range out.Data {
		best := 0
		bestVal := 0.0
		for j, g := range grids {
			v := g.Data[i]
			if g.IsNoData(v) {
				continue
			}
			if best == 0 || v > bestVal {
				best = j + 1
				bestVal = v
			}
		}
		if best > 0 {
			out.Data[i] = float64(best)
		}
	}
	return out, nil
}
