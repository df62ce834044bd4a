package raster

import (
	"fmt"
	"math"
)

// Sum computes the cell-wise weighted sum of the inputs. A cell contributes
// only where it holds data; the output cell is nodata only when every input
// is nodata there. coeffs must be nil (all ones) or match len(grids).
func Sum(grids []*Grid, coeffs []float64) (*Grid, error) {
	if err := alignAll(grids); err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}
	if coeffs != nil && len(coeffs) != len(grids) {
		return nil, fmt.Errorf("sum: %d coefficients for %d grids", len(coeffs), len(grids))
	}

	out := grids[0].emptyLike()
	for i := range out.Data {
		total := 0.0
		seen := false
		for j, g := range grids {
			v := g.Data[i]
			if g.IsNoData(v) {
				continue
			}
			c := 1.0
			if coeffs != nil {
				c = coeffs[j]
			}
			total += c * v
			seen = true
		}
		if seen {
			out.Data[i] = total
		}
	}
	return out, nil
}

// Normalize rescales valid cells to [0,1] using the grid's own min and max.
// A zero range produces 0 for every valid cell; a constant layer is a
// degenerate but legal input.
func Normalize(g *Grid) *Grid {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := g.emptyLike()
	if math.IsInf(min, 1) {
		// Every cell is nodata.
		return out
	}
	span := max - min
	for i, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		if span == 0 {
			out.Data[i] = 0
			continue
		}
		out.Data[i] = (v - min) / span
	}
	return out
}

// NormalizeWithCarbon blends a normalized pathway with a normalized carbon
// layer: (pathway + coeff*carbon) / (1 + coeff). Where the carbon layer has
// no data the pathway value passes through unscaled.
func NormalizeWithCarbon(pathway, carbon *Grid, coeff float64) (*Grid, error) {
	if !pathway.Aligned(carbon) {
		return nil, fmt.Errorf("carbon blend: grids not aligned: %s vs %s", carbon.shape(), pathway.shape())
	}
	if coeff < 0 {
		return nil, fmt.Errorf("carbon blend: negative coefficient %g", coeff)
	}

	out := pathway.emptyLike()
	for i, v := range pathway.Data {
		if pathway.IsNoData(v) {
			continue
		}
		c := carbon.Data[i]
		if carbon.IsNoData(c) {
			out.Data[i] = v
			continue
		}
		out.Data[i] = (v + coeff*c) / (1 + coeff)
	}
	return out, nil
}

// WeightedOverlay adds weight/100 of each priority layer to the base grid.
// Priority layers are expected to be normalized to [0,1]; weights are
// percentages. Nodata in a priority layer contributes nothing, and nodata in
// the base stays nodata.
func WeightedOverlay(base *Grid, pwls []*Grid, weights []float64) (*Grid, error) {
	if len(pwls) != len(weights) {
		return nil, fmt.Errorf("weighted overlay: %d weights for %d layers", len(weights), len(pwls))
	}
	if err := alignAll(append([]*Grid{base}, pwls...)); err != nil {
		return nil, fmt.Errorf("weighted overlay: %w", err)
	}

	out := base.emptyLike()
	for i, v := range base.Data {
		if base.IsNoData(v) {
			continue
		}
		total := v
		for j, p := range pwls {
			pv := p.Data[i]
			if p.IsNoData(pv) {
				continue
			}
			total += weights[j] / 100 * pv
		}
		out.Data[i] = total
	}
	return out, nil
}

// ApplyMask keeps base cells only where the mask holds data and is positive.
func ApplyMask(base, mask *Grid) (*Grid, error) {
	if !base.Aligned(mask) {
		return nil, fmt.Errorf("mask: grids not aligned: %s vs %s", mask.shape(), base.shape())
	}

	out := base.emptyLike()
	for i, v := range base.Data {
		if base.IsNoData(v) {
			continue
		}
		m := mask.Data[i]
		if mask.IsNoData(m) || m <= 0 {
			continue
		}
		out.Data[i] = v
	}
	return out, nil
}
