package raster

import "math"

// Summary holds basic descriptive statistics over a grid's valid cells.
type Summary struct {
	Min        float64
	Max        float64
	Mean       float64
	ValidCount int
}

// Stats computes descriptive statistics over the grid's valid cells. An
// all-nodata grid yields a zero ValidCount and NaN min/max/mean.
func Stats(g *Grid) Summary {
	s := Summary{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN()}
	total := 0.0
	for _, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		if s.ValidCount == 0 {
			s.Min, s.Max = v, v
		} else {
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
		total += v
		s.ValidCount++
	}
	if s.ValidCount > 0 {
		s.Mean = total / float64(s.ValidCount)
	}
	return s
}

// ClassCounts tallies the pixels per integer class in a classified grid.
// Nodata cells are not counted.
func ClassCounts(g *Grid) map[int]int {
	counts := make(map[int]int)
	for _, v := range g.Data {
		if g.IsNoData(v) {
			continue
		}
		counts[int(v)]++
	}
	return counts
}

// MeanWhereClass computes the mean of src over the cells where classified
// holds class. Returns NaN when the class is empty.
func MeanWhereClass(src, classified *Grid, class int) float64 {
	total, n := 0.0, 0
	for i, v := range classified.Data {
		if classified.IsNoData(v) || int(v) != class {
			continue
		}
		sv := src.Data[i]
		if src.IsNoData(sv) {
			continue
		}
		total += sv
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return total / float64(n)
}
