// Package raster implements the single-band grid algebra the scenario
// pipeline is built from: weighted sums, min-max normalization, priority
// overlays, masking, sieve filtering and highest-position classification.
//
// All operations treat grids as immutable and return new grids. A cell whose
// value equals the grid's nodata marker (or is NaN) is invisible to every
// operation; the per-operation doc comments state how nodata propagates.
package raster

import (
	"fmt"
	"math"
)

// DefaultNoData is the nodata marker used for newly created grids. It
// matches the conventional GDAL default for float rasters.
const DefaultNoData = -9999.0

// Grid is an in-memory single-band raster. Data is row-major, north row
// first, matching the Esri ASCII grid layout it is read from and written to.
type Grid struct {
	Cols     int
	Rows     int
	XCorner  float64
	YCorner  float64
	CellSize float64
	NoData   float64
	Data     []float64
}

// New allocates a grid of the given shape filled with nodata.
func New(cols, rows int, xCorner, yCorner, cellSize float64) *Grid {
	g := &Grid{
		Cols:     cols,
		Rows:     rows,
		XCorner:  xCorner,
		YCorner:  yCorner,
		CellSize: cellSize,
		NoData:   DefaultNoData,
		Data:     make([]float64, cols*rows),
	}
	for i := range g.Data {
		g.Data[i] = g.NoData
	}
	return g
}

// IsNoData reports whether v is invisible to grid algebra.
func (g *Grid) IsNoData(v float64) bool {
	return v == g.NoData || math.IsNaN(v)
}

// At returns the value at (col, row). Callers are expected to stay in
// bounds; the pipeline only indexes within shapes it has already aligned.
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set writes the value at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// CellAreaHa returns the area of one cell in hectares, assuming the cell
// size is in meters.
func (g *Grid) CellAreaHa() float64 {
	return g.CellSize * g.CellSize / 10000
}

// shape returns a printable description of the grid's alignment.
func (g *Grid) shape() string {
	return fmt.Sprintf("%dx%d @ (%g,%g) cell %g", g.Cols, g.Rows, g.XCorner, g.YCorner, g.CellSize)
}

// Aligned reports whether two grids share shape, origin and cell size.
func (g *Grid) Aligned(other *Grid) bool {
	return g.Cols == other.Cols &&
		g.Rows == other.Rows &&
		g.XCorner == other.XCorner &&
		g.YCorner == other.YCorner &&
		g.CellSize == other.CellSize
}

// alignAll verifies every grid matches the first one's alignment.
func alignAll(grids []*Grid) error {
	if len(grids) == 0 {
		return fmt.Errorf("no input grids")
	}
	ref := grids[0]
	for i, g := range grids[1:] {
		if !ref.Aligned(g) {
			return fmt.Errorf("grid %d is not aligned: %s vs %s", i+1, g.shape(), ref.shape())
		}
	}
	return nil
}

// emptyLike allocates a nodata-filled grid sharing g's alignment.
func (g *Grid) emptyLike() *Grid {
	return New(g.Cols, g.Rows, g.XCorner, g.YCorner, g.CellSize)
}
