package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// sieveGrid builds a grid from rows of literal values, nodata where v is
// DefaultNoData.
func sieveGrid(t *testing.T, rows ...[]float64) *Grid {
	t.Helper()
	g := New(len(rows[0]), len(rows), 0, 0, 100)
	for r, row := range rows {
		for c, v := range row {
			g.Set(c, r, v)
		}
	}
	return g
}

func TestSieve_RemovesPatchesBelowThreshold(t *testing.T) {
	g := sieveGrid(t,
		[]float64{1, 1, DefaultNoData, 5},
		[]float64{1, 1, DefaultNoData, DefaultNoData},
	)

	out := Sieve(g, 2)

	assert.Equal(t, 1.0, out.At(0, 0), "large patch survives")
	assert.Equal(t, 1.0, out.At(1, 1))
	assert.True(t, out.IsNoData(out.At(3, 0)), "single-cell patch is sieved")
}

func TestSieve_DiagonalCellsAreSeparatePatches(t *testing.T) {
	g := sieveGrid(t,
		[]float64{1, DefaultNoData},
		[]float64{DefaultNoData, 2},
	)

	out := Sieve(g, 2)

	assert.True(t, out.IsNoData(out.At(0, 0)))
	assert.True(t, out.IsNoData(out.At(1, 1)))
}

func TestSieve_PatchSpansDifferentValues(t *testing.T) {
	// Continuous rasters rarely repeat values; connectivity is what counts.
	g := sieveGrid(t,
		[]float64{0.3, 0.7, DefaultNoData},
	)

	out := Sieve(g, 2)

	assert.Equal(t, 0.3, out.At(0, 0))
	assert.Equal(t, 0.7, out.At(1, 0))
}

func TestSieve_ThresholdOneIsIdentity(t *testing.T) {
	g := sieveGrid(t,
		[]float64{1, DefaultNoData, 3},
	)

	out := Sieve(g, 1)

	assert.Equal(t, g.Data, out.Data)
	assert.NotSame(t, g, out, "returns a copy, never the input")
}

func TestSieve_NoDataCellsStayNoData(t *testing.T) {
	g := sieveGrid(t,
		[]float64{DefaultNoData, DefaultNoData},
	)

	out := Sieve(g, 3)
	for _, v := range out.Data {
		assert.True(t, out.IsNoData(v))
	}
}
