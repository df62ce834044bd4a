package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridOf builds a 1-row grid from literal values for terse test setup.
func gridOf(t *testing.T, values ...float64) *Grid {
	t.Helper()
	g := New(len(values), 1, 0, 0, 100)
	copy(g.Data, values)
	return g
}

func TestSum_IgnoresNoDataPerCell(t *testing.T) {
	a := gridOf(t, 1, DefaultNoData, 3)
	b := gridOf(t, 2, 5, DefaultNoData)

	out, err := Sum([]*Grid{a, b}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3.0, out.Data[0])
	assert.Equal(t, 5.0, out.Data[1], "cell with one valid input keeps that input")
	assert.Equal(t, 3.0, out.Data[2])
}

func TestSum_AllNoDataCellStaysNoData(t *testing.T) {
	a := gridOf(t, DefaultNoData)
	b := gridOf(t, DefaultNoData)

	out, err := Sum([]*Grid{a, b}, nil)
	require.NoError(t, err)
	assert.True(t, out.IsNoData(out.Data[0]))
}

func TestSum_AppliesCoefficients(t *testing.T) {
	a := gridOf(t, 10)
	b := gridOf(t, 4)

	out, err := Sum([]*Grid{a, b}, []float64{1, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, out.Data[0], 1e-9)
}

func TestSum_RejectsMisalignedGrids(t *testing.T) {
	a := gridOf(t, 1, 2)
	b := gridOf(t, 1)

	_, err := Sum([]*Grid{a, b}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not aligned")
}

func TestNormalize_RescalesToUnitRange(t *testing.T) {
	g := gridOf(t, 10, 20, 30, DefaultNoData)

	out := Normalize(g)

	assert.Equal(t, 0.0, out.Data[0])
	assert.InDelta(t, 0.5, out.Data[1], 1e-9)
	assert.Equal(t, 1.0, out.Data[2])
	assert.True(t, out.IsNoData(out.Data[3]))
}

func TestNormalize_ConstantLayerYieldsZero(t *testing.T) {
	g := gridOf(t, 7, 7, 7)

	out := Normalize(g)
	for i := range out.Data {
		assert.Equal(t, 0.0, out.Data[i])
	}
}

func TestNormalize_AllNoDataStaysNoData(t *testing.T) {
	g := gridOf(t, DefaultNoData, DefaultNoData)

	out := Normalize(g)
	for _, v := range out.Data {
		assert.True(t, out.IsNoData(v))
	}
}

func TestNormalizeWithCarbon_BlendsPerFormula(t *testing.T) {
	pathway := gridOf(t, 0.5)
	carbon := gridOf(t, 1.0)

	out, err := NormalizeWithCarbon(pathway, carbon, 0.5)
	require.NoError(t, err)

	// (0.5 + 0.5*1.0) / 1.5
	assert.InDelta(t, 2.0/3.0, out.Data[0], 1e-9)
}

func TestNormalizeWithCarbon_MissingCarbonPassesThrough(t *testing.T) {
	pathway := gridOf(t, 0.5)
	carbon := gridOf(t, DefaultNoData)

	out, err := NormalizeWithCarbon(pathway, carbon, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Data[0])
}

func TestNormalizeWithCarbon_RejectsNegativeCoefficient(t *testing.T) {
	_, err := NormalizeWithCarbon(gridOf(t, 1), gridOf(t, 1), -0.1)
	require.Error(t, err)
}

func TestWeightedOverlay_AddsScaledPriorities(t *testing.T) {
	base := gridOf(t, 0.4)
	pwl := gridOf(t, 1.0)

	out, err := WeightedOverlay(base, []*Grid{pwl}, []float64{20})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, out.Data[0], 1e-9)
}

func TestWeightedOverlay_NoDataPriorityContributesNothing(t *testing.T) {
	base := gridOf(t, 0.4)
	pwl := gridOf(t, DefaultNoData)

	out, err := WeightedOverlay(base, []*Grid{pwl}, []float64{20})
	require.NoError(t, err)
	assert.Equal(t, 0.4, out.Data[0])
}

func TestWeightedOverlay_WeightCountMustMatch(t *testing.T) {
	base := gridOf(t, 1)
	_, err := WeightedOverlay(base, []*Grid{gridOf(t, 1)}, nil)
	require.Error(t, err)
}

func TestApplyMask_KeepsOnlyPositiveMaskCells(t *testing.T) {
	base := gridOf(t, 1, 2, 3, 4)
	mask := gridOf(t, 1, 0, DefaultNoData, 5)

	out, err := ApplyMask(base, mask)
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.Data[0])
	assert.True(t, out.IsNoData(out.Data[1]), "zero mask removes the cell")
	assert.True(t, out.IsNoData(out.Data[2]), "nodata mask removes the cell")
	assert.Equal(t, 4.0, out.Data[3])
}

func TestStats_SkipsNoData(t *testing.T) {
	g := gridOf(t, 1, 3, DefaultNoData)

	s := Stats(g)
	assert.Equal(t, 2, s.ValidCount)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.Equal(t, 2.0, s.Mean)
}

func TestStats_EmptyGridHasNaNMoments(t *testing.T) {
	g := gridOf(t, DefaultNoData)

	s := Stats(g)
	assert.Equal(t, 0, s.ValidCount)
	assert.True(t, math.IsNaN(s.Mean))
}
