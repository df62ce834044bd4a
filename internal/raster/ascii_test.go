package raster

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGrid = `ncols 3
nrows 2
xllcorner 100.5
yllcorner 200.25
cellsize 30
NODATA_value -9999
1 2 3
-9999 5 6
`

func TestRead_ParsesHeaderAndCells(t *testing.T) {
	g, err := Read(strings.NewReader(sampleGrid))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Cols)
	assert.Equal(t, 2, g.Rows)
	assert.Equal(t, 100.5, g.XCorner)
	assert.Equal(t, 200.25, g.YCorner)
	assert.Equal(t, 30.0, g.CellSize)
	assert.Equal(t, -9999.0, g.NoData)
	assert.Equal(t, 2.0, g.At(1, 0))
	assert.True(t, g.IsNoData(g.At(0, 1)))
}

func TestRead_RejectsShortGrid(t *testing.T) {
	truncated := strings.Join(strings.Split(sampleGrid, "\n")[:7], "\n")

	_, err := Read(strings.NewReader(truncated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "short grid")
}

func TestRead_RejectsMalformedHeader(t *testing.T) {
	_, err := Read(strings.NewReader("ncols 3\nnrows two\n"))
	require.Error(t, err)
}

func TestRead_RejectsHeaderOutOfOrder(t *testing.T) {
	swapped := strings.Replace(sampleGrid, "ncols 3\nnrows 2", "nrows 2\nncols 3", 1)

	_, err := Read(strings.NewReader(swapped))
	require.Error(t, err)
}

func TestWriteFile_RoundTrips(t *testing.T) {
	g, err := Read(strings.NewReader(sampleGrid))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.asc")
	require.NoError(t, WriteFile(path, g))

	back, err := ReadFile(path)
	require.NoError(t, err)

	assert.True(t, g.Aligned(back))
	assert.Equal(t, g.Data, back.Data)
	assert.Equal(t, g.NoData, back.NoData)
}

func TestReadFile_MissingFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.asc"))
	require.Error(t, err)
}
