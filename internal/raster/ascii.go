package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// headerLines is the fixed count of header rows in an Esri ASCII grid.
const headerLines = 6

// ReadFile loads an Esri ASCII grid (.asc) from disk.
func ReadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster: %w", err)
	}
	defer f.Close()

	g, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read raster %s: %w", path, err)
	}
	return g, nil
}

// Read parses an Esri ASCII grid. The header keys are case-insensitive and
// must appear in the conventional order (ncols, nrows, xllcorner, yllcorner,
// cellsize, NODATA_value). NaN cell values are coerced to nodata.
func Read(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	header := make(map[string]float64, headerLines)
	order := []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value"}
	for _, key := range order {
		if !scanner.Scan() {
			return nil, fmt.Errorf("truncated header: missing %s", key)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || !strings.EqualFold(fields[0], key) {
			return nil, fmt.Errorf("malformed header line %q: want %s <value>", scanner.Text(), key)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		header[key] = v
	}

	cols := int(header["ncols"])
	rows := int(header["nrows"])
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("invalid grid shape %dx%d", cols, rows)
	}

	g := &Grid{
		Cols:     cols,
		Rows:     rows,
		XCorner:  header["xllcorner"],
		YCorner:  header["yllcorner"],
		CellSize: header["cellsize"],
		NoData:   header["nodata_value"],
		Data:     make([]float64, 0, cols*rows),
	}

	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("cell %d: %w", len(g.Data), err)
			}
			if len(g.Data) == cols*rows {
				return nil, fmt.Errorf("too many cells: want %d", cols*rows)
			}
			g.Data = append(g.Data, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(g.Data) != cols*rows {
		return nil, fmt.Errorf("short grid: got %d cells, want %d", len(g.Data), cols*rows)
	}

	for i, v := range g.Data {
		if g.IsNoData(v) {
			g.Data[i] = g.NoData
		}
	}
	return g, nil
}

// WriteFile writes the grid to disk as an Esri ASCII grid.
func WriteFile(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create raster: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Write(w, g); err != nil {
		return fmt.Errorf("write raster %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// Write serializes the grid as an Esri ASCII grid.
func Write(w io.Writer, g *Grid) error {
	if len(g.Data) != g.Cols*g.Rows {
		return fmt.Errorf("grid data length %d does not match shape %dx%d", len(g.Data), g.Cols, g.Rows)
	}
	_, err := fmt.Fprintf(w, "ncols %d\nnrows %d\nxllcorner %g\nyllcorner %g\ncellsize %g\nNODATA_value %g\n",
		g.Cols, g.Rows, g.XCorner, g.YCorner, g.CellSize, g.NoData)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for row := 0; row < g.Rows; row++ {
		sb.Reset()
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(g.At(col, row), 'g', -1, 64))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
