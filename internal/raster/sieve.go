package raster

// Sieve removes 4-connected patches of valid cells smaller than minPatch
// pixels, setting them to nodata. The pipeline applies it to continuous
// activity rasters after masking, so a patch is any contiguous region of
// valid cells; isolated specks left behind by the mask disappear.
func Sieve(g *Grid, minPatch int) *Grid {
	out := g.emptyLike()
	copy(out.Data, g.Data)
	if minPatch <= 1 {
		return out
	}

	visited := make([]bool, len(g.Data))
	stack := make([]int, 0, 64)
	patch := make([]int, 0, 64)

	for start := range g.Data {
		if visited[start] || g.IsNoData(g.Data[start]) {
			continue
		}

		stack = append(stack[:0], start)
		patch = patch[:0]
		visited[start] = true

		// Flood fill the 4-connected patch of valid cells.
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			patch = append(patch, idx)

			col, row := idx%g.Cols, idx/g.Cols
			neighbors := [4][2]int{
				{col - 1, row}, {col + 1, row},
				{col, row - 1}, {col, row + 1},
			}
			for _, n := range neighbors {
				nc, nr := n[0], n[1]
				if nc < 0 || nc >= g.Cols || nr < 0 || nr >= g.Rows {
					continue
				}
				nIdx := nr*g.Cols + nc
				if visited[nIdx] || g.IsNoData(g.Data[nIdx]) {
					continue
				}
				visited[nIdx] = true
				stack = append(stack, nIdx)
			}
		}

		if len(patch) < minPatch {
			for _, idx := range patch {
				out.Data[idx] = out.NoData
			}
		}
	}
	return out
}
