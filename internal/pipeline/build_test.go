package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/cplus-engine/internal/model"
	"github.com/kartoza/cplus-engine/internal/raster"
	"github.com/kartoza/cplus-engine/internal/registry"
)

// writeGrid writes a 1-row ascii grid with the given values and returns its path.
func writeGrid(t *testing.T, dir, name string, values ...float64) string {
	t.Helper()
	fields := make([]string, len(values))
	for i, v := range values {
		fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	content := fmt.Sprintf("ncols %d\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 100\nNODATA_value -9999\n%s\n",
		len(values), strings.Join(fields, " "))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func uuidN(n int) string {
	d := strconv.Itoa(n)
	return strings.Repeat(d, 8) + "-" + strings.Repeat(d, 4) + "-" + strings.Repeat(d, 4) + "-" + strings.Repeat(d, 4) + "-" + strings.Repeat(d, 12)
}

// twoActivityScenario builds a scenario whose two single-pathway activities
// split a 3-cell grid: cell 0 goes to the first, cell 1 to the second, and
// cell 2 ties (resolving to the first).
func twoActivityScenario(t *testing.T) (*model.Scenario, string) {
	t.Helper()
	dir := t.TempDir()
	p1 := writeGrid(t, dir, "p1.asc", 10, 0, 5)
	p2 := writeGrid(t, dir, "p2.asc", 0, 10, 5)

	s := model.NewScenario("split")
	s.UUID = uuidN(9)
	s.Activities = []model.Activity{
		{
			UUID: uuidN(1), Name: "First",
			Pathways: []model.NcsPathway{{
				UUID: uuidN(3), Name: "p1", Path: p1, LayerType: model.LayerTypeRaster,
			}},
		},
		{
			UUID: uuidN(2), Name: "Second",
			Pathways: []model.NcsPathway{{
				UUID: uuidN(4), Name: "p2", Path: p2, LayerType: model.LayerTypeRaster,
			}},
		},
	}
	return s, dir
}

func runScenario(t *testing.T, s *model.Scenario, pwls map[string]model.PriorityLayer, outDir string) *Build {
	t.Helper()
	build, err := BuildGraph(s, pwls, outDir)
	require.NoError(t, err)

	reg := registry.New()
	RegisterCoreOperations(reg)
	require.NoError(t, NewExecutor(build.Graph, reg, 4, nil).Run(context.Background()))
	return build
}

func TestBuildGraph_EndToEndClassification(t *testing.T) {
	s, dir := twoActivityScenario(t)
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	build := runScenario(t, s, nil, out)

	result, err := raster.ReadFile(build.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 1}, result.Data, "tie at cell 2 resolves to the first activity")

	for _, a := range s.Activities {
		_, err := os.Stat(build.ActivityPaths[a.UUID])
		assert.NoError(t, err, "activity output written for %s", a.Name)
	}
}

func TestBuildGraph_PriorityWeightFlipsTie(t *testing.T) {
	s, dir := twoActivityScenario(t)
	pwlPath := writeGrid(t, dir, "pwl.asc", 0, 0, 10)
	pwlID := uuidN(5)
	s.Activities[1].PwlIDs = []string{pwlID}
	s.Groups = []model.PriorityGroup{{Name: "climate", Value: 5, Pwls: []string{pwlID}}}

	pwls := map[string]model.PriorityLayer{
		pwlID: {UUID: pwlID, Name: "pwl", Path: pwlPath, DefaultWeight: 0},
	}
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	build := runScenario(t, s, pwls, out)

	result, err := raster.ReadFile(build.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 2}, result.Data, "weighted overlay lifts the second activity at cell 2")
}

func TestBuildGraph_NPVLayerFlipsTie(t *testing.T) {
	s, dir := twoActivityScenario(t)
	s.NPV = model.NPVOptions{
		Enabled:      true,
		DiscountRate: 0.1,
		Weight:       100,
		Projections: []model.NPVProjection{
			{ActivityUUID: uuidN(1), Revenues: []float64{0}, Costs: []float64{100}},
			{ActivityUUID: uuidN(2), Revenues: []float64{200}, Costs: []float64{0}},
		},
	}
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	build, err := BuildGraph(s, nil, out)
	require.NoError(t, err)
	require.NotNil(t, build.Graph.Node("activity.0.npv"))
	require.NotNil(t, build.Graph.Node("activity.1.npv"))

	// Materialize the constant layers the way the app does: the second
	// activity carries the full normalized npv, the first none.
	writeGrid(t, out, "npv_first.asc", 0, 0, 0)
	writeGrid(t, out, "npv_second.asc", 1, 1, 1)
	require.Equal(t, filepath.Join(out, "npv_second.asc"), build.NPVPaths[uuidN(2)])

	reg := registry.New()
	RegisterCoreOperations(reg)
	require.NoError(t, NewExecutor(build.Graph, reg, 4, nil).Run(context.Background()))

	result, err := raster.ReadFile(build.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 2}, result.Data, "npv overlay lifts the second activity at the tied cell")
}

func TestBuildGraph_CarbonBlendShiftsSuitability(t *testing.T) {
	dir := t.TempDir()
	p1 := writeGrid(t, dir, "p1.asc", 10, 0)
	carbon := writeGrid(t, dir, "c1.asc", 0, 10)

	s := model.NewScenario("carbon")
	s.CarbonCoefficient = 1
	s.Activities = []model.Activity{{
		UUID: uuidN(1), Name: "Only",
		Pathways: []model.NcsPathway{{
			UUID: uuidN(3), Name: "p1", Path: p1, LayerType: model.LayerTypeRaster,
			CarbonPaths: []string{carbon},
		}},
	}}
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	build := runScenario(t, s, nil, out)

	activityGrid, err := raster.ReadFile(build.ActivityPaths[s.Activities[0].UUID])
	require.NoError(t, err)
	// Blended values are (1+0)/2 and (0+1)/2, renormalized to 0 and 1...
	// equal halves normalize to 0 per the zero-range rule, so both cells end
	// up equal before classification.
	assert.Equal(t, activityGrid.Data[0], activityGrid.Data[1])
}

func TestBuildGraph_MaskRemovesCells(t *testing.T) {
	s, dir := twoActivityScenario(t)
	maskPath := writeGrid(t, dir, "mask.asc", 1, 1, 0)
	s.Activities[0].MaskPaths = []string{maskPath}

	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	build := runScenario(t, s, nil, out)

	first, err := raster.ReadFile(build.ActivityPaths[s.Activities[0].UUID])
	require.NoError(t, err)
	assert.True(t, first.IsNoData(first.Data[2]), "masked cell dropped from the first activity")

	result, err := raster.ReadFile(build.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Data[2], "second activity takes the cell the mask removed")
}

func TestBuildGraph_SieveNodePresentWhenEnabled(t *testing.T) {
	s, _ := twoActivityScenario(t)
	s.Sieve = model.SieveOptions{Enabled: true, Threshold: 2}

	build, err := BuildGraph(s, nil, t.TempDir())
	require.NoError(t, err)

	assert.NotNil(t, build.Graph.Node("activity.0.sieve"))
	assert.NotNil(t, build.Graph.Node("activity.1.sieve"))
}

func TestBuildGraph_RejectsUnknownPriorityLayer(t *testing.T) {
	s, _ := twoActivityScenario(t)
	s.Activities[0].PwlIDs = []string{uuidN(7)}

	_, err := BuildGraph(s, nil, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown priority layer")
}

func TestBuildGraph_MisalignedInputsFailTheRun(t *testing.T) {
	s, dir := twoActivityScenario(t)
	// Replace the second pathway with a wider grid.
	s.Activities[1].Pathways[0].Path = writeGrid(t, dir, "wide.asc", 1, 2, 3, 4)

	build, err := BuildGraph(s, nil, dir)
	require.NoError(t, err)

	reg := registry.New()
	RegisterCoreOperations(reg)
	err = NewExecutor(build.Graph, reg, 2, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not aligned")
}
