// Package report turns scenario results into human-readable artifacts: a
// per-run report (JSON and markdown) with per-activity footprint statistics,
// and a side-by-side comparison across runs from the history store.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kartoza/cplus-engine/internal/model"
	"github.com/kartoza/cplus-engine/internal/raster"
)

// Report is the document written beside the result rasters after a run.
type Report struct {
	ScenarioUUID string                `json:"scenario_uuid"`
	ScenarioName string                `json:"scenario_name"`
	Description  string                `json:"description,omitempty"`
	State        string                `json:"state"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Duration     string                `json:"duration"`
	ResultPath   string                `json:"result_path"`
	TotalAreaHa  float64               `json:"total_area_ha"`
	Activities   []model.ActivityStats `json:"activities"`
}

// ComputeStats derives per-activity statistics from the classification
// raster. Class values are 1-based indices into the scenario's activity
// list. activityGrids maps activity uuid to its weighted suitability grid
// and feeds the mean suitability column; a missing grid leaves that column
// NaN rather than failing the report.
func ComputeStats(scenario *model.Scenario, classified *raster.Grid, activityGrids map[string]*raster.Grid) []model.ActivityStats {
	counts := raster.ClassCounts(classified)
	cellArea := classified.CellAreaHa()

	stats := make([]model.ActivityStats, 0, len(scenario.Activities))
	for i := range scenario.Activities {
		activity := &scenario.Activities[i]
		class := i + 1
		entry := model.ActivityStats{
			ActivityUUID: activity.UUID,
			ActivityName: activity.Name,
			PixelCount:   counts[class],
			AreaHa:       float64(counts[class]) * cellArea,
		}
		if grid, ok := activityGrids[activity.UUID]; ok {
			entry.MeanSuitability = model.Suitability(raster.MeanWhereClass(grid, classified, class))
		} else {
			entry.MeanSuitability = model.Suitability(math.NaN())
		}
		stats = append(stats, entry)
	}
	return stats
}

// Build assembles the report document for a finished run.
func Build(scenario *model.Scenario, result *model.ScenarioResult) *Report {
	r := &Report{
		ScenarioUUID: scenario.UUID,
		ScenarioName: scenario.Name,
		Description:  scenario.Description,
		State:        result.State.String(),
		GeneratedAt:  time.Now().UTC(),
		Duration:     result.Duration().Round(time.Millisecond).String(),
		ResultPath:   result.ResultPath,
		Activities:   result.Stats,
	}
	for _, s := range result.Stats {
		r.TotalAreaHa += s.AreaHa
	}
	return r
}

// Write renders the report into outDir as report.json and report.md and
// returns the two paths.
func (r *Report) Write(outDir string) (jsonPath, mdPath string, err error) {
	jsonPath = filepath.Join(outDir, "report.json")
	mdPath = filepath.Join(outDir, "report.md")

	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("report: encode: %w", err)
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return "", "", fmt.Errorf("report: write %s: %w", jsonPath, err)
	}

	md, err := r.Markdown()
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("report: write %s: %w", mdPath, err)
	}
	return jsonPath, mdPath, nil
}
