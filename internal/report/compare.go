package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kartoza/cplus-engine/internal/model"
)

// Comparison lines up the activity footprints of two or more runs. The first
// result is the baseline; deltas are measured against it.
type Comparison struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Scenarios   []string        `json:"scenarios"`
	Rows        []ComparisonRow `json:"rows"`
}

// ComparisonRow is one activity across every compared run. AreasHa and
// DeltasHa are ordered like Comparison.Scenarios; DeltasHa[0] is always 0.
type ComparisonRow struct {
	ActivityUUID string    `json:"activity_uuid"`
	ActivityName string    `json:"activity_name"`
	AreasHa      []float64 `json:"areas_ha"`
	DeltasHa     []float64 `json:"deltas_ha"`
}

// Compare builds a comparison across the given results, in order. Activities
// are matched by uuid; an activity absent from a run contributes zero area
// there.
func Compare(results []*model.ScenarioResult) (*Comparison, error) {
	if len(results) < 2 {
		return nil, fmt.Errorf("report: comparison needs at least two results, got %d", len(results))
	}

	cmp := &Comparison{GeneratedAt: time.Now().UTC()}
	for _, r := range results {
		cmp.Scenarios = append(cmp.Scenarios, r.ScenarioName)
	}

	// Row order follows the baseline, with activities unique to later runs
	// appended in encounter order.
	index := make(map[string]int)
	for _, r := range results {
		for _, s := range r.Stats {
			if _, ok := index[s.ActivityUUID]; ok {
				continue
			}
			index[s.ActivityUUID] = len(cmp.Rows)
			cmp.Rows = append(cmp.Rows, ComparisonRow{
				ActivityUUID: s.ActivityUUID,
				ActivityName: s.ActivityName,
				AreasHa:      make([]float64, len(results)),
				DeltasHa:     make([]float64, len(results)),
			})
		}
	}

	for col, r := range results {
		for _, s := range r.Stats {
			cmp.Rows[index[s.ActivityUUID]].AreasHa[col] = s.AreaHa
		}
	}
	for i := range cmp.Rows {
		row := &cmp.Rows[i]
		for col := 1; col < len(row.AreasHa); col++ {
			row.DeltasHa[col] = row.AreasHa[col] - row.AreasHa[0]
		}
	}
	return cmp, nil
}

// Write renders the comparison into outDir as comparison.json and
// comparison.md and returns the two paths.
func (c *Comparison) Write(outDir string) (jsonPath, mdPath string, err error) {
	jsonPath = filepath.Join(outDir, "comparison.json")
	mdPath = filepath.Join(outDir, "comparison.md")

	payload, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("report: encode comparison: %w", err)
	}
	if err := os.WriteFile(jsonPath, payload, 0o644); err != nil {
		return "", "", fmt.Errorf("report: write %s: %w", jsonPath, err)
	}

	md, err := c.Markdown()
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return "", "", fmt.Errorf("report: write %s: %w", mdPath, err)
	}
	return jsonPath, mdPath, nil
}
