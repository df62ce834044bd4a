package model

import (
	"encoding/json"
	"math"
	"time"
)

// Suitability is a mean suitability score. An activity that wins no pixels
// has no mean; that is carried as NaN in memory and as null on the wire,
// since encoding/json rejects NaN.
type Suitability float64

// Defined reports whether the score carries a value.
func (s Suitability) Defined() bool {
	return !math.IsNaN(float64(s))
}

// MarshalJSON encodes an undefined score as null.
func (s Suitability) MarshalJSON() ([]byte, error) {
	if !s.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(s))
}

// UnmarshalJSON decodes null back to NaN.
func (s *Suitability) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Suitability(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Suitability(v)
	return nil
}

// ActivityStats summarizes one activity's footprint in a scenario result.
type ActivityStats struct {
	ActivityUUID string  `json:"activity_uuid"`
	ActivityName string  `json:"activity_name"`
	PixelCount   int     `json:"pixel_count"`
	AreaHa       float64 `json:"area_ha"`
	// MeanSuitability is the mean weighted value of the activity raster over
	// the pixels the classification assigned to it.
	MeanSuitability Suitability `json:"mean_suitability"`
}

// ScenarioResult is the durable outcome of one run. It is what the history
// store persists and the report generator consumes.
type ScenarioResult struct {
	ScenarioUUID string            `json:"scenario_uuid"`
	ScenarioName string            `json:"scenario_name"`
	State        ScenarioState     `json:"state"`
	Error        string            `json:"error,omitempty"`
	OutputDir    string            `json:"output_dir"`
	ResultPath   string            `json:"result_path"`
	ActivityOut  map[string]string `json:"activity_outputs"`
	Stats        []ActivityStats   `json:"stats"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	// JobID is set for remote runs and records the server-side job identity.
	JobID string `json:"job_id,omitempty"`
}

// Duration returns the wall-clock time the run took.
func (r *ScenarioResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
