package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessingMode selects where the analysis runs.
type ProcessingMode string

const (
	ProcessingLocal  ProcessingMode = "local"
	ProcessingRemote ProcessingMode = "remote"
)

// SieveOptions controls the optional small-patch filter applied to activity
// rasters before classification.
type SieveOptions struct {
	Enabled bool
	// Threshold is the minimum patch size in pixels; smaller 4-connected
	// patches are set to nodata.
	Threshold int
}

// NPVProjection is one activity's yearly financial projection. Revenues and
// Costs are parallel slices, year 0 first.
type NPVProjection struct {
	ActivityUUID string
	Revenues     []float64
	Costs        []float64
}

// NPVOptions configures the net present value priority layer generated for
// each activity before the weighted overlay.
type NPVOptions struct {
	Enabled      bool
	DiscountRate float64
	// Weight is the overlay percentage (0..100) the generated layer carries.
	Weight      float64
	Projections []NPVProjection
}

// ProcessingOptions carries the scenario's execution configuration.
type ProcessingOptions struct {
	Mode   ProcessingMode
	APIURL string
	// APIKey authenticates remote submissions. Unused for local runs.
	APIKey string
}

// Scenario is the root definition of one analysis run.
type Scenario struct {
	UUID        string
	Name        string
	Description string
	Extent      Extent
	Activities  []Activity
	Groups      []PriorityGroup
	// CarbonCoefficient scales the influence of carbon layers during
	// pathway normalization.
	CarbonCoefficient float64
	Sieve             SieveOptions
	NPV               NPVOptions
	Processing        ProcessingOptions
	CreatedAt         time.Time
}

// NewScenario returns a scenario with a fresh identity and creation time.
func NewScenario(name string) *Scenario {
	return &Scenario{
		UUID:      uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Processing: ProcessingOptions{
			Mode: ProcessingLocal,
		},
	}
}

// Validate checks the scenario and everything it aggregates.
func (s *Scenario) Validate() error {
	if _, err := uuid.Parse(s.UUID); err != nil {
		return fmt.Errorf("scenario %q: invalid uuid %q: %w", s.Name, s.UUID, err)
	}
	if s.Name == "" {
		return fmt.Errorf("scenario %s: name is required", s.UUID)
	}
	if len(s.Activities) == 0 {
		return fmt.Errorf("scenario %q: at least one activity is required", s.Name)
	}
	for i := range s.Activities {
		if err := s.Activities[i].Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}
	if s.CarbonCoefficient < 0 {
		return fmt.Errorf("scenario %q: carbon coefficient must not be negative", s.Name)
	}
	if s.Sieve.Enabled && s.Sieve.Threshold <= 0 {
		return fmt.Errorf("scenario %q: sieve threshold must be positive when sieving is enabled", s.Name)
	}
	if s.NPV.Enabled {
		if err := s.validateNPV(); err != nil {
			return err
		}
	}
	if s.Processing.Mode == ProcessingRemote && s.Processing.APIURL == "" {
		return fmt.Errorf("scenario %q: remote processing requires an api_url", s.Name)
	}
	return nil
}

// validateNPV checks the financial projections against the activity list.
// Every activity in the scenario needs a projection, since the normalized
// values are only comparable when computed over the full set.
func (s *Scenario) validateNPV() error {
	if s.NPV.DiscountRate <= -1 {
		return fmt.Errorf("scenario %q: npv discount rate %g is out of range", s.Name, s.NPV.DiscountRate)
	}
	if s.NPV.Weight < 0 || s.NPV.Weight > 100 {
		return fmt.Errorf("scenario %q: npv weight %g must be within 0..100", s.Name, s.NPV.Weight)
	}

	byActivity := make(map[string]bool, len(s.NPV.Projections))
	for _, p := range s.NPV.Projections {
		if s.Activity(p.ActivityUUID) == nil {
			return fmt.Errorf("scenario %q: npv projection references unknown activity %s", s.Name, p.ActivityUUID)
		}
		if byActivity[p.ActivityUUID] {
			return fmt.Errorf("scenario %q: duplicate npv projection for activity %s", s.Name, p.ActivityUUID)
		}
		byActivity[p.ActivityUUID] = true
		if len(p.Revenues) == 0 || len(p.Revenues) != len(p.Costs) {
			return fmt.Errorf("scenario %q: npv projection for %s needs matching revenue and cost years", s.Name, p.ActivityUUID)
		}
	}
	for i := range s.Activities {
		if !byActivity[s.Activities[i].UUID] {
			return fmt.Errorf("scenario %q: npv is enabled but activity %q has no projection", s.Name, s.Activities[i].Name)
		}
	}
	return nil
}

// Activity returns the activity with the given uuid, or nil.
func (s *Scenario) Activity(id string) *Activity {
	for i := range s.Activities {
		if s.Activities[i].UUID == id {
			return &s.Activities[i]
		}
	}
	return nil
}

// GroupWeight returns the summed, rescaled weight every priority layer
// contributes under this scenario's groups. Keys are PWL uuids, values are
// percentages in 0..100.
func (s *Scenario) GroupWeight() map[string]float64 {
	weights := make(map[string]float64)
	for _, g := range s.Groups {
		// A 0..5 group value maps to a 0..20% contribution per layer.
		pct := g.ClampedValue() / GroupValueMax * 20
		for _, id := range g.Pwls {
			weights[id] += pct
		}
	}
	for id := range weights {
		if weights[id] > 100 {
			weights[id] = 100
		}
	}
	return weights
}
