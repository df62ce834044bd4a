package model

import (
	"fmt"

	"github.com/google/uuid"
)

// GroupValueMax is the largest influence a priority group may carry. Group
// values are user-facing 0..5 sliders; the pipeline rescales them.
const GroupValueMax = 5

// PriorityLayer is a weighting raster that nudges activity suitability.
type PriorityLayer struct {
	UUID          string
	Name          string
	Description   string
	Path          string
	DefaultWeight float64
}

// Validate checks the structural integrity of a priority layer definition.
func (l *PriorityLayer) Validate() error {
	if _, err := uuid.Parse(l.UUID); err != nil {
		return fmt.Errorf("priority layer %q: invalid uuid %q: %w", l.Name, l.UUID, err)
	}
	if l.Path == "" {
		return fmt.Errorf("priority layer %q: layer path is required", l.Name)
	}
	return nil
}

// PriorityGroup assigns an influence value to a set of priority layers for
// one scenario.
type PriorityGroup struct {
	Name  string
	Value float64
	Pwls  []string
}

// ClampedValue returns the group value bounded to the legal 0..GroupValueMax
// range. Out-of-range values come from hand-edited scenario files and are
// tolerated rather than rejected.
func (g PriorityGroup) ClampedValue() float64 {
	switch {
	case g.Value < 0:
		return 0
	case g.Value > GroupValueMax:
		return GroupValueMax
	default:
		return g.Value
	}
}
