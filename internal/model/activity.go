package model

import (
	"fmt"

	"github.com/google/uuid"
)

// StyleRef names the symbology applied to an activity's output raster. The
// zero value selects the engine's default palette.
type StyleRef struct {
	// Color is a #rrggbb hex value used as the activity's class color in the
	// scenario result style. Empty means "assign from the default palette".
	Color string
}

// Activity is a candidate land-use intervention composed of NCS pathways.
// The analysis produces one weighted raster per activity, which then
// competes in the highest-position classification.
type Activity struct {
	UUID        string
	Name        string
	Description string
	Pathways    []NcsPathway
	PwlIDs      []string
	MaskPaths   []string
	Style       StyleRef
}

// Validate checks the structural integrity of an activity and its pathways.
func (a *Activity) Validate() error {
	if _, err := uuid.Parse(a.UUID); err != nil {
		return fmt.Errorf("activity %q: invalid uuid %q: %w", a.Name, a.UUID, err)
	}
	if a.Name == "" {
		return fmt.Errorf("activity %s: name is required", a.UUID)
	}
	if len(a.Pathways) == 0 {
		return fmt.Errorf("activity %q: at least one NCS pathway is required", a.Name)
	}
	for i := range a.Pathways {
		if err := a.Pathways[i].Validate(); err != nil {
			return fmt.Errorf("activity %q: %w", a.Name, err)
		}
	}
	return nil
}
