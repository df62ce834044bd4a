package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NcsPathway is a natural climate solution layer. Each pathway raster may be
// amended by zero or more carbon layers before normalization.
type NcsPathway struct {
	UUID        string
	Name        string
	Description string
	Path        string
	LayerType   LayerType
	CarbonPaths []string
}

// Validate checks the structural integrity of a pathway definition. It does
// not touch the filesystem; path existence is the loader's concern.
func (p *NcsPathway) Validate() error {
	if _, err := uuid.Parse(p.UUID); err != nil {
		return fmt.Errorf("ncs pathway %q: invalid uuid %q: %w", p.Name, p.UUID, err)
	}
	if p.Name == "" {
		return fmt.Errorf("ncs pathway %s: name is required", p.UUID)
	}
	if p.Path == "" {
		return fmt.Errorf("ncs pathway %q: layer path is required", p.Name)
	}
	if p.LayerType != LayerTypeRaster {
		return fmt.Errorf("ncs pathway %q: only raster pathways can be analysed, got %s", p.Name, p.LayerType)
	}
	return nil
}
