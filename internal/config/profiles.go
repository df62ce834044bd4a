package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kartoza/cplus-engine/internal/model"
)

// Conventional profile file names inside a profile directory.
const (
	PathwaysFile   = "ncs_pathways.json"
	ActivitiesFile = "activities.json"
	PwlFile        = "priority_weighted_layers.json"
)

// rawPathway mirrors one entry of ncs_pathways.json.
type rawPathway struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Path        string   `json:"path"`
	LayerType   int      `json:"layer_type"`
	CarbonPaths []string `json:"carbon_paths"`
}

// rawActivity mirrors one entry of activities.json.
type rawActivity struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Pathways    []string `json:"pathways"`
	PwlsIDs     []string `json:"pwls_ids"`
	MaskPaths   []string `json:"mask_paths"`
	Selected    bool     `json:"selected"`
	Style       struct {
		Color string `json:"color"`
	} `json:"style"`
}

// rawPriorityLayer mirrors one entry of priority_weighted_layers.json.
type rawPriorityLayer struct {
	UUID          string  `json:"uuid"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Path          string  `json:"path"`
	DefaultWeight float64 `json:"default_weight"`
}

// Profile is the fully resolved content of a profile directory.
type Profile struct {
	BaseDir        string
	Pathways       map[string]model.NcsPathway
	Activities     []model.Activity
	PriorityLayers map[string]model.PriorityLayer
	// Selected lists the activity uuids flagged selected in the profile,
	// used as the default activity set when a scenario names none.
	Selected []string
}

// Load reads and resolves all three profile files from dir.
func Load(dir string) (*Profile, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve profile dir: %w", err)
	}

	p := &Profile{
		BaseDir:        abs,
		Pathways:       make(map[string]model.NcsPathway),
		PriorityLayers: make(map[string]model.PriorityLayer),
	}

	if err := p.loadPathways(); err != nil {
		return nil, err
	}
	if err := p.loadPriorityLayers(); err != nil {
		return nil, err
	}
	if err := p.loadActivities(); err != nil {
		return nil, err
	}
	return p, nil
}

// decodeFile decodes one JSON profile file into out.
func decodeFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open profile %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode profile %s: %w", filepath.Base(path), err)
	}
	return nil
}

// resolve makes a layer path absolute against the profile directory.
func (p *Profile) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.BaseDir, path)
}

// requireFile verifies a referenced layer file exists.
func requireFile(owner, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%s: layer file %s: %w", owner, path, err)
	}
	return nil
}

func (p *Profile) loadPathways() error {
	var raw []rawPathway
	if err := decodeFile(filepath.Join(p.BaseDir, PathwaysFile), &raw); err != nil {
		return err
	}

	for _, r := range raw {
		layerType, err := model.ParseLayerType(r.LayerType)
		if err != nil {
			return fmt.Errorf("ncs pathway %q: %w", r.Name, err)
		}

		pathway := model.NcsPathway{
			UUID:        r.UUID,
			Name:        r.Name,
			Description: r.Description,
			Path:        p.resolve(r.Path),
			LayerType:   layerType,
		}
		for _, c := range r.CarbonPaths {
			pathway.CarbonPaths = append(pathway.CarbonPaths, p.resolve(c))
		}

		if err := pathway.Validate(); err != nil {
			return err
		}
		if err := requireFile("ncs pathway "+pathway.Name, pathway.Path); err != nil {
			return err
		}
		for _, c := range pathway.CarbonPaths {
			if err := requireFile("ncs pathway "+pathway.Name, c); err != nil {
				return err
			}
		}
		if _, dup := p.Pathways[pathway.UUID]; dup {
			return fmt.Errorf("ncs pathway %q: duplicate uuid %s", pathway.Name, pathway.UUID)
		}
		p.Pathways[pathway.UUID] = pathway
	}
	return nil
}

func (p *Profile) loadPriorityLayers() error {
	var raw []rawPriorityLayer
	if err := decodeFile(filepath.Join(p.BaseDir, PwlFile), &raw); err != nil {
		return err
	}

	for _, r := range raw {
		layer := model.PriorityLayer{
			UUID:          r.UUID,
			Name:          r.Name,
			Description:   r.Description,
			Path:          p.resolve(r.Path),
			DefaultWeight: r.DefaultWeight,
		}
		if err := layer.Validate(); err != nil {
			return err
		}
		if err := requireFile("priority layer "+layer.Name, layer.Path); err != nil {
			return err
		}
		if _, dup := p.PriorityLayers[layer.UUID]; dup {
			return fmt.Errorf("priority layer %q: duplicate uuid %s", layer.Name, layer.UUID)
		}
		p.PriorityLayers[layer.UUID] = layer
	}
	return nil
}

func (p *Profile) loadActivities() error {
	var raw []rawActivity
	if err := decodeFile(filepath.Join(p.BaseDir, ActivitiesFile), &raw); err != nil {
		return err
	}

	for _, r := range raw {
		activity := model.Activity{
			UUID:        r.UUID,
			Name:        r.Name,
			Description: r.Description,
			Style:       model.StyleRef{Color: r.Style.Color},
		}

		for _, id := range r.Pathways {
			pathway, ok := p.Pathways[id]
			if !ok {
				return fmt.Errorf("activity %q: references unknown ncs pathway %s", r.Name, id)
			}
			activity.Pathways = append(activity.Pathways, pathway)
		}
		for _, id := range r.PwlsIDs {
			if _, ok := p.PriorityLayers[id]; !ok {
				return fmt.Errorf("activity %q: references unknown priority layer %s", r.Name, id)
			}
			activity.PwlIDs = append(activity.PwlIDs, id)
		}
		for _, m := range r.MaskPaths {
			resolved := p.resolve(m)
			if err := requireFile("activity "+r.Name, resolved); err != nil {
				return err
			}
			activity.MaskPaths = append(activity.MaskPaths, resolved)
		}

		if err := activity.Validate(); err != nil {
			return err
		}
		p.Activities = append(p.Activities, activity)
		if r.Selected {
			p.Selected = append(p.Selected, activity.UUID)
		}
	}

	if len(p.Activities) == 0 {
		return fmt.Errorf("profile %s: no activities defined", p.BaseDir)
	}
	return nil
}

// Activity returns the loaded activity with the given uuid.
func (p *Profile) Activity(id string) (model.Activity, error) {
	for _, a := range p.Activities {
		if a.UUID == id {
			return a, nil
		}
	}
	return model.Activity{}, fmt.Errorf("unknown activity %s", id)
}
