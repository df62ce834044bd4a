package scenariohcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/kartoza/cplus-engine/internal/config"
	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/model"
)

// Loader parses scenario HCL files and resolves them against a loaded
// profile into model.Scenario values.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a scenario loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads every .hcl file under path (a file or a directory) and resolves
// the scenarios it declares. Multiple files merge into one scenario list;
// duplicate scenario names across files are rejected.
func (l *Loader) Load(ctx context.Context, path string, profile *config.Profile) ([]*model.Scenario, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := collectFiles(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found under %s", path)
	}
	logger.Debug("Collected scenario files.", "count", len(files))

	var scenarios []*model.Scenario
	seen := make(map[string]string)
	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}

		var schema fileSchema
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &schema); diags.HasErrors() {
			return nil, fmt.Errorf("decode %s: %w", file, diags)
		}

		for _, block := range schema.Scenarios {
			if prev, dup := seen[block.Name]; dup {
				return nil, fmt.Errorf("scenario %q declared in both %s and %s", block.Name, prev, file)
			}
			seen[block.Name] = file

			scenario, err := resolve(block, profile)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			scenarios = append(scenarios, scenario)
		}
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenario blocks declared under %s", path)
	}
	logger.Debug("Scenario definitions resolved.", "count", len(scenarios))
	return scenarios, nil
}

// collectFiles expands path into the list of .hcl files to parse.
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path: %w", err)
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ".hcl" {
			return nil, fmt.Errorf("scenario file %s: expected a .hcl file", path)
		}
		return []string{path}, nil
	}
	return config.FindFilesByExtension(path, ".hcl")
}

// resolve binds a parsed scenario block to profile content.
func resolve(block *scenarioBlock, profile *config.Profile) (*model.Scenario, error) {
	scenario := model.NewScenario(block.Name)
	scenario.Description = block.Description
	scenario.CarbonCoefficient = block.CarbonCoefficient

	if len(block.Extent) > 0 {
		if len(block.Extent) != 4 {
			return nil, fmt.Errorf("scenario %q: extent needs 4 values, got %d", block.Name, len(block.Extent))
		}
		copy(scenario.Extent[:], block.Extent)
		if !scenario.Extent.Valid() {
			return nil, fmt.Errorf("scenario %q: extent encloses no area", block.Name)
		}
	}

	// An empty activity list falls back to the profile's selected set.
	ids := block.Activities
	if len(ids) == 0 {
		ids = profile.Selected
	}
	for _, id := range ids {
		activity, err := profile.Activity(id)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", block.Name, err)
		}
		scenario.Activities = append(scenario.Activities, activity)
	}

	for _, g := range block.Groups {
		for _, id := range g.Pwls {
			if _, ok := profile.PriorityLayers[id]; !ok {
				return nil, fmt.Errorf("scenario %q: priority_group %q references unknown priority layer %s", block.Name, g.Name, id)
			}
		}
		scenario.Groups = append(scenario.Groups, model.PriorityGroup{
			Name:  g.Name,
			Value: g.Value,
			Pwls:  g.Pwls,
		})
	}

	if block.Sieve != nil {
		scenario.Sieve = model.SieveOptions{
			Enabled:   block.Sieve.Enabled,
			Threshold: block.Sieve.Threshold,
		}
	}

	if block.NPV != nil {
		scenario.NPV = model.NPVOptions{
			Enabled:      true,
			DiscountRate: block.NPV.DiscountRate,
			Weight:       block.NPV.Weight,
		}
		for _, p := range block.NPV.Projections {
			scenario.NPV.Projections = append(scenario.NPV.Projections, model.NPVProjection{
				ActivityUUID: p.Activity,
				Revenues:     p.Revenues,
				Costs:        p.Costs,
			})
		}
	}

	if block.Processing != nil {
		mode := model.ProcessingMode(block.Processing.Mode)
		if mode != model.ProcessingLocal && mode != model.ProcessingRemote {
			return nil, fmt.Errorf("scenario %q: processing mode must be %q or %q", block.Name, model.ProcessingLocal, model.ProcessingRemote)
		}
		scenario.Processing = model.ProcessingOptions{
			Mode:   mode,
			APIURL: block.Processing.APIURL,
			APIKey: block.Processing.APIKey,
		}
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}
