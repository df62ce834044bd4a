package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kartoza/cplus-engine/internal/model"
	"github.com/kartoza/cplus-engine/internal/registry"
)

// Build is a wired scenario graph plus the handles the app needs afterwards:
// the final node per activity (in scenario order, matching the 1-based class
// indices of the result raster) and the classification node itself.
type Build struct {
	Graph         *Graph
	ActivityNodes []*Node
	ResultNode    *Node
	ActivityPaths map[string]string
	// NPVPaths maps activity uuid to the constant npv layer the graph reads.
	// The caller materializes these files before running the graph.
	NPVPaths   map[string]string
	ResultPath string
}

// BuildGraph constructs the analysis graph for one scenario. pwls is the
// profile's priority layer index; outDir receives the output rasters.
func BuildGraph(scenario *model.Scenario, pwls map[string]model.PriorityLayer, outDir string) (*Build, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	g := newGraph()
	build := &Build{
		Graph:         g,
		ActivityPaths: make(map[string]string),
		NPVPaths:      make(map[string]string),
		ResultPath:    filepath.Join(outDir, "scenario_result.asc"),
	}
	groupWeights := scenario.GroupWeight()

	for i := range scenario.Activities {
		activity := &scenario.Activities[i]

		// One carbon-combination node per pathway. These are the graph's
		// roots; each loads and normalizes its own layers.
		pathwayNodes := make([]*Node, 0, len(activity.Pathways))
		for j := range activity.Pathways {
			pathway := &activity.Pathways[j]
			node := g.add(
				fmt.Sprintf("activity.%d.pathway.%d", i, j),
				OpCombineCarbon,
				registry.Params{
					"pathway_path": pathway.Path,
					"carbon_paths": pathway.CarbonPaths,
					"coefficient":  scenario.CarbonCoefficient,
				},
			)
			pathwayNodes = append(pathwayNodes, node)
		}

		current := g.add(
			fmt.Sprintf("activity.%d.combine", i),
			OpCombineActivity,
			nil,
			pathwayNodes...,
		)

		if len(activity.PwlIDs) > 0 {
			paths := make([]string, 0, len(activity.PwlIDs))
			weights := make([]float64, 0, len(activity.PwlIDs))
			for _, id := range activity.PwlIDs {
				layer, ok := pwls[id]
				if !ok {
					return nil, fmt.Errorf("activity %q: unknown priority layer %s", activity.Name, id)
				}
				paths = append(paths, layer.Path)
				// A scenario group weight overrides the layer default.
				if w, ok := groupWeights[id]; ok {
					weights = append(weights, w)
				} else {
					weights = append(weights, layer.DefaultWeight)
				}
			}
			current = g.add(
				fmt.Sprintf("activity.%d.weight", i),
				OpWeight,
				registry.Params{"pwl_paths": paths, "weights": weights},
				current,
			)
		}

		if scenario.NPV.Enabled {
			npvPath := filepath.Join(outDir, "npv_"+slug(activity.Name)+".asc")
			build.NPVPaths[activity.UUID] = npvPath
			current = g.add(
				fmt.Sprintf("activity.%d.npv", i),
				OpNPVWeight,
				registry.Params{"path": npvPath, "weight": scenario.NPV.Weight},
				current,
			)
		}

		if len(activity.MaskPaths) > 0 {
			current = g.add(
				fmt.Sprintf("activity.%d.mask", i),
				OpMask,
				registry.Params{"mask_paths": activity.MaskPaths},
				current,
			)
		}

		if scenario.Sieve.Enabled {
			current = g.add(
				fmt.Sprintf("activity.%d.sieve", i),
				OpSieve,
				registry.Params{"threshold": scenario.Sieve.Threshold},
				current,
			)
		}

		outPath := filepath.Join(outDir, "activity_"+slug(activity.Name)+".asc")
		build.ActivityPaths[activity.UUID] = outPath
		current = g.add(
			fmt.Sprintf("activity.%d.output", i),
			OpWriteOutput,
			registry.Params{"path": outPath},
			current,
		)
		build.ActivityNodes = append(build.ActivityNodes, current)
	}

	classify := g.add("scenario.highest_position", OpHighestPosition, nil, build.ActivityNodes...)
	build.ResultNode = g.add(
		"scenario.output",
		OpWriteOutput,
		registry.Params{"path": build.ResultPath},
		classify,
	)
	return build, nil
}

// slug converts an activity name into a filesystem-friendly token.
func slug(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return strings.Trim(mapped, "_")
}
