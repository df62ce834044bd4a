package pipeline

import (
	"context"
	"fmt"

	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/raster"
	"github.com/kartoza/cplus-engine/internal/registry"
)

// Operation names wired by the builder. The registry validates these before
// a graph runs, so scenario graphs can only reference this vocabulary.
const (
	OpCombineCarbon   = "combine_carbon"
	OpCombineActivity = "combine_activity"
	OpWeight          = "weight"
	OpNPVWeight       = "npv_weight"
	OpMask            = "mask"
	OpSieve           = "sieve"
	OpHighestPosition = "highest_position"
	OpWriteOutput     = "write_output"
)

// RegisterCoreOperations installs the built-in analysis operations.
func RegisterCoreOperations(r *registry.Registry) {
	r.Register(OpCombineCarbon, opCombineCarbon)
	r.Register(OpCombineActivity, opCombineActivity)
	r.Register(OpWeight, opWeight)
	r.Register(OpNPVWeight, opNPVWeight)
	r.Register(OpMask, opMask)
	r.Register(OpSieve, opSieve)
	r.Register(OpHighestPosition, opHighestPosition)
	r.Register(OpWriteOutput, opWriteOutput)
}

// opCombineCarbon loads one pathway layer, normalizes it, and blends in the
// normalized sum of its carbon layers scaled by the carbon coefficient.
func opCombineCarbon(ctx context.Context, _ []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	pathwayPath := params.String("pathway_path")
	pathway, err := raster.ReadFile(pathwayPath)
	if err != nil {
		return nil, err
	}
	norm := raster.Normalize(pathway)

	carbonPaths := params.Strings("carbon_paths")
	if len(carbonPaths) == 0 {
		return norm, nil
	}

	carbons := make([]*raster.Grid, 0, len(carbonPaths))
	for _, p := range carbonPaths {
		g, err := raster.ReadFile(p)
		if err != nil {
			return nil, err
		}
		carbons = append(carbons, g)
	}
	carbonSum, err := raster.Sum(carbons, nil)
	if err != nil {
		return nil, err
	}

	coeff := params.Float("coefficient", 0)
	ctxlog.FromContext(ctx).Debug("Blending carbon layers.", "pathway", pathwayPath, "carbonLayers", len(carbons), "coefficient", coeff)
	return raster.NormalizeWithCarbon(norm, raster.Normalize(carbonSum), coeff)
}

// opCombineActivity sums the weighted pathway grids of one activity and
// renormalizes the result.
func opCombineActivity(_ context.Context, in []*raster.Grid, _ registry.Params) (*raster.Grid, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("no pathway inputs")
	}
	sum, err := raster.Sum(in, nil)
	if err != nil {
		return nil, err
	}
	return raster.Normalize(sum), nil
}

// opWeight overlays the activity's priority weighted layers onto its grid.
func opWeight(_ context.Context, in []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want exactly one input, got %d", len(in))
	}
	paths := params.Strings("pwl_paths")
	weights := params.Floats("weights")
	if len(paths) == 0 {
		return in[0], nil
	}

	pwls := make([]*raster.Grid, 0, len(paths))
	for _, p := range paths {
		g, err := raster.ReadFile(p)
		if err != nil {
			return nil, err
		}
		pwls = append(pwls, raster.Normalize(g))
	}
	return raster.WeightedOverlay(in[0], pwls, weights)
}

// opNPVWeight overlays a pre-normalized layer without renormalizing it. The
// npv layers are constant grids already in 0..1; min-max normalization would
// flatten them to zero.
func opNPVWeight(_ context.Context, in []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want exactly one input, got %d", len(in))
	}
	layer, err := raster.ReadFile(params.String("path"))
	if err != nil {
		return nil, err
	}
	return raster.WeightedOverlay(in[0], []*raster.Grid{layer}, []float64{params.Float("weight", 0)})
}

// opMask applies each mask layer in turn.
func opMask(_ context.Context, in []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want exactly one input, got %d", len(in))
	}
	out := in[0]
	for _, p := range params.Strings("mask_paths") {
		mask, err := raster.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out, err = raster.ApplyMask(out, mask)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// opSieve removes small patches from the activity grid.
func opSieve(_ context.Context, in []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want exactly one input, got %d", len(in))
	}
	return raster.Sieve(in[0], params.Int("threshold", 0)), nil
}

// opHighestPosition fans in every activity grid and classifies each cell to
// the activity holding the greatest value.
func opHighestPosition(_ context.Context, in []*raster.Grid, _ registry.Params) (*raster.Grid, error) {
	return raster.HighestPosition(in)
}

// opWriteOutput persists its input grid and passes it through unchanged.
func opWriteOutput(ctx context.Context, in []*raster.Grid, params registry.Params) (*raster.Grid, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want exactly one input, got %d", len(in))
	}
	path := params.String("path")
	if err := raster.WriteFile(path, in[0]); err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Info("Output raster written.", "path", path)
	return in[0], nil
}
