// Package npv computes net present value priority weighting inputs. Each
// activity carries yearly revenue and cost projections; the manager
// discounts them, normalizes the NPVs across activities and materializes the
// normalized value as a constant priority grid aligned to a reference
// raster, ready for the weighted overlay step.
package npv

import (
	"fmt"
	"math"

	"github.com/kartoza/cplus-engine/internal/raster"
)

// YearValue is one year of an activity's financial projection. Year 0 is the
// investment year and is not discounted.
type YearValue struct {
	Revenue float64
	Cost    float64
}

// Input is one activity's projection.
type Input struct {
	ActivityUUID string
	ActivityName string
	Years        []YearValue
}

// Result carries the absolute and normalized NPV for one activity.
type Result struct {
	ActivityUUID string
	ActivityName string
	Value        float64
	Normalized   float64
}

// Compute discounts one projection: sum of (revenue-cost)/(1+rate)^year.
func Compute(years []YearValue, discountRate float64) (float64, error) {
	if len(years) == 0 {
		return 0, fmt.Errorf("no projection years")
	}
	if discountRate <= -1 {
		return 0, fmt.Errorf("discount rate %g is out of range", discountRate)
	}

	total := 0.0
	for i, y := range years {
		total += (y.Revenue - y.Cost) / math.Pow(1+discountRate, float64(i))
	}
	return total, nil
}

// ComputeAll discounts every projection and min-max normalizes the NPVs
// across activities. With a single activity, or when all NPVs are equal, the
// normalized value is 1 so the layer still carries weight.
func ComputeAll(inputs []Input, discountRate float64) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no npv inputs")
	}

	results := make([]Result, len(inputs))
	min, max := math.Inf(1), math.Inf(-1)
	for i, in := range inputs {
		for year, y := range in.Years {
			if math.IsNaN(y.Revenue) || math.IsNaN(y.Cost) {
				return nil, fmt.Errorf("activity %q: year %d is missing revenue or cost", in.ActivityName, year)
			}
		}
		v, err := Compute(in.Years, discountRate)
		if err != nil {
			return nil, fmt.Errorf("activity %q: %w", in.ActivityName, err)
		}
		results[i] = Result{
			ActivityUUID: in.ActivityUUID,
			ActivityName: in.ActivityName,
			Value:        v,
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min
	for i := range results {
		if span == 0 {
			results[i].Normalized = 1
			continue
		}
		results[i].Normalized = (results[i].Value - min) / span
	}
	return results, nil
}

// ConstantLayer materializes a normalized NPV as a priority grid aligned to
// ref. Cells that are nodata in ref stay nodata.
func ConstantLayer(ref *raster.Grid, normalized float64) *raster.Grid {
	out := raster.New(ref.Cols, ref.Rows, ref.XCorner, ref.YCorner, ref.CellSize)
	for i, v := range ref.Data {
		if ref.IsNoData(v) {
			continue
		}
		out.Data[i] = normalized
	}
	return out
}
