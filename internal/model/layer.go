package model

import "fmt"

// LayerType discriminates the kind of spatial source a layer path points at.
type LayerType int

const (
	LayerTypeUndefined LayerType = iota - 1
	LayerTypeRaster
	LayerTypeVector
)

// String implements fmt.Stringer for LayerType.
func (t LayerType) String() string {
	switch t {
	case LayerTypeRaster:
		return "raster"
	case LayerTypeVector:
		return "vector"
	default:
		return "undefined"
	}
}

// ParseLayerType converts the profile-file representation of a layer type.
// The JSON profiles encode it as an integer (0 raster, 1 vector, -1
// undefined), matching the upstream configuration format.
func ParseLayerType(v int) (LayerType, error) {
	switch LayerType(v) {
	case LayerTypeRaster, LayerTypeVector, LayerTypeUndefined:
		return LayerType(v), nil
	default:
		return LayerTypeUndefined, fmt.Errorf("unknown layer_type %d", v)
	}
}

// Extent is a bounding box in layer coordinates, [xmin ymin xmax ymax].
type Extent [4]float64

// Valid reports whether the extent encloses a non-empty area.
func (e Extent) Valid() bool {
	return e[0] < e[2] && e[1] < e[3]
}
