// Package config loads the JSON metadata profiles that describe the
// available NCS pathways, activities and priority weighted layers. A profile
// directory holds three files (ncs_pathways.json, activities.json and
// priority_weighted_layers.json) plus the layer files they point at.
//
// Loading happens in two stages: each file is decoded into the raw wire
// structs defined here, then resolved into internal/model values with layer
// paths made absolute and every cross-reference (activity to pathway,
// activity to PWL) checked. The loaders never read raster data; existence
// checks are as far as they go.
package config
