// Package model provides the Go struct representation of the CPLUS analysis
// domain. Its core purpose is to give every later stage (profile loading,
// pipeline construction, remote submission, history) a strongly-typed,
// format-agnostic view of the user's definitions.
//
// The model is built around a few key structures:
//
//   - NcsPathway: a natural climate solution layer plus the carbon layers
//     that amend it. Pathways are the leaves of the analysis.
//
//   - Activity: a candidate land-use intervention composed of one or more
//     pathways, optionally masked and weighted by priority layers.
//
//   - PriorityLayer / PriorityGroup: weighting rasters and the named groups
//     that assign them a 0..5 influence value for a given scenario.
//
//   - Scenario: the root container for one analysis run, holding the
//     selected activities, the weighting configuration, the extent, and the
//     processing options.
//
//   - ScenarioResult: the durable outcome of a run, persisted to history and
//     consumed by the report generator.
//
// Keeping the model separate from the loaders lets profile validation and
// pipeline construction work on a predictable structure regardless of
// whether the definitions arrived as JSON profiles, HCL scenario files, or a
// remote API payload.
package model
