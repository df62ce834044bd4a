// Package pipeline turns a scenario definition into a dependency graph of
// analysis operations and executes it concurrently on a worker pool.
//
// The graph has one carbon-combination node per NCS pathway, one
// combine/weight/mask/sieve chain per activity, and a single
// highest-position node that fans in every activity raster to produce the
// scenario result. Nodes run as soon as their dependencies complete; a
// failing node cancels the run and skips its dependents, and the first
// non-skip error is reported as the root cause.
package pipeline
