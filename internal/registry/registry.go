// Package registry holds the named analysis operations the pipeline builder
// wires into scenario graphs. Operations are registered once at startup;
// the builder validates every operation a graph references before any node
// runs, so a missing handler is a startup error, not a mid-run failure.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kartoza/cplus-engine/internal/raster"
)

// Params carries the per-node configuration an operation needs beyond its
// input grids (coefficients, weights, output paths). Values are set by the
// pipeline builder from typed scenario structs; handlers read them back with
// the typed accessors below.
type Params map[string]any

// Float reads a float64 parameter, returning def when absent.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key].(float64); ok {
		return v
	}
	return def
}

// Int reads an int parameter, returning def when absent.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key].(int); ok {
		return v
	}
	return def
}

// String reads a string parameter, returning "" when absent.
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Strings reads a string-slice parameter, returning nil when absent.
func (p Params) Strings(key string) []string {
	if v, ok := p[key].([]string); ok {
		return v
	}
	return nil
}

// Floats reads a float-slice parameter, returning nil when absent.
func (p Params) Floats(key string) []float64 {
	if v, ok := p[key].([]float64); ok {
		return v
	}
	return nil
}

// Handler is one analysis operation. Inputs arrive in the order the node's
// dependencies were declared; the returned grid becomes the node's output.
// Handlers that only produce side effects (writing an output file) return
// their primary input unchanged so dependents can keep consuming it.
type Handler func(ctx context.Context, in []*raster.Grid, params Params) (*raster.Grid, error)

// Registry maps operation names to handlers for a single app instance.
type Registry struct {
	handlers map[string]Handler
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under name. Re-registering a name is a programmer
// error and panics, matching the fail-fast startup contract.
func (r *Registry) Register(name string, h Handler) {
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("registry: operation %q registered twice", name))
	}
	r.handlers[name] = h
}

// Handler looks up the handler for an operation name.
func (r *Registry) Handler(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered operation names, sorted for stable logs.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every referenced operation is registered and returns
// one error naming all the misses.
func (r *Registry) Validate(ops []string) error {
	var missing []string
	seen := make(map[string]struct{})
	for _, op := range ops {
		if _, ok := r.handlers[op]; !ok {
			if _, already := seen[op]; !already {
				missing = append(missing, op)
				seen[op] = struct{}{}
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("registry validation failed: unregistered operations: %s", strings.Join(missing, ", "))
	}
	return nil
}
