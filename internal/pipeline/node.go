package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kartoza/cplus-engine/internal/raster"
	"github.com/kartoza/cplus-engine/internal/registry"
)

// NodeState tracks a node through execution.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node is one analysis operation instance in a scenario graph.
type Node struct {
	ID     string
	Op     string
	Params registry.Params

	Deps       []*Node
	Dependents []*Node

	// Output is set exactly once, by the worker that completes the node,
	// before any dependent is unlocked.
	Output *raster.Grid
	Error  error

	state    atomic.Int32
	depCount atomic.Int32
	skipOnce sync.Once
}

// State returns the node's current state.
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

// Graph is a fully wired scenario graph.
type Graph struct {
	Nodes []*Node
	byID  map[string]*Node
}

// newGraph creates an empty graph.
func newGraph() *Graph {
	return &Graph{byID: make(map[string]*Node)}
}

// add creates a node and wires it to its dependencies.
func (g *Graph) add(id, op string, params registry.Params, deps ...*Node) *Node {
	if _, dup := g.byID[id]; dup {
		panic(fmt.Sprintf("pipeline: node %q added twice", id))
	}
	node := &Node{ID: id, Op: op, Params: params, Deps: deps}
	node.depCount.Store(int32(len(deps)))
	for _, dep := range deps {
		dep.Dependents = append(dep.Dependents, node)
	}
	g.Nodes = append(g.Nodes, node)
	g.byID[id] = node
	return node
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.byID[id]
}

// Operations returns the distinct operation names the graph references, for
// registry validation before execution.
func (g *Graph) Operations() []string {
	seen := make(map[string]struct{})
	var ops []string
	for _, n := range g.Nodes {
		if _, ok := seen[n.Op]; ok {
			continue
		}
		seen[n.Op] = struct{}{}
		ops = append(ops, n.Op)
	}
	return ops
}
