package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/raster"
	"github.com/kartoza/cplus-engine/internal/registry"
)

// ProgressFunc receives completion updates as nodes finish.
type ProgressFunc func(done, total int)

// Executor runs a scenario graph concurrently.
type Executor struct {
	graph      *Graph
	registry   *registry.Registry
	numWorkers int
	progress   ProgressFunc

	wg        sync.WaitGroup
	doneCount atomic.Int32
}

// NewExecutor creates an executor for the given graph. workers below 1 is
// coerced to 1. progress may be nil.
func NewExecutor(graph *Graph, reg *registry.Registry, workers int, progress ProgressFunc) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:      graph,
		registry:   reg,
		numWorkers: workers,
		progress:   progress,
	}
}

// Run executes the entire graph concurrently and returns an error if any
// node fails. It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := e.registry.Validate(e.graph.Operations()); err != nil {
		return err
	}

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootNodeCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.graph.Nodes {
		if node.State() != Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
		// A "skipped" error is a symptom, not a cause.
		if node.Error != nil && !strings.HasPrefix(node.Error.Error(), "skipped") && !errors.Is(node.Error, context.Canceled) {
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil {
				rootCauseError = node.Error
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// skipDependents recursively marks all downstream nodes as failed and
// decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.ID, "dependency", node.ID)
			dependent.state.Store(int32(Failed))
			dependent.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				node.state.Store(int32(Failed))
				node.Error = ctx.Err()
				e.wg.Done()
				// Dependents still hold a depCount on this node and would
				// otherwise never be enqueued nor skipped, wedging Run.
				e.skipDependents(ctx, node)
			})
			continue
		}

		workerLogger.Debug("Worker picked up node for execution.", "op", node.Op)
		node.state.Store(int32(Running))

		err := e.executeNode(ctx, node)
		if err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			node.state.Store(int32(Failed))
			node.Error = err
			cancel()
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		node.state.Store(int32(Done))
		if e.progress != nil {
			e.progress(int(e.doneCount.Add(1)), len(e.graph.Nodes))
		}

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// executeNode resolves the node's handler, gathers its inputs from completed
// dependencies and stores the output.
func (e *Executor) executeNode(ctx context.Context, node *Node) error {
	handler, ok := e.registry.Handler(node.Op)
	if !ok {
		return fmt.Errorf("unknown operation '%s'", node.Op)
	}

	inputs := make([]*raster.Grid, len(node.Deps))
	for i, dep := range node.Deps {
		inputs[i] = dep.Output
	}

	out, err := handler(ctx, inputs, node.Params)
	if err != nil {
		return fmt.Errorf("%s: %w", node.Op, err)
	}
	node.Output = out
	return nil
}
