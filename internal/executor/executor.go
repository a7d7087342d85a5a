// Package executor runs a computed plan over the dependency graph with a
// bounded worker pool. A node executes only after every dependency finished
// successfully; when a node fails, its transitive dependents are skipped
// while independent branches keep running to completion.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/vk/microform/internal/ctxlog"
	"github.com/vk/microform/internal/dag"
	"github.com/vk/microform/internal/plan"
)

// DefaultWorkers bounds concurrency when the caller does not choose one.
const DefaultWorkers = 4

// Status is the execution state of one node within a run.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// nodeRun is the per-run mutable wrapper around a graph node.
type nodeRun struct {
	node   *dag.Node
	change *plan.Change

	// depCount tracks unmet dependencies; a run is enqueued when it hits 0.
	depCount atomic.Int32
	status   atomic.Int32

	// skipOnce guards the skip transition: a run can be reached by more than
	// one skip path but must release the WaitGroup exactly once.
	skipOnce sync.Once
	err      error
}

// Executor walks the graph and applies each node's planned change.
type Executor struct {
	Graph   *dag.Graph
	Plan    *plan.Plan
	Applier *Applier
	Workers int

	wg   sync.WaitGroup
	runs map[string]*nodeRun
}

// Run executes the plan. It returns nil only if every node completed; on
// failures it returns the aggregate of every root-cause error, one per
// failed node, with skipped nodes excluded.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	workers := e.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	e.runs = make(map[string]*nodeRun, e.Graph.Len())
	for id, node := range e.Graph.Nodes {
		run := &nodeRun{node: node}
		if change, ok := e.Plan.Change(id); ok {
			run.change = change
		}
		run.depCount.Store(int32(len(node.Deps)))
		e.runs[id] = run
	}

	readyChan := make(chan *nodeRun, e.Graph.Len())
	for _, run := range e.runs {
		if run.depCount.Load() == 0 {
			readyChan <- run
		}
	}
	e.wg.Add(len(e.runs))

	logger.Debug("Starting worker pool.", "workers", workers, "nodes", e.Graph.Len())
	for i := 0; i < workers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)

	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result *multierror.Error
	for _, id := range ids {
		run := e.runs[id]
		switch Status(run.status.Load()) {
		case StatusFailed:
			result = multierror.Append(result, &ProvisioningFailedError{NodeID: id, Cause: run.err})
		case StatusSkipped:
			logger.Warn("Node skipped.", "nodeID", id, "reason", run.err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	// A run skipped wholesale by cancellation has no failed nodes; surface
	// the cancellation instead of reporting success.
	return ctx.Err()
}

// Statuses reports the final state of every node after Run returns.
func (e *Executor) Statuses() map[string]Status {
	statuses := make(map[string]Status, len(e.runs))
	for id, run := range e.runs {
		statuses[id] = Status(run.status.Load())
	}
	return statuses
}

// worker is the processing loop for one concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *nodeRun, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for run := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", run.node.ID)

		if ctx.Err() != nil {
			e.skip(ctx, run, ctx.Err())
			continue
		}
		// A cancellation cascade may have skipped this run after it was
		// enqueued; skip released the WaitGroup already.
		if Status(run.status.Load()) == StatusSkipped {
			continue
		}

		workerLogger.Debug("Worker picked up node.")
		run.status.Store(int32(StatusRunning))

		if err := e.Applier.Apply(ctx, run.node, run.change); err != nil {
			workerLogger.Error("Node execution failed.", "error", err)
			run.status.Store(int32(StatusFailed))
			run.err = err
			// No run-wide cancellation: only this node's transitive
			// dependents stop, independent branches continue.
			e.skipDependents(ctx, run)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Node execution succeeded.")
		run.status.Store(int32(StatusDone))

		for depID := range run.node.Dependents {
			dependent := e.runs[depID]
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", depID)
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// skip marks a run skipped and cascades to its dependents. The skipOnce
// guard makes overlapping skip paths release the WaitGroup exactly once.
func (e *Executor) skip(ctx context.Context, run *nodeRun, cause error) {
	run.skipOnce.Do(func() {
		ctxlog.FromContext(ctx).Warn("Skipping node.", "nodeID", run.node.ID, "reason", cause)
		run.status.Store(int32(StatusSkipped))
		run.err = cause
		e.wg.Done()
		e.skipDependents(ctx, run)
	})
}

func (e *Executor) skipDependents(ctx context.Context, run *nodeRun) {
	for depID := range run.node.Dependents {
		e.skip(ctx, e.runs[depID], fmt.Errorf("dependency %s did not complete", run.node.ID))
	}
}
