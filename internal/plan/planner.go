package plan

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/ctxlog"
	"github.com/vk/microform/internal/dag"
	"github.com/vk/microform/internal/eval"
	"github.com/vk/microform/internal/fingerprint"
	"github.com/vk/microform/internal/registry"
	"github.com/vk/microform/internal/state"
)

// Planner computes a plan for one run. The scope it is given is shared with
// the executor: data source results and state-recorded outputs published
// here are what apply-time expressions resolve against.
type Planner struct {
	Graph    *dag.Graph
	Order    []string
	State    *state.Store
	Registry *registry.Registry
	Scope    *eval.Scope
}

// Compute walks the graph in dependency order and derives one change per
// node. Resources with recorded state publish their prior outputs into the
// scope; resources pending creation publish an unknown value so dependents
// evaluate without error.
func (p *Planner) Compute(ctx context.Context) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	result := newPlan()

	// Seed the scope before any evaluation so references resolve regardless
	// of traversal order.
	for _, node := range p.Graph.Nodes {
		if node.Kind != dag.ResourceNode {
			continue
		}
		entry, ok := p.State.Get(node.ID)
		if !ok {
			p.Scope.SetResource(node.Resource.Addr(), cty.DynamicVal)
			continue
		}
		outputs, err := entry.OutputsValue()
		if err != nil {
			return nil, fmt.Errorf("state entry for %s: %w", node.ID, err)
		}
		if outputs == cty.NilVal {
			outputs = cty.EmptyObjectVal
		}
		p.Scope.SetResource(node.Resource.Addr(), outputs)
	}

	for _, nodeID := range p.Order {
		node := p.Graph.Nodes[nodeID]
		switch node.Kind {
		case dag.DataNode:
			if err := p.readData(ctx, node); err != nil {
				return nil, err
			}
			result.add(&Change{NodeID: node.ID, Action: Read})
		case dag.ResourceNode:
			change, err := p.planResource(ctx, node)
			if err != nil {
				return nil, err
			}
			result.add(change)
		}
	}

	summary := result.Summary()
	logger.Debug("Plan computed.",
		"create", summary.Create,
		"update", summary.Update,
		"replace", summary.Replace,
		"noop", summary.NoOp,
		"read", summary.Read)
	return result, nil
}

// readData resolves a data source and publishes its value. Reads are
// side-effect free, so running them during plan is safe and gives plans
// concrete values to compare.
func (p *Planner) readData(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("data", node.ID)

	handler, ok := p.Registry.Data(node.Data.Type)
	if !ok {
		return fmt.Errorf("no handler registered for data source type %q", node.Data.Type)
	}

	args, err := eval.EvaluateArgs(node.Data.Arguments, p.Scope.HCLContext())
	if err != nil {
		return fmt.Errorf("data source %s: %w", node.ID, err)
	}
	if !args.IsWhollyKnown() {
		return fmt.Errorf("data source %s depends on a resource that has not been created yet", node.ID)
	}

	logger.Debug("Reading data source.")
	value, err := handler.ReadFn(ctx, args)
	if err != nil {
		return fmt.Errorf("reading data source %s: %w", node.ID, err)
	}
	p.Scope.SetData(node.Data.Addr(), value)
	return nil
}

// planResource derives the action for one resource node.
func (p *Planner) planResource(ctx context.Context, node *dag.Node) (*Change, error) {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)

	desired, err := eval.EvaluateArgs(node.Resource.Arguments, p.Scope.HCLContext())
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", node.ID, err)
	}

	entry, ok := p.State.Get(node.ID)
	if !ok {
		logger.Debug("No state entry, planning create.")
		return &Change{NodeID: node.ID, Action: Create}, nil
	}

	// Fast path: a fully known desired object with an unchanged fingerprint
	// is a no-op without attribute-level comparison.
	if desired.IsWhollyKnown() {
		fp, err := fingerprint.Compute(desired)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", node.ID, err)
		}
		if fp == entry.Fingerprint {
			logger.Debug("Fingerprint unchanged, planning no-op.")
			return &Change{NodeID: node.ID, Action: NoOp}, nil
		}
	}

	prior, err := entry.InputsValue()
	if err != nil {
		return nil, fmt.Errorf("state entry for %s: %w", node.ID, err)
	}
	changed := diffArgs(desired, prior)
	if len(changed) == 0 {
		logger.Debug("No argument changes, planning no-op.")
		return &Change{NodeID: node.ID, Action: NoOp}, nil
	}

	var triggers []string
	if node.Resource.Lifecycle != nil {
		triggers = node.Resource.Lifecycle.ReplaceTriggeredBy
	}
	action := classify(changed, triggers)
	logger.Debug("Planned change.", "action", action, "changed_args", changed)
	return &Change{NodeID: node.ID, Action: action, ChangedArgs: changed}, nil
}

// ComputeDestroy builds a delete-everything plan from recorded state. The
// returned graph is the state graph with its edges reversed, so walking it
// forward destroys dependents before their dependencies.
func ComputeDestroy(ctx context.Context, st *state.Store) (*Plan, *dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	graph := dag.FromState(st.Dependencies()).Reverse()
	order, err := graph.TopologicalOrder()
	if err != nil {
		// State-recorded edges came from an acyclic graph; a cycle here
		// means the file was tampered with.
		return nil, nil, &state.StateCorruptedError{Path: st.Path(), Err: err}
	}

	result := newPlan()
	for _, nodeID := range order {
		result.add(&Change{NodeID: nodeID, Action: Delete})
	}
	logger.Debug("Destroy plan computed.", "delete", len(result.Changes))
	return result, graph, nil
}
