package app

import (
	"context"
	"fmt"

	"github.com/vk/microform/internal/ctxlog"
	"github.com/vk/microform/internal/dag"
	"github.com/vk/microform/internal/eval"
	"github.com/vk/microform/internal/executor"
	"github.com/vk/microform/internal/hcl"
	"github.com/vk/microform/internal/plan"
	"github.com/vk/microform/internal/state"
	"github.com/vk/microform/internal/vars"
)

// prepare runs the shared front half of plan and apply: load configuration,
// validate handlers, resolve variables, build the graph, and open state.
func (a *App) prepare(ctx context.Context) (*plan.Planner, error) {
	loader := hcl.NewLoader(a.fs)
	model, err := loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	a.logger.Debug("Configuration loaded.",
		"resources", len(model.Resources),
		"data_sources", len(model.DataSources),
		"variables", len(model.Variables))

	if err := a.registry.Validate(model); err != nil {
		return nil, err
	}

	values, err := vars.Resolve(ctx, model.Variables, a.config.Vars)
	if err != nil {
		return nil, err
	}

	graph, err := dag.Build(ctx, model)
	if err != nil {
		return nil, err
	}
	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len())

	st, err := state.Open(a.fs, a.config.StatePath)
	if err != nil {
		return nil, err
	}

	return &plan.Planner{
		Graph:    graph,
		Order:    order,
		State:    st,
		Registry: a.registry,
		Scope:    eval.NewScope(values),
	}, nil
}

// Plan computes and prints what an apply would do. It reads data sources
// but never touches resources or the state file.
func (a *App) Plan(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	planner, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	p, err := planner.Compute(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.outW, plan.Render(p, planner.Graph))
	return nil
}

// Apply computes a plan and executes it, committing state per resource.
func (a *App) Apply(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	planner, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	p, err := planner.Compute(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.outW, plan.Render(p, planner.Graph))

	exec := &executor.Executor{
		Graph: planner.Graph,
		Plan:  p,
		Applier: &executor.Applier{
			Registry: a.registry,
			State:    planner.State,
			Scope:    planner.Scope,
		},
		Workers: a.config.Workers,
	}
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	summary := p.Summary()
	fmt.Fprintf(a.outW, "Apply complete. Resources: %d created, %d updated, %d replaced.\n",
		summary.Create, summary.Update, summary.Replace)
	return nil
}

// Destroy deletes everything recorded in state, dependents first. It works
// from the state file alone so it succeeds even when the configuration has
// drifted or disappeared.
func (a *App) Destroy(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	st, err := state.Open(a.fs, a.config.StatePath)
	if err != nil {
		return err
	}
	p, graph, err := plan.ComputeDestroy(ctx, st)
	if err != nil {
		return err
	}
	if len(p.Changes) == 0 {
		fmt.Fprintln(a.outW, "Nothing to destroy.")
		return nil
	}
	fmt.Fprint(a.outW, plan.Render(p, graph))

	exec := &executor.Executor{
		Graph: graph,
		Plan:  p,
		Applier: &executor.Applier{
			Registry: a.registry,
			State:    st,
			Scope:    eval.NewScope(nil),
		},
		Workers: a.config.Workers,
	}
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	fmt.Fprintf(a.outW, "Destroy complete. Resources: %d destroyed.\n", len(p.Changes))
	return nil
}
