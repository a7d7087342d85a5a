package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/ctxlog"
	"github.com/vk/microform/internal/dag"
	"github.com/vk/microform/internal/eval"
	"github.com/vk/microform/internal/fingerprint"
	"github.com/vk/microform/internal/plan"
	"github.com/vk/microform/internal/registry"
	"github.com/vk/microform/internal/state"
)

// Applier performs one node's planned change through its registered handler
// and commits the result to state. State is only mutated after the handler
// succeeded, so a failed operation leaves the prior record intact.
type Applier struct {
	Registry *registry.Registry
	State    *state.Store
	Scope    *eval.Scope
}

// Apply dispatches on the planned action. Data source reads already ran
// during planning and no-op resources keep their state entry, so both fall
// through without handler calls.
func (a *Applier) Apply(ctx context.Context, node *dag.Node, change *plan.Change) error {
	if change == nil {
		return nil
	}
	switch change.Action {
	case plan.NoOp, plan.Read:
		return nil
	case plan.Create:
		return a.create(ctx, node)
	case plan.Update:
		return a.update(ctx, node)
	case plan.Replace:
		return a.replace(ctx, node)
	case plan.Delete:
		return a.delete(ctx, node)
	}
	return fmt.Errorf("unknown action %q for %s", change.Action, node.ID)
}

func (a *Applier) create(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)

	handler, args, err := a.resolve(node)
	if err != nil {
		return err
	}

	logger.Info("Creating resource.")
	instance, err := handler.CreateFn(ctx, args)
	if err != nil {
		return err
	}
	return a.commit(node, args, instance)
}

func (a *Applier) update(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)

	entry, ok := a.State.Get(node.ID)
	if !ok {
		return fmt.Errorf("no state entry for %s", node.ID)
	}
	handler, args, err := a.resolve(node)
	if err != nil {
		return err
	}

	var instance *registry.Instance
	if handler.UpdateFn != nil {
		logger.Info("Updating resource in place.", "id", entry.ID)
		instance, err = handler.UpdateFn(ctx, entry.ID, args)
	} else {
		// Handlers without in-place update fall back to delete-then-create.
		logger.Info("Recreating resource, handler has no in-place update.", "id", entry.ID)
		if err = handler.DeleteFn(ctx, entry.ID); err != nil {
			return err
		}
		instance, err = handler.CreateFn(ctx, args)
	}
	if err != nil {
		return err
	}
	if instance.ID == "" {
		instance.ID = entry.ID
	}
	return a.commit(node, args, instance)
}

func (a *Applier) replace(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)

	entry, ok := a.State.Get(node.ID)
	if !ok {
		return fmt.Errorf("no state entry for %s", node.ID)
	}
	handler, args, err := a.resolve(node)
	if err != nil {
		return err
	}

	logger.Info("Replacing resource.", "old_id", entry.ID)
	if err := handler.DeleteFn(ctx, entry.ID); err != nil {
		return err
	}
	instance, err := handler.CreateFn(ctx, args)
	if err != nil {
		return err
	}
	return a.commit(node, args, instance)
}

// delete removes a resource recorded in state. Destroy graphs are rebuilt
// from the state file, so the node may carry no configuration; the type is
// recovered from the node key.
func (a *Applier) delete(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)

	entry, ok := a.State.Get(node.ID)
	if !ok {
		return nil
	}
	typeName, err := typeFromNodeID(node)
	if err != nil {
		return err
	}
	handler, ok := a.Registry.Resource(typeName)
	if !ok {
		return fmt.Errorf("no handler registered for resource type %q", typeName)
	}

	logger.Info("Deleting resource.", "id", entry.ID)
	if err := handler.DeleteFn(ctx, entry.ID); err != nil {
		return err
	}
	return a.State.Delete(node.ID)
}

// resolve evaluates a node's arguments against the live scope and looks up
// its handler. Arguments must be wholly known at this point: every
// dependency has finished and published its outputs.
func (a *Applier) resolve(node *dag.Node) (*registry.ResourceHandler, cty.Value, error) {
	handler, ok := a.Registry.Resource(node.Resource.Type)
	if !ok {
		return nil, cty.NilVal, fmt.Errorf("no handler registered for resource type %q", node.Resource.Type)
	}
	args, err := eval.EvaluateArgs(node.Resource.Arguments, a.Scope.HCLContext())
	if err != nil {
		return nil, cty.NilVal, fmt.Errorf("resource %s: %w", node.ID, err)
	}
	if !args.IsWhollyKnown() {
		return nil, cty.NilVal, fmt.Errorf("resource %s has unresolved arguments at apply time", node.ID)
	}
	return handler, args, nil
}

// commit records the applied entry and publishes the resource's object value
// for downstream expressions.
func (a *Applier) commit(node *dag.Node, args cty.Value, instance *registry.Instance) error {
	fp, err := fingerprint.Compute(args)
	if err != nil {
		return fmt.Errorf("resource %s: %w", node.ID, err)
	}

	published := publishedValue(args, instance)
	entry := &state.Entry{
		ID:           instance.ID,
		Fingerprint:  fp,
		Dependencies: dependencyKeys(node),
	}
	if err := entry.SetInputs(args); err != nil {
		return fmt.Errorf("resource %s: %w", node.ID, err)
	}
	if err := entry.SetOutputs(published); err != nil {
		return fmt.Errorf("resource %s: %w", node.ID, err)
	}
	if err := a.State.Commit(node.ID, entry); err != nil {
		return fmt.Errorf("resource %s: %w", node.ID, err)
	}

	a.Scope.SetResource(node.Resource.Addr(), published)
	return nil
}

// publishedValue merges arguments, handler outputs, and the identifier into
// the single object dependents see. Outputs win over same-named arguments.
func publishedValue(args cty.Value, instance *registry.Instance) cty.Value {
	attrs := make(map[string]cty.Value)
	if args.Type().IsObjectType() {
		for name, v := range args.AsValueMap() {
			attrs[name] = v
		}
	}
	if instance.Outputs != cty.NilVal && instance.Outputs.Type().IsObjectType() {
		for name, v := range instance.Outputs.AsValueMap() {
			attrs[name] = v
		}
	}
	attrs["id"] = cty.StringVal(instance.ID)
	return cty.ObjectVal(attrs)
}

func dependencyKeys(node *dag.Node) []string {
	if len(node.Deps) == 0 {
		return nil
	}
	keys := make([]string, 0, len(node.Deps))
	for id := range node.Deps {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func typeFromNodeID(node *dag.Node) (string, error) {
	if node.Resource != nil {
		return node.Resource.Type, nil
	}
	parts := strings.SplitN(node.ID, ".", 3)
	if len(parts) != 3 || parts[0] != "resource" {
		return "", fmt.Errorf("malformed node key %q in state", node.ID)
	}
	return parts[1], nil
}
