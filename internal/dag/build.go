package dag

import (
	"context"
	"sort"

	"github.com/vk/microform/internal/config"
	"github.com/vk/microform/internal/ctxlog"
)

// Build constructs a complete, validated dependency graph from a config
// model. It fails with UnresolvedReferenceError for dangling references and
// CyclicDependencyError for reference cycles, before anything executes.
func Build(ctx context.Context, model *config.Model) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	graph := NewGraph()

	// First pass: a node per declaration, in declaration order. Data sources
	// come first so resources can reference them regardless of file layout.
	for _, d := range model.DataSources {
		graph.addNode(&Node{ID: "data." + d.Addr(), Kind: DataNode, Data: d})
	}
	for _, r := range model.Resources {
		graph.addNode(&Node{ID: "resource." + r.Addr(), Kind: ResourceNode, Resource: r})
	}
	logger.Debug("Build: node creation complete.", "node_count", graph.Len())

	// Second pass: unified edge set from implicit references and explicit
	// depends_on hints.
	for _, node := range graph.insertion {
		if err := linkImplicitDeps(ctx, graph, node); err != nil {
			return nil, err
		}
		if err := linkExplicitDeps(ctx, graph, node); err != nil {
			return nil, err
		}
	}
	logger.Debug("Build: node linking complete.")

	if err := graph.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return graph, nil
}

// FromState reconstructs a graph from dependency edges recorded in state.
// Destroy uses this so teardown order survives config drift. Edges pointing
// at keys no longer present in state are dropped.
func FromState(deps map[string][]string) *Graph {
	graph := NewGraph()

	keys := make([]string, 0, len(deps))
	for key := range deps {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		graph.addNode(&Node{ID: key, Kind: ResourceNode})
	}
	for _, key := range keys {
		node := graph.Nodes[key]
		for _, depID := range deps[key] {
			if dep, ok := graph.Nodes[depID]; ok {
				graph.link(node, dep)
			}
		}
	}
	return graph
}
