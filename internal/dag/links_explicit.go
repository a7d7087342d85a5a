package dag

import (
	"context"

	"github.com/vk/microform/internal/ctxlog"
)

// linkExplicitDeps resolves `depends_on` addresses into edges. Addresses are
// bare "type.name" references; resources are tried first, then data sources.
func linkExplicitDeps(ctx context.Context, graph *Graph, node *Node) error {
	if node.Kind != ResourceNode || len(node.Resource.DependsOn) == 0 {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	for _, addr := range node.Resource.DependsOn {
		depNode, found := graph.Nodes["resource."+addr]
		if !found {
			depNode, found = graph.Nodes["data."+addr]
		}
		if !found {
			return &UnresolvedReferenceError{NodeID: node.ID, Reference: addr}
		}
		if depNode == node {
			return &CyclicDependencyError{NodeID: node.ID}
		}
		logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depNode.ID)
		graph.link(node, depNode)
	}
	return nil
}
