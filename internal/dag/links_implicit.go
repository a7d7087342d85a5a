package dag

import (
	"context"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/microform/internal/ctxlog"
)

// linkImplicitDeps walks every argument expression of a node and turns
// traversals rooted at `resource` or `data` into dependency edges. A
// traversal whose target is not declared is an unresolved reference; other
// roots (var, functions) are not dependencies and are skipped.
func linkImplicitDeps(ctx context.Context, graph *Graph, node *Node) error {
	logger := ctxlog.FromContext(ctx)

	var args map[string]hcl.Expression
	if node.Kind == ResourceNode {
		args = node.Resource.Arguments
	} else {
		args = node.Data.Arguments
	}

	for _, expr := range args {
		for _, traversal := range expr.Variables() {
			depID, ok := parseReference(traversal)
			if !ok {
				continue
			}
			depNode, found := graph.Nodes[depID]
			if !found {
				return &UnresolvedReferenceError{NodeID: node.ID, Reference: depID}
			}
			if depNode == node {
				// A self-reference is a one-node cycle.
				return &CyclicDependencyError{NodeID: node.ID}
			}
			logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
			graph.link(node, depNode)
		}
	}
	return nil
}

// parseReference extracts a node ID from a traversal like
// resource.<type>.<name>.<attr>... or data.<type>.<name>....
func parseReference(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 3 {
		return "", false
	}
	rootName := traversal.RootName()
	if rootName != "resource" && rootName != "data" {
		return "", false
	}
	typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
	nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
	if !typeOk || !nameOk {
		return "", false
	}
	return rootName + "." + typeAttr.Name + "." + nameAttr.Name, true
}
