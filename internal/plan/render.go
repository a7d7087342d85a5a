package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/vk/microform/internal/dag"
)

// Render formats a plan as a dependency tree plus a summary line. Each node
// appears once, nested under the first of its dependencies in execution
// order; extra dependencies are visible as graph edges, not repeated
// branches.
func Render(p *Plan, graph *dag.Graph) string {
	tree := treeprint.New()
	tree.SetValue("plan")

	placed := make(map[string]bool)
	var place func(branch treeprint.Tree, node *dag.Node)
	place = func(branch treeprint.Tree, node *dag.Node) {
		if placed[node.ID] {
			return
		}
		placed[node.ID] = true

		label := node.ID
		if change, ok := p.Change(node.ID); ok {
			label = change.String()
		}
		child := branch.AddBranch(label)

		dependents := make([]*dag.Node, 0, len(node.Dependents))
		for _, dep := range node.Dependents {
			dependents = append(dependents, dep)
		}
		sort.Slice(dependents, func(i, j int) bool { return dependents[i].ID < dependents[j].ID })
		for _, dep := range dependents {
			// A dependent nests here only once all of its dependencies are
			// placed, so it ends up under its last prerequisite.
			ready := true
			for _, d := range dep.Deps {
				if !placed[d.ID] {
					ready = false
					break
				}
			}
			if ready {
				place(child, dep)
			}
		}
	}

	roots := make([]*dag.Node, 0)
	for _, node := range graph.Nodes {
		if len(node.Deps) == 0 {
			roots = append(roots, node)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	for _, root := range roots {
		place(tree, root)
	}
	// Nodes whose placement was deferred past every root pass (diamond
	// shapes) get a second sweep.
	for _, change := range p.Changes {
		if node, ok := graph.Nodes[change.NodeID]; ok && !placed[node.ID] {
			place(tree, node)
		}
	}

	var b strings.Builder
	b.WriteString(tree.String())
	b.WriteString(summaryLine(p.Summary()))
	b.WriteString("\n")
	return b.String()
}

func summaryLine(c Counts) string {
	if c.Delete > 0 {
		return fmt.Sprintf("Plan: %d to destroy.", c.Delete)
	}
	return fmt.Sprintf("Plan: %d to create, %d to update, %d to replace, %d unchanged.",
		c.Create, c.Update, c.Replace, c.NoOp)
}
