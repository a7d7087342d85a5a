package dag

import (
	"github.com/vk/microform/internal/config"
)

// Kind discriminates the two node flavors in the graph.
type Kind int

const (
	// ResourceNode is a managed resource with create/update/delete lifecycle.
	ResourceNode Kind = iota
	// DataNode is a read-only lookup resolved before any resource executes.
	DataNode
)

// Node is a single vertex: one declared resource or data source.
type Node struct {
	// ID is the unique node key, "resource.type.name" or "data.type.name".
	ID   string
	Kind Kind

	// Resource is set for ResourceNode, Data for DataNode.
	Resource *config.Resource
	Data     *config.DataSource

	// Deps holds predecessors, Dependents successors, both keyed by node ID.
	Deps       map[string]*Node
	Dependents map[string]*Node

	// seq is the declaration index, used as the ordering tie-break.
	seq int
}

// Graph is the full dependency graph of one run.
type Graph struct {
	Nodes map[string]*Node

	// insertion preserves declaration order for deterministic iteration.
	insertion []*Node
}

// NewGraph returns an initialized, empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

func (g *Graph) addNode(n *Node) {
	n.seq = len(g.insertion)
	n.Deps = make(map[string]*Node)
	n.Dependents = make(map[string]*Node)
	g.Nodes[n.ID] = n
	g.insertion = append(g.insertion, n)
}

// link records that `node` depends on `dep`. Linking twice is a no-op.
func (g *Graph) link(node, dep *Node) {
	if _, exists := node.Deps[dep.ID]; exists {
		return
	}
	node.Deps[dep.ID] = dep
	dep.Dependents[node.ID] = node
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Reverse returns a new graph with every edge flipped. Destroy walks the
// reversed state graph so dependents are removed before what they depend
// on.
func (g *Graph) Reverse() *Graph {
	reversed := NewGraph()
	for _, node := range g.insertion {
		reversed.addNode(&Node{
			ID:       node.ID,
			Kind:     node.Kind,
			Resource: node.Resource,
			Data:     node.Data,
		})
	}
	for _, node := range g.insertion {
		for _, dep := range node.Deps {
			reversed.link(reversed.Nodes[dep.ID], reversed.Nodes[node.ID])
		}
	}
	return reversed
}
