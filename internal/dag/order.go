package dag

// detectCycles checks for circular dependencies using depth-first search.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return &CyclicDependencyError{NodeID: dep.ID}
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.insertion {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalOrder returns every node ID with dependencies before
// dependents. Among nodes with no ordering relationship, declaration order
// wins, so the result is stable across runs of identical input.
func (g *Graph) TopologicalOrder() ([]string, error) {
	pending := make(map[string]int, len(g.Nodes))
	var ready []*Node
	for _, node := range g.insertion {
		pending[node.ID] = len(node.Deps)
		if len(node.Deps) == 0 {
			ready = append(ready, node)
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		// Pick the earliest-declared ready node. Linear scan is fine at the
		// graph sizes a single configuration produces.
		best := 0
		for i := 1; i < len(ready); i++ {
			if ready[i].seq < ready[best].seq {
				best = i
			}
		}
		node := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, node.ID)

		for _, dependent := range node.Dependents {
			pending[dependent.ID]--
			if pending[dependent.ID] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		// Every unordered node sits on a cycle; report the earliest one.
		for _, node := range g.insertion {
			if pending[node.ID] > 0 {
				return nil, &CyclicDependencyError{NodeID: node.ID}
			}
		}
	}
	return order, nil
}
