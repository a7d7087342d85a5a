package dag

import "fmt"

// CyclicDependencyError is returned when the declared references form a
// cycle. No ordering exists for such a graph.
type CyclicDependencyError struct {
	NodeID string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected involving %s", e.NodeID)
}

// UnresolvedReferenceError is returned when a node references a declaration
// that is absent from the configuration.
type UnresolvedReferenceError struct {
	NodeID    string
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s references %s, which is not declared", e.NodeID, e.Reference)
}
