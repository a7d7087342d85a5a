// Package plan computes what an apply would do: one action per graph node,
// derived by fingerprinting desired arguments and comparing them with the
// recorded state. Plan computation performs data source reads but never
// touches a resource.
package plan

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Action is the operation the executor will take for one node.
type Action string

const (
	// Create provisions a resource with no state entry.
	Create Action = "create"
	// Update changes a resource in place.
	Update Action = "update"
	// Replace destroys and recreates a resource because a changed argument
	// is listed in replace_triggered_by.
	Replace Action = "replace"
	// NoOp leaves an unchanged resource alone.
	NoOp Action = "noop"
	// Delete removes a resource (destroy runs, and nothing else).
	Delete Action = "delete"
	// Read resolves a data source.
	Read Action = "read"
)

// Change is the planned action for one node.
type Change struct {
	NodeID string
	Action Action
	// ChangedArgs lists the argument names that differ from state, sorted.
	// Only set for Update and Replace.
	ChangedArgs []string
}

// Plan is the full set of changes for a run, in execution order.
type Plan struct {
	Changes []*Change
	byID    map[string]*Change
}

func newPlan() *Plan {
	return &Plan{byID: make(map[string]*Change)}
}

func (p *Plan) add(c *Change) {
	p.Changes = append(p.Changes, c)
	p.byID[c.NodeID] = c
}

// Change returns the planned change for a node ID.
func (p *Plan) Change(nodeID string) (*Change, bool) {
	c, ok := p.byID[nodeID]
	return c, ok
}

// Counts tallies changes per action.
type Counts struct {
	Create  int
	Update  int
	Replace int
	NoOp    int
	Delete  int
	Read    int
}

// Summary returns per-action tallies.
func (p *Plan) Summary() Counts {
	var c Counts
	for _, ch := range p.Changes {
		switch ch.Action {
		case Create:
			c.Create++
		case Update:
			c.Update++
		case Replace:
			c.Replace++
		case NoOp:
			c.NoOp++
		case Delete:
			c.Delete++
		case Read:
			c.Read++
		}
	}
	return c
}

// diffArgs compares desired arguments against the previously applied ones
// and returns the names that changed. An argument whose desired value is
// not yet known (it references a pending resource) counts as changed.
func diffArgs(desired, prior cty.Value) []string {
	changed := make(map[string]struct{})

	if desired.Type().IsObjectType() {
		for name := range desired.Type().AttributeTypes() {
			dv := desired.GetAttr(name)
			if !dv.IsWhollyKnown() {
				changed[name] = struct{}{}
				continue
			}
			if !prior.Type().IsObjectType() || !prior.Type().HasAttribute(name) {
				changed[name] = struct{}{}
				continue
			}
			if !dv.RawEquals(prior.GetAttr(name)) {
				changed[name] = struct{}{}
			}
		}
	}
	// Arguments removed from the configuration count as changes too.
	if prior.Type().IsObjectType() {
		for name := range prior.Type().AttributeTypes() {
			if !desired.Type().IsObjectType() || !desired.Type().HasAttribute(name) {
				changed[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(changed))
	for name := range changed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// classify decides between Update and Replace for a changed resource.
func classify(changed []string, replaceTriggeredBy []string) Action {
	for _, name := range changed {
		for _, trigger := range replaceTriggeredBy {
			if name == trigger {
				return Replace
			}
		}
	}
	return Update
}

// String renders a change the way the plan output shows it.
func (c *Change) String() string {
	switch c.Action {
	case Update, Replace:
		return fmt.Sprintf("%s %s (%v)", symbol(c.Action), c.NodeID, c.ChangedArgs)
	default:
		return fmt.Sprintf("%s %s", symbol(c.Action), c.NodeID)
	}
}

func symbol(a Action) string {
	switch a {
	case Create:
		return "+"
	case Update:
		return "~"
	case Replace:
		return "+/-"
	case Delete:
		return "-"
	case Read:
		return "<="
	default:
		return "."
	}
}
