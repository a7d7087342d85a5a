// Package eval holds the run scope: resolved variable values plus the
// object values of every resolved resource and data source. The scope
// renders into an hcl.EvalContext so argument expressions can reference
// var.*, resource.*, and data.* the way blocks reference each other.
package eval

import (
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Scope is safe for concurrent use; the executor's workers publish resolved
// nodes while others evaluate.
type Scope struct {
	mu        sync.RWMutex
	variables map[string]cty.Value
	resources map[string]cty.Value
	data      map[string]cty.Value
}

// NewScope creates a scope with the given variable values.
func NewScope(variables map[string]cty.Value) *Scope {
	return &Scope{
		variables: variables,
		resources: make(map[string]cty.Value),
		data:      make(map[string]cty.Value),
	}
}

// SetResource publishes the object value of a resolved resource under its
// "type.name" address.
func (s *Scope) SetResource(addr string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[addr] = v
}

// SetData publishes the result of a data source read.
func (s *Scope) SetData(addr string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[addr] = v
}

// Resource returns the published value for a resource address, if any.
func (s *Scope) Resource(addr string) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.resources[addr]
	return v, ok
}

// HCLContext renders the scope as an evaluation context. The context is a
// snapshot; build a fresh one after publishing new values.
func (s *Scope) HCLContext() *hcl.EvalContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vars := map[string]cty.Value{
		"resource": nestedObject(s.resources),
		"data":     nestedObject(s.data),
	}
	if len(s.variables) > 0 {
		vars["var"] = cty.ObjectVal(s.variables)
	} else {
		vars["var"] = cty.EmptyObjectVal
	}
	return &hcl.EvalContext{Variables: vars}
}

// nestedObject turns a flat "type.name" map into the two-level object shape
// the reference syntax expects.
func nestedObject(flat map[string]cty.Value) cty.Value {
	if len(flat) == 0 {
		return cty.EmptyObjectVal
	}
	byType := make(map[string]map[string]cty.Value)
	for addr, v := range flat {
		for i := 0; i < len(addr); i++ {
			if addr[i] == '.' {
				typeName, name := addr[:i], addr[i+1:]
				if byType[typeName] == nil {
					byType[typeName] = make(map[string]cty.Value)
				}
				byType[typeName][name] = v
				break
			}
		}
	}
	outer := make(map[string]cty.Value, len(byType))
	for typeName, names := range byType {
		outer[typeName] = cty.ObjectVal(names)
	}
	return cty.ObjectVal(outer)
}

// EvaluateArgs resolves every argument expression into one object value,
// attribute per argument. Unknown values are allowed; callers that need
// fully known values check afterwards.
func EvaluateArgs(args map[string]hcl.Expression, evalCtx *hcl.EvalContext) (cty.Value, error) {
	if len(args) == 0 {
		return cty.EmptyObjectVal, nil
	}
	attrs := make(map[string]cty.Value, len(args))
	for name, expr := range args {
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("evaluating argument %q: %w", name, diags)
		}
		attrs[name] = v
	}
	return cty.ObjectVal(attrs), nil
}
