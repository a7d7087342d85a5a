package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of the entire
// configuration: every declared resource, data source, and input variable.
// Declaration order is preserved; the resolver uses it as a tie-break.
type Model struct {
	Resources   []*Resource
	DataSources []*DataSource
	Variables   []*Variable
}

// Resource is the format-agnostic representation of a `resource` block.
type Resource struct {
	Type      string
	Name      string
	Arguments map[string]hcl.Expression
	DependsOn []string
	Lifecycle *Lifecycle
	DeclRange hcl.Range
}

// Addr returns the "type.name" address used in references and state keys.
func (r *Resource) Addr() string {
	return r.Type + "." + r.Name
}

// Lifecycle holds the per-resource lifecycle policy. ReplaceTriggeredBy
// lists argument names whose change forces a destroy-and-recreate instead
// of an in-place update.
type Lifecycle struct {
	ReplaceTriggeredBy []string
}

// DataSource is the format-agnostic representation of a `data` block: a
// read-only lookup of something that exists outside this run.
type DataSource struct {
	Type      string
	Name      string
	Arguments map[string]hcl.Expression
	DeclRange hcl.Range
}

// Addr returns the "type.name" address of the data source.
func (d *DataSource) Addr() string {
	return d.Type + "." + d.Name
}

// Variable is the format-agnostic representation of a `variable` block.
// A variable with no default is required input.
type Variable struct {
	Name        string
	Type        cty.Type
	Default     *cty.Value
	Description string
	DeclRange   hcl.Range
}
