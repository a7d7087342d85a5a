// Package routing provides the message routing resource types backed by an
// in-memory fabric: routing_endpoint, routing_role_assignment, and
// routing_route. The fabric enforces the cross-resource rules, so the graph
// has to order role assignments before routes that need them.
package routing

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/registry"
)

// Module implements the registry.Module interface for this package. All
// three resource types share one fabric instance.
type Module struct {
	fabric *Fabric
}

// NewModule creates the module with a fresh fabric.
func NewModule() *Module {
	return &Module{fabric: NewFabric()}
}

// Fabric exposes the underlying fabric for tests and diagnostics.
func (m *Module) Fabric() *Fabric {
	return m.fabric
}

// Register registers all routing resource handlers.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterResource("routing_endpoint", &registry.ResourceHandler{
		CreateFn: m.createEndpoint,
		UpdateFn: m.updateEndpoint,
		DeleteFn: func(ctx context.Context, id string) error {
			return m.fabric.DeleteEndpoint(id)
		},
	})
	r.RegisterResource("routing_role_assignment", &registry.ResourceHandler{
		CreateFn: m.createAssignment,
		DeleteFn: func(ctx context.Context, id string) error {
			return m.fabric.DeleteAssignment(id)
		},
	})
	r.RegisterResource("routing_route", &registry.ResourceHandler{
		CreateFn: m.createRoute,
		DeleteFn: func(ctx context.Context, id string) error {
			return m.fabric.DeleteRoute(id)
		},
	})
}

func (m *Module) createEndpoint(ctx context.Context, args cty.Value) (*registry.Instance, error) {
	ep, err := decodeEndpoint(args)
	if err != nil {
		return nil, err
	}
	created, err := m.fabric.CreateEndpoint(ep)
	if err != nil {
		return nil, err
	}
	return &registry.Instance{ID: created.ID, Outputs: endpointOutputs(created)}, nil
}

func (m *Module) updateEndpoint(ctx context.Context, id string, args cty.Value) (*registry.Instance, error) {
	ep, err := decodeEndpoint(args)
	if err != nil {
		return nil, err
	}
	updated, err := m.fabric.UpdateEndpoint(id, ep)
	if err != nil {
		return nil, err
	}
	return &registry.Instance{ID: updated.ID, Outputs: endpointOutputs(updated)}, nil
}

func (m *Module) createAssignment(ctx context.Context, args cty.Value) (*registry.Instance, error) {
	as := Assignment{
		PrincipalID: stringAttr(args, "principal_id"),
		Role:        stringAttr(args, "role_definition_name"),
		Scope:       stringAttr(args, "scope"),
	}
	created, err := m.fabric.CreateAssignment(as)
	if err != nil {
		return nil, err
	}
	return &registry.Instance{ID: created.ID}, nil
}

func (m *Module) createRoute(ctx context.Context, args cty.Value) (*registry.Instance, error) {
	route := Route{
		Name:      stringAttr(args, "name"),
		Source:    stringAttr(args, "source"),
		Condition: stringAttr(args, "condition"),
	}
	names, err := stringListAttr(args, "endpoint_names")
	if err != nil {
		return nil, err
	}
	route.EndpointNames = names

	created, err := m.fabric.CreateRoute(route)
	if err != nil {
		return nil, err
	}
	return &registry.Instance{ID: created.ID}, nil
}

func decodeEndpoint(args cty.Value) (Endpoint, error) {
	ep := Endpoint{
		Name:             stringAttr(args, "name"),
		EntityPath:       stringAttr(args, "entity_path"),
		AuthMode:         stringAttr(args, "auth_mode"),
		ConnectionString: stringAttr(args, "connection_string"),
	}
	if ep.Name == "" {
		return Endpoint{}, fmt.Errorf("routing_endpoint requires a name argument")
	}
	return ep, nil
}

func endpointOutputs(ep *Endpoint) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"name":      cty.StringVal(ep.Name),
		"auth_mode": cty.StringVal(ep.AuthMode),
	})
}

func stringAttr(args cty.Value, name string) string {
	if !args.Type().IsObjectType() || !args.Type().HasAttribute(name) {
		return ""
	}
	v := args.GetAttr(name)
	if v.IsNull() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}

func stringListAttr(args cty.Value, name string) ([]string, error) {
	if !args.Type().IsObjectType() || !args.Type().HasAttribute(name) {
		return nil, nil
	}
	v := args.GetAttr(name)
	if v.IsNull() {
		return nil, nil
	}
	if !v.CanIterateElements() {
		return nil, fmt.Errorf("argument %q must be a list of strings", name)
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String || elem.IsNull() {
			return nil, fmt.Errorf("argument %q must be a list of strings", name)
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}
