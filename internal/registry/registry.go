// Package registry holds the in-process handlers behind every resource and
// data source type. Modules register their handlers at startup; the
// executor looks them up by the type label used in configuration.
package registry

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/config"
)

// Module is the interface all built-in modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Instance is what a resource handler reports back after a successful
// create or update: the remote identifier and any computed outputs.
type Instance struct {
	ID      string
	Outputs cty.Value
}

// ResourceHandler implements the lifecycle of one resource type. Arguments
// arrive as a fully resolved cty object. Handlers are not interrupted once
// called; cancellation only prevents future calls.
type ResourceHandler struct {
	CreateFn func(ctx context.Context, args cty.Value) (*Instance, error)
	UpdateFn func(ctx context.Context, id string, args cty.Value) (*Instance, error)
	DeleteFn func(ctx context.Context, id string) error
}

// DataHandler implements a read-only lookup of one data source type.
type DataHandler struct {
	ReadFn func(ctx context.Context, args cty.Value) (cty.Value, error)
}

// Registry maps type labels to handlers for a single application instance.
type Registry struct {
	resources map[string]*ResourceHandler
	data      map[string]*DataHandler
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		resources: make(map[string]*ResourceHandler),
		data:      make(map[string]*DataHandler),
	}
}

// RegisterResource binds a resource type label to its handler. Registering
// the same label twice is a programmer error and panics.
func (r *Registry) RegisterResource(typeName string, h *ResourceHandler) {
	if _, exists := r.resources[typeName]; exists {
		panic(fmt.Sprintf("resource type %q registered twice", typeName))
	}
	r.resources[typeName] = h
}

// RegisterData binds a data source type label to its handler.
func (r *Registry) RegisterData(typeName string, h *DataHandler) {
	if _, exists := r.data[typeName]; exists {
		panic(fmt.Sprintf("data source type %q registered twice", typeName))
	}
	r.data[typeName] = h
}

// Resource looks up the handler for a resource type.
func (r *Registry) Resource(typeName string) (*ResourceHandler, bool) {
	h, ok := r.resources[typeName]
	return h, ok
}

// Data looks up the handler for a data source type.
func (r *Registry) Data(typeName string) (*DataHandler, bool) {
	h, ok := r.data[typeName]
	return h, ok
}

// Validate checks that every type used by the model has a complete handler.
// This runs before graph execution so a typo'd type label fails fast.
func (r *Registry) Validate(model *config.Model) error {
	for _, res := range model.Resources {
		h, ok := r.resources[res.Type]
		if !ok {
			return fmt.Errorf("no handler registered for resource type %q (declared at %s)", res.Type, res.DeclRange)
		}
		if h.CreateFn == nil || h.DeleteFn == nil {
			return fmt.Errorf("handler for resource type %q is incomplete", res.Type)
		}
	}
	for _, ds := range model.DataSources {
		h, ok := r.data[ds.Type]
		if !ok {
			return fmt.Errorf("no handler registered for data source type %q (declared at %s)", ds.Type, ds.DeclRange)
		}
		if h.ReadFn == nil {
			return fmt.Errorf("handler for data source type %q is incomplete", ds.Type)
		}
	}
	return nil
}
