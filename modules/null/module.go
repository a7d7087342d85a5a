// Package null provides the null_resource type: a resource with no remote
// object. It is useful as a synchronization point in the graph and for
// exercising lifecycle behavior in configurations and tests.
package null

import (
	"context"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the null_resource handler.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterResource("null_resource", &registry.ResourceHandler{
		CreateFn: func(ctx context.Context, args cty.Value) (*registry.Instance, error) {
			return &registry.Instance{ID: uuid.NewString()}, nil
		},
		UpdateFn: func(ctx context.Context, id string, args cty.Value) (*registry.Instance, error) {
			return &registry.Instance{ID: id}, nil
		},
		DeleteFn: func(ctx context.Context, id string) error {
			return nil
		},
	})
}
