package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/registry"
)

// RecorderModule registers a resource type whose lifecycle calls are
// recorded in order. Instances are named after their "name" argument so
// assertions stay readable.
type RecorderModule struct {
	TypeName string

	// FailCreateFor makes CreateFn fail for instances with these names.
	FailCreateFor map[string]error

	mu     sync.Mutex
	calls  []string
	nextID int
}

// NewRecorderModule creates a recorder for one resource type.
func NewRecorderModule(typeName string) *RecorderModule {
	return &RecorderModule{TypeName: typeName, FailCreateFor: make(map[string]error)}
}

// Calls returns a copy of the recorded lifecycle calls.
func (m *RecorderModule) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *RecorderModule) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Register implements registry.Module.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterResource(m.TypeName, &registry.ResourceHandler{
		CreateFn: func(ctx context.Context, args cty.Value) (*registry.Instance, error) {
			name := nameOf(args)
			if err, ok := m.FailCreateFor[name]; ok {
				m.record("fail " + name)
				return nil, err
			}
			m.record("create " + name)
			m.mu.Lock()
			m.nextID++
			id := fmt.Sprintf("%s-%d", name, m.nextID)
			m.mu.Unlock()
			return &registry.Instance{ID: id}, nil
		},
		UpdateFn: func(ctx context.Context, id string, args cty.Value) (*registry.Instance, error) {
			m.record("update " + nameOf(args))
			return &registry.Instance{ID: id}, nil
		},
		DeleteFn: func(ctx context.Context, id string) error {
			m.record("delete " + id)
			return nil
		},
	})
}

func nameOf(args cty.Value) string {
	if args.Type().IsObjectType() && args.Type().HasAttribute("name") {
		v := args.GetAttr("name")
		if !v.IsNull() && v.Type() == cty.String {
			return v.AsString()
		}
	}
	return "unnamed"
}

// StaticDataModule registers a data source type returning a fixed object.
type StaticDataModule struct {
	TypeName string
	Value    cty.Value
}

// Register implements registry.Module.
func (m *StaticDataModule) Register(r *registry.Registry) {
	r.RegisterData(m.TypeName, &registry.DataHandler{
		ReadFn: func(ctx context.Context, args cty.Value) (cty.Value, error) {
			return m.Value, nil
		},
	})
}
