// Package httpapi provides the httpapi_object type: an object managed on a
// remote HTTP API with PUT/DELETE semantics. The object's full URL is its
// identity, so destroy works from state alone.
package httpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/eval"
	"github.com/vk/microform/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	client *resty.Client
}

// NewModule creates the module with a default HTTP client.
func NewModule() *Module {
	return NewModuleWithClient(resty.New().SetTimeout(30 * time.Second))
}

// NewModuleWithClient creates the module against a caller-supplied client.
func NewModuleWithClient(client *resty.Client) *Module {
	return &Module{client: client}
}

// Register registers the httpapi_object handler.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterResource("httpapi_object", &registry.ResourceHandler{
		CreateFn: m.create,
		UpdateFn: m.update,
		DeleteFn: m.delete,
	})
}

func (m *Module) create(ctx context.Context, args cty.Value) (*registry.Instance, error) {
	endpoint, body, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(endpoint, "/") + "/" + uuid.NewString()
	if err := m.put(ctx, url, body); err != nil {
		return nil, err
	}
	return &registry.Instance{
		ID:      url,
		Outputs: cty.ObjectVal(map[string]cty.Value{"url": cty.StringVal(url)}),
	}, nil
}

func (m *Module) update(ctx context.Context, id string, args cty.Value) (*registry.Instance, error) {
	_, body, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	if err := m.put(ctx, id, body); err != nil {
		return nil, err
	}
	return &registry.Instance{
		ID:      id,
		Outputs: cty.ObjectVal(map[string]cty.Value{"url": cty.StringVal(id)}),
	}, nil
}

func (m *Module) delete(ctx context.Context, id string) error {
	resp, err := m.client.R().SetContext(ctx).Delete(id)
	if err != nil {
		return fmt.Errorf("DELETE %s: %w", id, err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("DELETE %s: unexpected status %s", id, resp.Status())
	}
	return nil
}

func (m *Module) put(ctx context.Context, url string, body any) error {
	req := m.client.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Put(url)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("PUT %s: unexpected status %s", url, resp.Status())
	}
	return nil
}

func decodeArgs(args cty.Value) (endpoint string, body any, err error) {
	ty := args.Type()
	if !ty.IsObjectType() || !ty.HasAttribute("endpoint") {
		return "", nil, fmt.Errorf("httpapi_object requires an endpoint argument")
	}
	endpoint = args.GetAttr("endpoint").AsString()

	if ty.HasAttribute("payload") {
		payload := args.GetAttr("payload")
		if !payload.IsNull() {
			body, err = eval.GoValue(payload)
			if err != nil {
				return "", nil, fmt.Errorf("encoding payload: %w", err)
			}
		}
	}
	return endpoint, body, nil
}
