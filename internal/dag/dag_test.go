package dag

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/microform/internal/config"
)

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "parse %q: %s", src, diags)
	return e
}

func res(t *testing.T, typ, name string, args map[string]string, dependsOn ...string) *config.Resource {
	t.Helper()
	r := &config.Resource{Type: typ, Name: name, DependsOn: dependsOn}
	if len(args) > 0 {
		r.Arguments = make(map[string]hcl.Expression, len(args))
		for k, v := range args {
			r.Arguments[k] = expr(t, v)
		}
	}
	return r
}

func TestBuildLinksImplicitReferences(t *testing.T) {
	model := &config.Model{
		Resources: []*config.Resource{
			res(t, "routing_endpoint", "events", nil),
			res(t, "routing_route", "telemetry", map[string]string{
				"endpoint_names": `[resource.routing_endpoint.events.name]`,
			}),
		},
	}

	graph, err := Build(context.Background(), model)
	require.NoError(t, err)
	require.Equal(t, 2, graph.Len())

	route := graph.Nodes["resource.routing_route.telemetry"]
	require.NotNil(t, route)
	assert.Contains(t, route.Deps, "resource.routing_endpoint.events")

	endpoint := graph.Nodes["resource.routing_endpoint.events"]
	assert.Contains(t, endpoint.Dependents, "resource.routing_route.telemetry")
}

func TestBuildLinksExplicitDependsOn(t *testing.T) {
	model := &config.Model{
		Resources: []*config.Resource{
			res(t, "routing_role_assignment", "sender", nil),
			res(t, "routing_route", "telemetry", nil, "routing_role_assignment.sender"),
		},
	}

	graph, err := Build(context.Background(), model)
	require.NoError(t, err)
	route := graph.Nodes["resource.routing_route.telemetry"]
	assert.Contains(t, route.Deps, "resource.routing_role_assignment.sender")
}

func TestBuildRejectsUnresolvedReference(t *testing.T) {
	t.Run("implicit", func(t *testing.T) {
		model := &config.Model{
			Resources: []*config.Resource{
				res(t, "routing_route", "telemetry", map[string]string{
					"endpoint_names": `[resource.routing_endpoint.missing.name]`,
				}),
			},
		}
		_, err := Build(context.Background(), model)
		var unresolved *UnresolvedReferenceError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "resource.routing_route.telemetry", unresolved.NodeID)
		assert.Equal(t, "resource.routing_endpoint.missing", unresolved.Reference)
	})

	t.Run("explicit", func(t *testing.T) {
		model := &config.Model{
			Resources: []*config.Resource{
				res(t, "null_resource", "a", nil, "null_resource.missing"),
			},
		}
		_, err := Build(context.Background(), model)
		var unresolved *UnresolvedReferenceError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, "null_resource.missing", unresolved.Reference)
	})
}

func TestBuildRejectsCycles(t *testing.T) {
	model := &config.Model{
		Resources: []*config.Resource{
			res(t, "null_resource", "a", map[string]string{"note": `resource.null_resource.b.id`}),
			res(t, "null_resource", "b", map[string]string{"note": `resource.null_resource.a.id`}),
		},
	}
	_, err := Build(context.Background(), model)
	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
}

func TestBuildRejectsSelfReference(t *testing.T) {
	model := &config.Model{
		Resources: []*config.Resource{
			res(t, "null_resource", "a", map[string]string{"note": `resource.null_resource.a.id`}),
		},
	}
	_, err := Build(context.Background(), model)
	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("dependencies precede dependents", func(t *testing.T) {
		model := &config.Model{
			Resources: []*config.Resource{
				res(t, "routing_route", "r", map[string]string{
					"endpoint_names": `[resource.routing_endpoint.e.name]`,
				}),
				res(t, "routing_endpoint", "e", map[string]string{
					"namespace": `resource.null_resource.ns.id`,
				}),
				res(t, "null_resource", "ns", nil),
			},
		}
		graph, err := Build(context.Background(), model)
		require.NoError(t, err)

		order, err := graph.TopologicalOrder()
		require.NoError(t, err)
		require.Equal(t, []string{
			"resource.null_resource.ns",
			"resource.routing_endpoint.e",
			"resource.routing_route.r",
		}, order)
	})

	t.Run("independent nodes keep declaration order", func(t *testing.T) {
		model := &config.Model{
			Resources: []*config.Resource{
				res(t, "null_resource", "c", nil),
				res(t, "null_resource", "a", nil),
				res(t, "null_resource", "b", nil),
			},
		}
		graph, err := Build(context.Background(), model)
		require.NoError(t, err)

		order, err := graph.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{
			"resource.null_resource.c",
			"resource.null_resource.a",
			"resource.null_resource.b",
		}, order)
	})
}

func TestFromState(t *testing.T) {
	graph := FromState(map[string][]string{
		"resource.routing_route.r":    {"resource.routing_endpoint.e"},
		"resource.routing_endpoint.e": nil,
		"resource.null_resource.gone": {"resource.not_in_state.x"},
	})

	require.Equal(t, 3, graph.Len())
	route := graph.Nodes["resource.routing_route.r"]
	assert.Contains(t, route.Deps, "resource.routing_endpoint.e")
	// Edges to keys absent from state are dropped.
	assert.Empty(t, graph.Nodes["resource.null_resource.gone"].Deps)
}
