package eval

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func parse(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func TestScopeReferences(t *testing.T) {
	scope := NewScope(map[string]cty.Value{"env": cty.StringVal("prod")})
	scope.SetResource("routing_endpoint.events", cty.ObjectVal(map[string]cty.Value{
		"id":   cty.StringVal("ep-1"),
		"name": cty.StringVal("events"),
	}))
	scope.SetData("external_namespace.hub", cty.ObjectVal(map[string]cty.Value{
		"uri": cty.StringVal("sb://hub"),
	}))

	args := map[string]hcl.Expression{
		"endpoint":  parse(t, "resource.routing_endpoint.events.id"),
		"namespace": parse(t, "data.external_namespace.hub.uri"),
		"label":     parse(t, `"${var.env}-route"`),
	}
	got, err := EvaluateArgs(args, scope.HCLContext())
	require.NoError(t, err)
	assert.Equal(t, "ep-1", got.GetAttr("endpoint").AsString())
	assert.Equal(t, "sb://hub", got.GetAttr("namespace").AsString())
	assert.Equal(t, "prod-route", got.GetAttr("label").AsString())
}

func TestUnknownResourceAttributesPropagate(t *testing.T) {
	scope := NewScope(nil)
	scope.SetResource("routing_endpoint.pending", cty.DynamicVal)

	got, err := EvaluateArgs(map[string]hcl.Expression{
		"endpoint": parse(t, "resource.routing_endpoint.pending.id"),
	}, scope.HCLContext())
	require.NoError(t, err)
	assert.False(t, got.GetAttr("endpoint").IsKnown())
}

func TestEvaluateArgsErrorNamesArgument(t *testing.T) {
	scope := NewScope(nil)
	_, err := EvaluateArgs(map[string]hcl.Expression{
		"endpoint": parse(t, "resource.routing_endpoint.absent.id"),
	}, scope.HCLContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `argument "endpoint"`)
}

func TestGoValue(t *testing.T) {
	v := cty.ObjectVal(map[string]cty.Value{
		"name":    cty.StringVal("events"),
		"count":   cty.NumberIntVal(2),
		"enabled": cty.True,
		"tags":    cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
	})
	got, err := GoValue(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "events",
		"count":   float64(2),
		"enabled": true,
		"tags":    []any{"a", "b"},
	}, got)
}
