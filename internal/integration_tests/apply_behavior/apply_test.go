package apply_behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/microform/internal/testutil"
	"github.com/vk/microform/modules/routing"
)

func TestApplyIsIdempotent(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "base" {
  name = "base"
}

resource "test_thing" "child" {
  name       = "child"
  depends_on = [test_thing.base]
}
`,
	}, rec)

	_, err := h.Apply()
	require.NoError(t, err)
	assert.Equal(t, []string{"create base", "create child"}, rec.Calls())
	assert.Equal(t, 2, h.State().Len())

	// Unchanged configuration plans and applies as pure no-ops.
	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "Plan: 0 to create, 0 to update, 0 to replace, 2 unchanged.")

	_, err = h.Apply()
	require.NoError(t, err)
	assert.Equal(t, []string{"create base", "create child"}, rec.Calls())
}

func TestChangedArgumentUpdatesInPlace(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "base" {
  name  = "base"
  label = "v1"
}
`,
	}, rec)

	_, err := h.Apply()
	require.NoError(t, err)

	h.WriteConfig("main.hcl", `
resource "test_thing" "base" {
  name  = "base"
  label = "v2"
}
`)
	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "~ resource.test_thing.base ([label])")

	_, err = h.Apply()
	require.NoError(t, err)
	assert.Equal(t, []string{"create base", "update base"}, rec.Calls())
}

func TestReplaceTriggeredByRecreates(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "pinned" {
  name = "pinned"
  zone = "a"

  lifecycle {
    replace_triggered_by = ["zone"]
  }
}

resource "test_thing" "sibling" {
  name = "sibling"
}
`,
	}, rec)

	_, err := h.Apply()
	require.NoError(t, err)

	h.WriteConfig("main.hcl", `
resource "test_thing" "pinned" {
  name = "pinned"
  zone = "b"

  lifecycle {
    replace_triggered_by = ["zone"]
  }
}

resource "test_thing" "sibling" {
  name = "sibling"
}
`)
	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "+/- resource.test_thing.pinned ([zone])")
	assert.Contains(t, out, ". resource.test_thing.sibling")

	_, err = h.Apply()
	require.NoError(t, err)

	calls := rec.Calls()
	// The pinned resource was deleted and recreated; the sibling was not
	// touched after its initial create.
	assert.Contains(t, calls, "delete pinned-1")
	assert.Equal(t, "create pinned", calls[len(calls)-1])
	assert.Equal(t, 1, countCalls(calls, "create sibling"))
}

func TestOutputsFlowIntoDependents(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "base" {
  name = "base"
}

resource "test_thing" "child" {
  name = "child-of-${resource.test_thing.base.id}"
}
`,
	}, rec)

	_, err := h.Apply()
	require.NoError(t, err)
	assert.Equal(t, []string{"create base", "create child-of-base-1"}, rec.Calls())
}

func TestRoutingFabricEndToEnd(t *testing.T) {
	mod := routing.NewModule()
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "routing_endpoint" "alerts" {
  name        = "alerts"
  entity_path = "telemetry"
  auth_mode   = "identityBased"
}

resource "routing_role_assignment" "sender" {
  principal_id         = "device-fleet"
  role_definition_name = "sender"
  scope                = resource.routing_endpoint.alerts.name
}

resource "routing_route" "critical" {
  name           = "critical"
  source         = "DeviceMessages"
  condition      = "level = \"critical\""
  endpoint_names = [resource.routing_endpoint.alerts.name]
  depends_on     = [routing_role_assignment.sender]
}
`,
	}, mod)

	_, err := h.Apply()
	require.NoError(t, err)
	assert.Equal(t, 3, h.State().Len())

	ep, ok := mod.Fabric().EndpointByName("alerts")
	require.True(t, ok)
	assert.Equal(t, routing.AuthModeIdentity, ep.AuthMode)

	targets := mod.Fabric().RouteMessage("DeviceMessages", map[string]string{"level": "critical"})
	assert.Equal(t, []string{"alerts"}, targets)
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}
