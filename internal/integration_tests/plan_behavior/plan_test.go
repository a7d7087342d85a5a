package plan_behavior_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/testutil"
)

func TestInitialPlanCreatesEverything(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "base" {
  name = "base"
}

resource "test_thing" "child" {
  name = "child-${resource.test_thing.base.id}"
}
`,
	}, rec)

	out, err := h.Plan()
	require.NoError(t, err)

	assert.Contains(t, out, "+ resource.test_thing.base")
	assert.Contains(t, out, "+ resource.test_thing.child")
	assert.Contains(t, out, "Plan: 2 to create, 0 to update, 0 to replace, 0 unchanged.")

	// Planning touches nothing: no handler calls, no state file.
	assert.Empty(t, rec.Calls())
	exists, err := afero.Exists(h.FS, h.StatePath)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPlanMissingVariableAborts(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
variable "environment" {
  type = string
}

resource "test_thing" "base" {
  name = "thing-${var.environment}"
}
`,
	}, rec)

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required variable "environment"`)
	assert.Empty(t, rec.Calls())
}

func TestPlanInterpolatesSuppliedVariables(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
variable "environment" {
  type    = string
  default = "staging"
}

resource "test_thing" "base" {
  name = "thing-${var.environment}"
}
`,
	}, rec)
	h.Vars = map[string]string{"environment": "production"}

	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "Plan: 1 to create")

	// Apply confirms the supplied value won over the default.
	_, err = h.Apply()
	require.NoError(t, err)
	assert.Equal(t, []string{"create thing-production"}, rec.Calls())
}

func TestPlanReadsDataSources(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	data := &testutil.StaticDataModule{
		TypeName: "test_lookup",
		Value: cty.ObjectVal(map[string]cty.Value{
			"uri": cty.StringVal("sb://namespace"),
		}),
	}
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
data "test_lookup" "ns" {
  name = "namespace"
}

resource "test_thing" "base" {
  name = "thing-${data.test_lookup.ns.uri}"
}
`,
	}, rec, data)

	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "<= data.test_lookup.ns")
	assert.Contains(t, out, "+ resource.test_thing.base")
	assert.Empty(t, rec.Calls())
}

func TestPlanAcrossMultipleFiles(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"base.hcl": `
resource "test_thing" "base" {
  name = "base"
}
`,
		"child.hcl": `
resource "test_thing" "child" {
  name       = "child"
  depends_on = [test_thing.base]
}
`,
	}, rec)

	out, err := h.Plan()
	require.NoError(t, err)
	assert.Contains(t, out, "Plan: 2 to create")
}
