package error_handling_test

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/microform/internal/testutil"
)

func TestFailedNodeSkipsOnlyItsDependents(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	rec.FailCreateFor["doomed"] = errors.New("simulated provider outage")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "doomed" {
  name = "doomed"
}

resource "test_thing" "dependent" {
  name       = "dependent"
  depends_on = [test_thing.doomed]
}

resource "test_thing" "independent" {
  name = "independent"
}
`,
	}, rec)

	_, err := h.Apply()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource.test_thing.doomed")
	assert.Contains(t, err.Error(), "simulated provider outage")

	calls := rec.Calls()
	assert.Contains(t, calls, "fail doomed")
	assert.Contains(t, calls, "create independent")
	assert.NotContains(t, calls, "create dependent")

	// The independent branch committed its state; the failed branch did not.
	st := h.State()
	_, ok := st.Get("resource.test_thing.independent")
	assert.True(t, ok)
	_, ok = st.Get("resource.test_thing.doomed")
	assert.False(t, ok)
	_, ok = st.Get("resource.test_thing.dependent")
	assert.False(t, ok)
}

func TestCyclicDependencyDetectedBeforeExecution(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "a" {
  name       = "a"
  depends_on = [test_thing.b]
}

resource "test_thing" "b" {
  name       = "b"
  depends_on = [test_thing.a]
}
`,
	}, rec)

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic dependency")
	assert.Empty(t, rec.Calls())
}

func TestUnresolvedReferenceFailsFast(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "orphan" {
  name = "child-${resource.test_thing.missing.id}"
}
`,
	}, rec)

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_thing.missing")
	assert.Contains(t, err.Error(), "not declared")
	assert.Empty(t, rec.Calls())
}

func TestUnregisteredResourceTypeRejected(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "mystery_box" "x" {
  name = "x"
}
`,
	}, rec)

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mystery_box"`)
}

func TestCorruptedStateFileIsFatal(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"main.hcl": `
resource "test_thing" "base" {
  name = "base"
}
`,
	}, rec)
	require.NoError(t, h.FS.MkdirAll("run", 0o755))
	require.NoError(t, afero.WriteFile(h.FS, h.StatePath, []byte("{not json"), 0o644))

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupted")
	assert.Empty(t, rec.Calls())
}

func TestDuplicateResourceAddressRejected(t *testing.T) {
	rec := testutil.NewRecorderModule("test_thing")
	h := testutil.NewHarness(t, map[string]string{
		"a.hcl": `
resource "test_thing" "base" {
  name = "base"
}
`,
		"b.hcl": `
resource "test_thing" "base" {
  name = "other"
}
`,
	}, rec)

	_, err := h.Plan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_thing")
	assert.Contains(t, err.Error(), "base")
}
