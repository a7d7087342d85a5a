package hcl

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFiles(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestLoadMergesFilesInPathOrder(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"config/b_second.hcl": `
resource "test_thing" "second" {
  name = "second"
}
`,
		"config/a_first.hcl": `
variable "environment" {
  type    = string
  default = "staging"
}

resource "test_thing" "first" {
  name       = "first"
  depends_on = [test_thing.second]

  lifecycle {
    replace_triggered_by = ["name"]
  }
}
`,
	})

	model, err := NewLoader(fs).Load(context.Background(), "config")
	require.NoError(t, err)

	require.Len(t, model.Resources, 2)
	assert.Equal(t, "first", model.Resources[0].Name)
	assert.Equal(t, "second", model.Resources[1].Name)
	assert.Equal(t, []string{"test_thing.second"}, model.Resources[0].DependsOn)
	require.NotNil(t, model.Resources[0].Lifecycle)
	assert.Equal(t, []string{"name"}, model.Resources[0].Lifecycle.ReplaceTriggeredBy)

	require.Len(t, model.Variables, 1)
	v := model.Variables[0]
	assert.Equal(t, "environment", v.Name)
	assert.Equal(t, cty.String, v.Type)
	require.NotNil(t, v.Default)
	assert.Equal(t, "staging", v.Default.AsString())
}

func TestLoadDecodesDataBlocks(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"main.hcl": `
data "external_namespace" "hub" {
  name = "iot-hub"
}
`,
	})

	model, err := NewLoader(fs).Load(context.Background(), "main.hcl")
	require.NoError(t, err)
	require.Len(t, model.DataSources, 1)
	assert.Equal(t, "external_namespace.hub", model.DataSources[0].Addr())
	assert.Contains(t, model.DataSources[0].Arguments, "name")
}

func TestLoadRejectsDuplicateAddresses(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"a.hcl": `
resource "test_thing" "dup" {
  name = "one"
}
`,
		"b.hcl": `
resource "test_thing" "dup" {
  name = "two"
}
`,
	})

	_, err := NewLoader(fs).Load(context.Background(), "a.hcl", "b.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate declaration of resource.test_thing.dup")
}

func TestLoadRejectsMalformedDependsOn(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"main.hcl": `
resource "test_thing" "x" {
  depends_on = ["test_thing.y"]
}
`,
	})

	_, err := NewLoader(fs).Load(context.Background(), "main.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends_on")
}

func TestLoadErrorsWhenNoFilesFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("empty", 0o755))

	_, err := NewLoader(fs).Load(context.Background(), "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .hcl files")
}
