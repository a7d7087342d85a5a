package state

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := Open(fs, "microform.state.json")
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestCommitPersistsAcrossOpens(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := Open(fs, "state/microform.state.json")
	require.NoError(t, err)

	entry := &Entry{
		ID:           "ep-1",
		Fingerprint:  "abc123",
		Dependencies: []string{"resource.null_resource.ns"},
	}
	require.NoError(t, entry.SetOutputs(cty.ObjectVal(map[string]cty.Value{
		"name": cty.StringVal("events"),
	})))
	require.NoError(t, store.Commit("resource.routing_endpoint.events", entry))

	reopened, err := Open(fs, "state/microform.state.json")
	require.NoError(t, err)
	got, ok := reopened.Get("resource.routing_endpoint.events")
	require.True(t, ok)
	assert.Equal(t, "ep-1", got.ID)
	assert.Equal(t, "abc123", got.Fingerprint)
	assert.Equal(t, []string{"resource.null_resource.ns"}, got.Dependencies)
	assert.False(t, got.AppliedAt.IsZero())

	outputs, err := got.OutputsValue()
	require.NoError(t, err)
	assert.Equal(t, "events", outputs.GetAttr("name").AsString())
}

func TestDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := Open(fs, "microform.state.json")
	require.NoError(t, err)

	require.NoError(t, store.Commit("resource.null_resource.a", &Entry{ID: "a"}))
	require.NoError(t, store.Delete("resource.null_resource.a"))
	_, ok := store.Get("resource.null_resource.a")
	assert.False(t, ok)

	// Deleting a key that was never recorded is fine.
	require.NoError(t, store.Delete("resource.null_resource.never"))
}

func TestCorruptedFileIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "microform.state.json", []byte("{not json"), 0o644))

	_, err := Open(fs, "microform.state.json")
	var corrupted *StateCorruptedError
	require.ErrorAs(t, err, &corrupted)
	assert.Equal(t, "microform.state.json", corrupted.Path)
}

func TestUnsupportedVersionIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "microform.state.json",
		[]byte(`{"version": 99, "resources": {}}`), 0o644))

	_, err := Open(fs, "microform.state.json")
	var corrupted *StateCorruptedError
	require.ErrorAs(t, err, &corrupted)
}

func TestSerialIncrementsPerCommit(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := Open(fs, "microform.state.json")
	require.NoError(t, err)

	require.NoError(t, store.Commit("resource.null_resource.a", &Entry{ID: "a"}))
	require.NoError(t, store.Commit("resource.null_resource.b", &Entry{ID: "b"}))

	reopened, err := Open(fs, "microform.state.json")
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.snap.Serial)
}
