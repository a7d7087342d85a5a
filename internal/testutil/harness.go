// Package testutil provides the integration test harness: an in-memory
// filesystem seeded with .hcl fixtures, log capture, and one fresh App per
// command so consecutive runs share nothing but the state file.
package testutil

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/vk/microform/internal/app"
	"github.com/vk/microform/internal/registry"
	"github.com/vk/microform/internal/state"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness drives plan/apply/destroy against fixture configuration. The
// filesystem and state path persist across calls; the App does not.
type Harness struct {
	T  *testing.T
	FS afero.Fs

	ConfigDir string
	StatePath string
	Vars      map[string]string
	Workers   int
	Modules   []registry.Module

	Logs *SafeBuffer
}

// NewHarness writes the fixture files into a fresh in-memory filesystem.
// File names are relative to the config directory. Modules left empty means
// the built-in set.
func NewHarness(t *testing.T, files map[string]string, modules ...registry.Module) *Harness {
	t.Helper()

	fs := afero.NewMemMapFs()
	configDir := "config"
	require.NoError(t, fs.MkdirAll(configDir, 0o755))
	for name, content := range files {
		path := filepath.Join(configDir, name)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	return &Harness{
		T:         t,
		FS:        fs,
		ConfigDir: configDir,
		StatePath: "run/state.json",
		Workers:   4,
		Modules:   modules,
		Logs:      &SafeBuffer{},
	}
}

// Plan runs the plan command and returns its rendered output.
func (h *Harness) Plan() (string, error) {
	var out bytes.Buffer
	err := h.newApp(&out).Plan(context.Background())
	return out.String(), err
}

// Apply runs the apply command and returns its rendered output.
func (h *Harness) Apply() (string, error) {
	var out bytes.Buffer
	err := h.newApp(&out).Apply(context.Background())
	return out.String(), err
}

// Destroy runs the destroy command and returns its rendered output.
func (h *Harness) Destroy() (string, error) {
	var out bytes.Buffer
	err := h.newApp(&out).Destroy(context.Background())
	return out.String(), err
}

// State opens a fresh view of the state file as it is on disk.
func (h *Harness) State() *state.Store {
	h.T.Helper()
	st, err := state.Open(h.FS, h.StatePath)
	require.NoError(h.T, err)
	return st
}

// WriteConfig replaces one fixture file, simulating an edit between runs.
func (h *Harness) WriteConfig(name, content string) {
	h.T.Helper()
	path := filepath.Join(h.ConfigDir, name)
	require.NoError(h.T, afero.WriteFile(h.FS, path, []byte(content), 0o644))
}

func (h *Harness) newApp(out *bytes.Buffer) *app.App {
	h.T.Helper()
	config, err := app.NewConfig(app.Config{
		ConfigPath: h.ConfigDir,
		StatePath:  h.StatePath,
		Vars:       h.Vars,
		Workers:    h.Workers,
		LogLevel:   "debug",
		LogFormat:  "text",
	})
	require.NoError(h.T, err)
	return app.NewApp(out, h.Logs, h.FS, config, h.Modules...)
}
