package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"

	"github.com/vk/microform/internal/config"
	"github.com/vk/microform/internal/ctxlog"
)

// Loader reads HCL configuration from an afero filesystem. Injecting the
// filesystem lets tests run entirely against an in-memory tree.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a loader over the given filesystem.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load reads every .hcl file under the given paths (files or directories),
// decodes them, and returns the merged model. Block order follows file
// order, files sorted by path, so declaration order is deterministic.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.discover(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found under %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	parser := hclparse.NewParser()
	model := &config.Model{}
	seen := make(map[string]hcl.Range)

	for _, path := range files {
		src, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		file, diags := parser.ParseHCL(src, path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
		if err := decodeFile(file.Body, model, seen); err != nil {
			return nil, err
		}
		logger.Debug("Decoded configuration file.", "path", path)
	}

	logger.Debug("Configuration model assembled.",
		"resources", len(model.Resources),
		"data_sources", len(model.DataSources),
		"variables", len(model.Variables))
	return model, nil
}

// discover expands the given paths into a sorted list of .hcl files.
func (l *Loader) discover(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := l.fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		sub, err := l.walkDir(path)
		if err != nil {
			return nil, err
		}
		files = append(files, sub...)
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) walkDir(root string) ([]string, error) {
	var files []string
	entries, err := afero.ReadDir(l.fs, root)
	if err != nil {
		return nil, fmt.Errorf("reading config dir %s: %w", root, err)
	}
	for _, entry := range entries {
		full := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			sub, err := l.walkDir(full)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}
		if filepath.Ext(entry.Name()) == ".hcl" {
			files = append(files, full)
		}
	}
	return files, nil
}
