// Package localfile provides the local_file resource type: a file on the
// local filesystem whose content is managed declaratively. The file path is
// the resource identity, so moving a file means replacing it.
package localfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/microform/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	fs afero.Fs
}

// NewModule creates the module against the given filesystem.
func NewModule(fs afero.Fs) *Module {
	return &Module{fs: fs}
}

// Register registers the local_file handler.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterResource("local_file", &registry.ResourceHandler{
		CreateFn: m.create,
		UpdateFn: m.update,
		DeleteFn: m.delete,
	})
}

func (m *Module) create(ctx context.Context, args cty.Value) (*registry.Instance, error) {
	filename, content, perm, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	if err := m.write(filename, content, perm); err != nil {
		return nil, err
	}
	return &registry.Instance{ID: filename}, nil
}

func (m *Module) update(ctx context.Context, id string, args cty.Value) (*registry.Instance, error) {
	filename, content, perm, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	if err := m.write(filename, content, perm); err != nil {
		return nil, err
	}
	// A changed filename moves the resource; the old file goes away.
	if id != "" && id != filename {
		if err := m.fs.Remove(id); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing previous file %s: %w", id, err)
		}
	}
	return &registry.Instance{ID: filename}, nil
}

func (m *Module) delete(ctx context.Context, id string) error {
	if err := m.fs.Remove(id); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file %s: %w", id, err)
	}
	return nil
}

func (m *Module) write(filename, content string, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(m.fs, filename, []byte(content), perm); err != nil {
		return fmt.Errorf("writing file %s: %w", filename, err)
	}
	return nil
}

func decodeArgs(args cty.Value) (filename, content string, perm os.FileMode, err error) {
	ty := args.Type()
	if !ty.IsObjectType() || !ty.HasAttribute("filename") {
		return "", "", 0, fmt.Errorf("local_file requires a filename argument")
	}
	filename = args.GetAttr("filename").AsString()

	if ty.HasAttribute("content") {
		content = args.GetAttr("content").AsString()
	}

	perm = 0o644
	if ty.HasAttribute("file_permission") {
		raw := args.GetAttr("file_permission").AsString()
		parsed, perr := strconv.ParseUint(raw, 8, 32)
		if perr != nil {
			return "", "", 0, fmt.Errorf("invalid file_permission %q: %w", raw, perr)
		}
		perm = os.FileMode(parsed)
	}
	return filename, content, perm, nil
}
