package app

import (
	"github.com/spf13/afero"

	"github.com/vk/microform/internal/registry"
	"github.com/vk/microform/modules/httpapi"
	"github.com/vk/microform/modules/localfile"
	"github.com/vk/microform/modules/null"
	"github.com/vk/microform/modules/routing"
)

// coreModules lists the built-in resource modules registered by default.
func coreModules(fs afero.Fs) []registry.Module {
	return []registry.Module{
		&null.Module{},
		localfile.NewModule(fs),
		routing.NewModule(),
		httpapi.NewModule(),
	}
}
