package app

import (
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/modules/concat"
	"github.com/specialistvlad/assetgrid/modules/esbuild"
	"github.com/specialistvlad/assetgrid/modules/precompress"
	"github.com/specialistvlad/assetgrid/modules/sass"
	"github.com/specialistvlad/assetgrid/modules/sprite"
	"github.com/specialistvlad/assetgrid/modules/tinypng"
	"github.com/specialistvlad/assetgrid/modules/woff2"
)

// coreModules is the definitive list of all transform modules that are
// compiled into the assetgrid binary.
var coreModules = []registry.Module{
	&concat.Module{},
	&sass.Module{},
	&esbuild.Module{},
	&woff2.Module{},
	&sprite.Module{},
	&tinypng.Module{},
	&precompress.Module{},
}

// CoreModules returns a copy of the built-in module list, for callers that
// want to extend it.
func CoreModules() []registry.Module {
	return append([]registry.Module(nil), coreModules...)
}
