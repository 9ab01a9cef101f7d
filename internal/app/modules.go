package app

import (
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/modules/clean"
	"github.com/RoJaebl/portfolio/modules/command"
	"github.com/RoJaebl/portfolio/modules/images"
	"github.com/RoJaebl/portfolio/modules/print"
	"github.com/RoJaebl/portfolio/modules/publish"
	"github.com/RoJaebl/portfolio/modules/scripts"
	"github.com/RoJaebl/portfolio/modules/serve"
	"github.com/RoJaebl/portfolio/modules/styles"
	"github.com/RoJaebl/portfolio/modules/templates"
	"github.com/RoJaebl/portfolio/modules/watch"
)

// coreModules is the definitive list of all task kinds that are compiled
// into the sitepipe binary.
var coreModules = []registry.Module{
	&clean.Module{},
	&command.Module{},
	&images.Module{},
	&print.Module{},
	&publish.Module{},
	&scripts.Module{},
	&serve.Module{},
	&styles.Module{},
	&templates.Module{},
	&watch.Module{},
}
