package app

import (
	"github.com/specialistvlad/treeforge/internal/registry"
	"github.com/specialistvlad/treeforge/modules/funnel"
	"github.com/specialistvlad/treeforge/modules/merge"
	"github.com/specialistvlad/treeforge/modules/writefile"
)

// coreModules is the definitive list of all plugin modules that are compiled
// into the treeforge binary.
var coreModules = []registry.Module{
	&merge.Module{},
	&writefile.Module{},
	&funnel.Module{},
}
