package app

import (
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/modules/env_vars"
	"github.com/vk/taskgrid/modules/print"
	"github.com/vk/taskgrid/modules/remotejob"
	"github.com/vk/taskgrid/modules/sleep"
)

// coreModules is the definitive list of all task kinds that are compiled into
// the binary.
var coreModules = []runners.Module{
	&env_vars.Module{},
	&print.Module{},
	&remotejob.Module{},
	&sleep.Module{},
}
