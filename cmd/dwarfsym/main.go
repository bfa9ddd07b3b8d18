package main

import (
	"os"

	"github.com/dwarfsym/dwarfsym/cmd/dwarfsym/cmds"
	"github.com/dwarfsym/dwarfsym/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.DwarfsymVersion.Build = Build
	}
	if err := cmds.New(false).Execute(); err != nil {
		os.Exit(1)
	}
}
