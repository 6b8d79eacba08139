package main

import (
	"os"

	"github.com/go-go-golems/parley/cmd/parley/cmds"
)

func main() {
	if err := cmds.Execute(); err != nil {
		os.Exit(1)
	}
}
