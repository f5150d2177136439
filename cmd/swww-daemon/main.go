package main

import (
	"os"

	"github.com/swwwgo/swwwgo/internal/cliapp"
	"github.com/swwwgo/swwwgo/internal/version"
)

func main() {
	if err := cliapp.NewDaemonRootCmd(version.Version).Execute(); err != nil {
		os.Exit(cliapp.ExitFailure)
	}
}
