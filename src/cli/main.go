package main

import (
	"os"

	"github.com/hassio-addons/build-env/src/cli/cmd"
	"github.com/hassio-addons/build-env/src/exitcode"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(exitcode.From(err))
	}
}
