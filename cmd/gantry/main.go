package main

import (
	"os"

	"github.com/gantry-web/gantry/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
