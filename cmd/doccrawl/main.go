// Package main is the entry point for the doccrawl CLI.
package main

import (
	"os"

	"github.com/jmylchreest/doccrawl/cmd/doccrawl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
