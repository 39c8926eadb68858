// askSQL asks questions of a SQL database in plain language.
//
// Entry point: initializes the Cobra root command, which launches the
// Bubble Tea TUI by default (no subcommand required).
package main

import (
	"os"

	"github.com/DachengChen/askSQL/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
