// stoat is the command-line interface for the go-stoat event sourcing library.
//
// Usage:
//
//	stoat <command> [flags]
//
// Commands:
//
//	init     Write a stoat.yaml configuration file
//	migrate  Create the PostgreSQL event store schema
//	account  Run bank account commands against the configured event stream
//	version  Show version information
//
// Examples:
//
//	# Use PostgreSQL
//	stoat init --driver=postgres
//	export STOAT_DATABASE_URL=postgres://localhost:5432/stoat?sslmode=disable
//	stoat migrate
//
//	# Work with an account
//	stoat account open acc-1
//	stoat account credit acc-1 1000
//	stoat account show acc-1 --events
package main

import (
	"os"

	"github.com/AshkanYarmoradi/go-stoat/cli/commands"
)

// Build information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.BuildDate = buildDate

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
