// Command leadscore is the operator CLI: serve, one-shot scoring, schema
// migrations and subscription management.
package main

import (
	"os"

	"github.com/turtacn/leadscore/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// Execute prints the error itself.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
