// Command opinion annotates NAF documents with opinion targets, aspects and
// polarities, one-shot over stdin, as a TCP service or as a Kafka worker.
package main

import (
	"os"

	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/cli"
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
	// Execute reports the error on stderr.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
