// Command vidrag answers questions from support videos.
package main

import (
	"os"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
