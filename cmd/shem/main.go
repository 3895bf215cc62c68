// Command shem is the Smart Home Energy Monitor CLI.
package main

import (
	"os"

	"github.com/shem-project/shem/internal/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
