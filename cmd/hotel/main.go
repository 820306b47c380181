// Command hotel runs and drives the Liminal Hotel simulation.
package main

import (
	"os"

	"github.com/belindacoding/liminal-hotel/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
