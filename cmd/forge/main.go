// Command forge schedules dependency-aware pipelines of AI-agent
// invocations. See internal/cli for the full command surface.
package main

import (
	"os"

	"github.com/forge-run/forge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
