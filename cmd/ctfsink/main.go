// ctfsink CLI - records every HTTP request it receives and serves a dashboard of them
package main

import "github.com/gcalmettes/ctfsink/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
