package main

import "github.com/ColorsOutofSpace/net-check/internal/cmd"

// Overridden at build time via -ldflags.
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	cmd.Execute()
}
