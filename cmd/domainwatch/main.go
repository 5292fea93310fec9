package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/namelens/domainwatch/internal/cmd"
	"github.com/namelens/domainwatch/internal/config"
	"github.com/namelens/domainwatch/internal/server/handlers"
)

// Version information set via ldflags during build
// Example: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2025-10-28"
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	handlers.SetVersionInfo(version, commit, buildDate)
	handlers.SetAppName(config.AppName)

	if err := cmd.Execute(); err != nil {
		// Commands log their own details; this only maps the failure to an exit code.
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "Command execution failed", err)
	}
}
