// Package cli provides the command-line interface for ctfsink.
//
// The cli package implements the ctfsink commands:
//   - serve: Run the sink and the dashboard (the default without a command)
//   - sink: Run the sink only
//   - dashboard: Run the dashboard only
//   - list: List captured requests, newest first
//   - show: Show one captured request by key or filename
//   - config: Display effective configuration
//   - version: Show ctfsink version
//   - completion: Generate shell completion scripts
//
// Every command resolves its configuration through pkg/cliconfig, so flags,
// environment variables and the config file apply the same way everywhere.
package cli
