package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configFile     string
	requestsFolder string
	logLevel       string
	logFormat      string
	logFile        string
	jsonOutput     bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ctfsink",
	Short: "ctfsink records every HTTP request it receives",
	Long: `ctfsink is a catch-all HTTP request sink. Every request sent to the sink
port is stored as one file in the requests folder, and a dashboard lists and
displays the captured requests.

Configuration can be provided via flags, environment variables, or a configuration file.
By default, ctfsink looks for .ctfsinkrc.yaml in the current directory, then
for config.yaml in the ctfsink user config directory.`,
	// Without a subcommand, ctfsink runs both servers.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to a config file (default: .ctfsinkrc.yaml, then the user config dir)")
	pf.StringVar(&requestsFolder, "requests-folder", "", "Folder where captured requests are stored (default: 00_requests)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text, json (default: text)")
	pf.StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	pf.BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")

	addServerFlags(rootCmd)
}
