package cli

import (
	"github.com/spf13/cobra"

	"github.com/gcalmettes/ctfsink/internal/httpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sink and the dashboard",
	Long: `Run the sink and the dashboard together. This is what ctfsink does
when no command is given.

The sink stores every request it receives, whatever its method or path, as
one file in the requests folder and answers 200 with an empty body. The
dashboard lists the stored requests, newest first.`,
	Example: `  # Default ports 5000 (sink) and 5001 (dashboard)
  ctfsink serve

  # Listen on every interface
  ctfsink serve --bind 0.0.0.0 --port-sink 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var sinkCmd = &cobra.Command{
	Use:   "sink",
	Short: "Run the sink only",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(cmd, (*app).sinkServer)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the dashboard only",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(cmd, (*app).dashboardServer)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	return runWith(cmd, (*app).sinkServer, (*app).dashboardServer)
}

func runWith(cmd *cobra.Command, builders ...func(*app) *httpserver.Server) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	servers := make([]*httpserver.Server, 0, len(builders))
	for _, build := range builders {
		servers = append(servers, build(a))
	}
	a.log.Info("starting", "version", Version, "requestsFolder", a.cfg.RequestsFolder)
	return runServers(cmd, a, servers...)
}

func init() {
	addServerFlags(serveCmd)
	addServerFlags(sinkCmd)
	addServerFlags(dashboardCmd)
	rootCmd.AddCommand(serveCmd, sinkCmd, dashboardCmd)
}
