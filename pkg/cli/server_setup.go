// Shared server configuration utilities used by serve, sink and dashboard.

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gcalmettes/ctfsink/internal/httpserver"
	"github.com/gcalmettes/ctfsink/pkg/cliconfig"
	"github.com/gcalmettes/ctfsink/pkg/dashboard"
	"github.com/gcalmettes/ctfsink/pkg/sink"
)

const shutdownTimeout = 10 * time.Second

// ServerFlags holds common server configuration flags used by serve, sink and dashboard.
type ServerFlags struct {
	Bind          string
	PortSink      int
	PortDashboard int

	// Timeouts, in seconds
	ReadTimeout  int
	WriteTimeout int

	// Capture
	MaxBodyBytes int64
	DecodeBodies bool
}

var serverFlags ServerFlags

// addServerFlags adds the server flags to cmd. All commands share serverFlags.
func addServerFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&serverFlags.Bind, "bind", cliconfig.DefaultBind, "Address both servers listen on")
	fs.IntVar(&serverFlags.PortSink, "port-sink", cliconfig.DefaultPortSink, "Sink server port")
	fs.IntVar(&serverFlags.PortDashboard, "port-dashboard", cliconfig.DefaultPortDashboard, "Dashboard server port")
	fs.IntVar(&serverFlags.ReadTimeout, "read-timeout", cliconfig.DefaultReadTimeout, "Read timeout in seconds")
	fs.IntVar(&serverFlags.WriteTimeout, "write-timeout", cliconfig.DefaultWriteTimeout, "Write timeout in seconds")
	fs.Int64Var(&serverFlags.MaxBodyBytes, "max-body-bytes", cliconfig.DefaultMaxBodyBytes, "Largest request body the sink accepts")
	fs.BoolVar(&serverFlags.DecodeBodies, "decode-bodies", cliconfig.DefaultDecodeBodies, "Undo gzip, deflate and zstd Content-Encoding before storing")
}

// serverFlagBindings maps each server flag to its config key.
var serverFlagBindings = []struct {
	flag  string
	key   string
	apply func(*cliconfig.Config)
}{
	{"bind", "bind", func(c *cliconfig.Config) { c.Bind = serverFlags.Bind }},
	{"port-sink", "portSink", func(c *cliconfig.Config) { c.PortSink = serverFlags.PortSink }},
	{"port-dashboard", "portDashboard", func(c *cliconfig.Config) { c.PortDashboard = serverFlags.PortDashboard }},
	{"read-timeout", "readTimeout", func(c *cliconfig.Config) { c.ReadTimeout = serverFlags.ReadTimeout }},
	{"write-timeout", "writeTimeout", func(c *cliconfig.Config) { c.WriteTimeout = serverFlags.WriteTimeout }},
	{"max-body-bytes", "maxBodyBytes", func(c *cliconfig.Config) { c.MaxBodyBytes = serverFlags.MaxBodyBytes }},
	{"decode-bodies", "decodeBodies", func(c *cliconfig.Config) { c.DecodeBodies = serverFlags.DecodeBodies }},
}

func (a *app) serverOptions() httpserver.Options {
	return httpserver.Options{
		ReadTimeout:  a.cfg.ReadTimeoutDuration(),
		WriteTimeout: a.cfg.WriteTimeoutDuration(),
		Logger:       a.log,
	}
}

// sinkServer returns the sink server described by a's configuration.
func (a *app) sinkServer() *httpserver.Server {
	return sink.NewServer(a.store, sink.Options{
		Addr:         a.cfg.SinkAddr(),
		MaxBodyBytes: a.cfg.MaxBodyBytes,
		DecodeBodies: a.cfg.DecodeBodies,
		Metrics:      a.capture,
		Options:      a.serverOptions(),
	})
}

// dashboardServer returns the dashboard server described by a's configuration.
func (a *app) dashboardServer() *httpserver.Server {
	return dashboard.NewServer(a.store, dashboard.Options{
		Addr:    a.cfg.DashboardAddr(),
		Metrics: a.metrics.Handler(),
		Options: a.serverOptions(),
	})
}

// runServers starts servers and blocks until SIGINT, SIGTERM or cancellation
// of cmd's context, then stops them gracefully.
func runServers(cmd *cobra.Command, a *app, servers ...*httpserver.Server) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return WaitForShutdown(ctx, a.log, cmd.OutOrStdout(), servers...)
}

// WaitForShutdown starts servers in order and blocks until ctx is done or a
// server fails. Started servers are then stopped in reverse order.
// A bind failure stops the servers already started and is returned.
func WaitForShutdown(ctx context.Context, log *slog.Logger, out io.Writer, servers ...*httpserver.Server) error {
	started := make([]*httpserver.Server, 0, len(servers))
	var bindErr error
	for _, s := range servers {
		if err := s.Start(); err != nil {
			bindErr = err
			break
		}
		started = append(started, s)
		fmt.Fprintf(out, "%s listening on http://%s\n", s.Name(), s.Addr())
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, s := range started {
		group.Go(func() error {
			// closed without a value on graceful stop
			if err, ok := <-s.Err(); ok {
				return err
			}
			return nil
		})
	}

	if bindErr == nil {
		<-gctx.Done()
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nShutting down...")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range slices.Backward(started) {
		if err := s.Stop(shutdownCtx); err != nil {
			log.Warn("shutdown error", "server", s.Name(), "error", err)
		}
	}
	runErr := group.Wait()
	if len(started) > 0 {
		fmt.Fprintln(out, "Server stopped")
	}
	if bindErr != nil {
		return bindErr
	}
	return runErr
}
