package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcalmettes/ctfsink/pkg/cli/internal/output"
	"github.com/gcalmettes/ctfsink/pkg/cliconfig"
	"github.com/gcalmettes/ctfsink/pkg/logging"
	"github.com/gcalmettes/ctfsink/pkg/metrics"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

// persistentFlagBindings maps each global flag to its config key.
var persistentFlagBindings = []struct {
	flag  string
	key   string
	apply func(*cliconfig.Config)
}{
	{"requests-folder", "requestsFolder", func(c *cliconfig.Config) { c.RequestsFolder = requestsFolder }},
	{"log-level", "logLevel", func(c *cliconfig.Config) { c.LogLevel = logLevel }},
	{"log-format", "logFormat", func(c *cliconfig.Config) { c.LogFormat = logFormat }},
	{"log-file", "logFile", func(c *cliconfig.Config) { c.LogFile = logFile }},
}

// flagConfig collects the flags explicitly set on cmd's command line.
func flagConfig(cmd *cobra.Command) *cliconfig.Config {
	fs := cmd.Flags()
	flags := &cliconfig.Config{ConfigFile: configFile}
	for _, b := range persistentFlagBindings {
		if fs.Changed(b.flag) {
			b.apply(flags)
			flags.MarkSet(b.key)
		}
	}
	for _, b := range serverFlagBindings {
		if fs.Changed(b.flag) {
			b.apply(flags)
			flags.MarkSet(b.key)
		}
	}
	return flags
}

// loadConfig resolves the effective configuration for cmd.
func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.LoadAll(cliconfig.LoadOptions{Flags: flagConfig(cmd)})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When LogFile is set, a JSON copy of
// every entry is appended to it; the returned closer releases the file.
func newLogger(cfg *cliconfig.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	lc := logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: w,
	}
	if cfg.LogFile == "" {
		return logging.New(lc), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	lc.Tee = f
	return logging.New(lc), f, nil
}

// app is what every command needs once configuration is resolved.
type app struct {
	cfg     *cliconfig.Config
	log     *slog.Logger
	store   *store.Store
	metrics *metrics.Registry
	capture *metrics.Capture
	closer  io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, closer, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile != "" {
		log.Debug("configuration loaded", "file", cfg.ConfigFile)
	}
	reg := metrics.NewRegistry()
	return &app{
		cfg:     cfg,
		log:     log,
		store:   store.New(cfg.RequestsFolder, store.WithLogger(log.With("component", "store"))),
		metrics: reg,
		capture: metrics.NewCapture(reg),
		closer:  closer,
	}, nil
}

// Close releases the log file, if any.
func (a *app) Close() error {
	return a.closer.Close()
}

// ConfigOutput is the JSON form of the config command.
type ConfigOutput struct {
	Config  *cliconfig.Config `json:"config"`
	Sources map[string]string `json:"sources"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration with source annotations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if jsonOutput {
			return output.JSON(out, ConfigOutput{Config: cfg, Sources: cfg.Sources})
		}

		t := output.Table(out, "Key", "Value", "Source")
		for _, key := range cliconfig.Keys {
			t.AppendRow([]any{key, cfg.Value(key), formatSource(cfg.Sources[key])})
		}
		t.Render()

		if cfg.ConfigFile != "" {
			fmt.Fprintf(out, "\nConfig file: %s\n", cfg.ConfigFile)
		}
		return nil
	},
}

// formatSource formats a source type for display.
func formatSource(source string) string {
	if source == "" {
		return cliconfig.SourceDefault
	}
	return source
}

func init() {
	rootCmd.AddCommand(configCmd)
}
