package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gcalmettes/ctfsink/pkg/cli/internal/output"
	"github.com/gcalmettes/ctfsink/pkg/store"
)

// VersionOutput is the JSON form of the version command.
type VersionOutput struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Built    string `json:"built"`
	Go       string `json:"go"`
	Platform string `json:"platform"`

	// Where this invocation would read and write records.
	RequestsFolder string `json:"requestsFolder,omitempty"`
	ConfigFile     string `json:"configFile,omitempty"`
	Records        *int   `json:"records,omitempty"`
	// ConfigError is set when the configuration could not be resolved.
	ConfigError string `json:"configError,omitempty"`
}

// buildStamp returns the ldflags stamp, completed from the module build info
// for values left at their defaults.
func buildStamp() (version, commit, built string) {
	version, commit, built = Version, Commit, BuildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit, built
	}
	if version == "dev" && info.Main.Version != "" {
		version = info.Main.Version
	}
	dirty := false
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "none":
			commit = s.Value
		case s.Key == "vcs.time" && built == "unknown":
			built = s.Value
		case s.Key == "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		commit += "-dirty"
	}
	return version, commit, built
}

func displayVersion(v string) string {
	if v == "" || v == "dev" || v == "(devel)" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show ctfsink version and the requests folder in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var v VersionOutput
		v.Version, v.Commit, v.Built = buildStamp()
		v.Go = runtime.Version()
		v.Platform = runtime.GOOS + "/" + runtime.GOARCH

		// a broken config file must not hide the version
		if cfg, err := loadConfig(cmd); err != nil {
			v.ConfigError = err.Error()
		} else {
			v.RequestsFolder = cfg.RequestsFolder
			v.ConfigFile = cfg.ConfigFile
			if records, err := store.New(cfg.RequestsFolder).All(cmd.Context()); err == nil {
				n := len(records)
				v.Records = &n
			}
		}

		if jsonOutput {
			return output.JSON(cmd.OutOrStdout(), v)
		}
		printVersion(cmd.OutOrStdout(), v)
		return nil
	},
}

func printVersion(w io.Writer, v VersionOutput) {
	fmt.Fprintf(w, "ctfsink %s\n", displayVersion(v.Version))
	fmt.Fprintf(w, "  commit    %s (%s)\n", v.Commit, v.Built)
	fmt.Fprintf(w, "  go        %s %s\n", v.Go, v.Platform)
	switch {
	case v.ConfigError != "":
		fmt.Fprintf(w, "  config    %s\n", v.ConfigError)
		return
	case v.Records != nil:
		fmt.Fprintf(w, "  requests  %s (%d captured)\n", v.RequestsFolder, *v.Records)
	default:
		fmt.Fprintf(w, "  requests  %s\n", v.RequestsFolder)
	}
	if v.ConfigFile != "" {
		fmt.Fprintf(w, "  config    %s\n", v.ConfigFile)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
