package cliconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory under the user config dir.
	GlobalConfigDir = "ctfsink"
)

// LocalConfigFileNames are searched in the current directory, in order.
var LocalConfigFileNames = []string{".ctfsinkrc.yaml", ".ctfsinkrc.yml"}

// GlobalConfigFileNames are searched in the global config directory, in order.
var GlobalConfigFileNames = []string{"config.yaml", "config.yml"}

// ConfigError is a configuration error tied to a file or variable.
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Path + ": " + e.Message
}

// FindLocalConfig returns the first local config file in dir, or "".
func FindLocalConfig(dir string) string {
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// FindGlobalConfig returns the global config file, or "" when there is none.
func FindGlobalConfig() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, name := range GlobalConfigFileNames {
		path := filepath.Join(configDir, GlobalConfigDir, name)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// LoadConfigFile reads a Config from a YAML file. Unknown keys are errors.
// SetFields lists the keys present in the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(path, data)
}

func parseConfig(path string, data []byte) (*Config, error) {
	cfg := &Config{ConfigFile: path, SetFields: make(map[string]bool)}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}

	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error()}
	}
	for k := range keys {
		cfg.SetFields[k] = true
	}
	return cfg, nil
}

// LoadOptions selects the inputs of LoadAll.
type LoadOptions struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string
	// WorkDir is searched for a local config file. Defaults to the cwd.
	WorkDir string
	// SkipGlobal disables the user config dir lookup.
	SkipGlobal bool
	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	// Flags holds values set on the command line, listed in SetFields.
	Flags *Config
}

// LoadAll resolves the configuration from every source and validates it.
// Precedence: flags > env > file > defaults.
func LoadAll(opts LoadOptions) (*Config, error) {
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}

	cfg := NewDefault()

	env, err := LoadEnvConfig(opts.Lookup)
	if err != nil {
		return nil, err
	}

	path := opts.ConfigFile
	if opts.Flags != nil && opts.Flags.ConfigFile != "" {
		path = opts.Flags.ConfigFile
	}
	if path == "" {
		path = env.ConfigFile
	}
	explicit := path != ""
	if !explicit {
		dir := opts.WorkDir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		if dir != "" {
			path = FindLocalConfig(dir)
		}
		if path == "" && !opts.SkipGlobal {
			path = FindGlobalConfig()
		}
	}

	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		switch {
		case err == nil:
			Merge(cfg, fileCfg, SourceFile)
			cfg.ConfigFile = path
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	Merge(cfg, env, SourceEnv)
	Merge(cfg, opts.Flags, SourceFlag)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
