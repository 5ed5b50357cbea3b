package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		c := *NewDefault()
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"valid defaults", *NewDefault(), ""},
		{"random ports", valid(func(c *Config) { c.PortSink, c.PortDashboard = 0, 0 }), ""},
		{"sink port too high", valid(func(c *Config) { c.PortSink = 70000 }), "portSink 70000 is out of range"},
		{"dashboard port negative", valid(func(c *Config) { c.PortDashboard = -1 }), "portDashboard -1 is out of range"},
		{"same ports", valid(func(c *Config) { c.PortDashboard = c.PortSink }), "cannot be the same"},
		{"empty folder", valid(func(c *Config) { c.RequestsFolder = " " }), "requestsFolder is required"},
		{"empty bind", valid(func(c *Config) { c.Bind = "" }), "bind address is required"},
		{"zero read timeout", valid(func(c *Config) { c.ReadTimeout = 0 }), "readTimeout 0 is out of range"},
		{"huge write timeout", valid(func(c *Config) { c.WriteTimeout = 9999 }), "writeTimeout 9999 is out of range"},
		{"zero body limit", valid(func(c *Config) { c.MaxBodyBytes = 0 }), "maxBodyBytes must be positive"},
		{"bad level", valid(func(c *Config) { c.LogLevel = "trace" }), `logLevel "trace"`},
		{"bad format", valid(func(c *Config) { c.LogFormat = "xml" }), `logFormat "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	assert.Equal(t, 5000, cfg.PortSink)
	assert.Equal(t, 5001, cfg.PortDashboard)
	assert.Equal(t, "00_requests", cfg.RequestsFolder)
	assert.Equal(t, "127.0.0.1:5000", cfg.SinkAddr())
	assert.Equal(t, "127.0.0.1:5001", cfg.DashboardAddr())
	for _, k := range Keys {
		assert.Equal(t, SourceDefault, cfg.Sources[k], k)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("records set keys", func(t *testing.T) {
		path := writeFile(t, dir, "ok.yaml", "portSink: 8000\ndecodeBodies: false\n")
		cfg, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.PortSink)
		assert.False(t, cfg.DecodeBodies)
		assert.Equal(t, map[string]bool{"portSink": true, "decodeBodies": true}, cfg.SetFields)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeFile(t, dir, "unknown.yaml", "portSnk: 8000\n")
		_, err := LoadConfigFile(path)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, path, cfgErr.Path)
	})

	t.Run("wrong type", func(t *testing.T) {
		path := writeFile(t, dir, "type.yaml", "portSink: lots\n")
		_, err := LoadConfigFile(path)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, dir, "empty.yaml", "\n")
		cfg, err := LoadConfigFile(path)
		require.NoError(t, err)
		assert.Empty(t, cfg.SetFields)
	})
}

func TestLoadEnvConfig(t *testing.T) {
	cfg, err := LoadEnvConfig(envMap(map[string]string{
		EnvPortSink:       "7000",
		EnvRequestsFolder: "/tmp/reqs",
		EnvDecodeBodies:   "off",
		EnvMaxBodyBytes:   "1024",
		EnvLogLevel:       "",
	}))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.PortSink)
	assert.Equal(t, "/tmp/reqs", cfg.RequestsFolder)
	assert.False(t, cfg.DecodeBodies)
	assert.EqualValues(t, 1024, cfg.MaxBodyBytes)
	assert.Equal(t, map[string]bool{
		"portSink": true, "requestsFolder": true, "decodeBodies": true, "maxBodyBytes": true,
	}, cfg.SetFields)

	_, err = LoadEnvConfig(envMap(map[string]string{EnvPortDashboard: "abc"}))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, EnvPortDashboard, cfgErr.Path)

	_, err = LoadEnvConfig(envMap(map[string]string{EnvDecodeBodies: "maybe"}))
	assert.Error(t, err)
}

func TestLoadAll_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".ctfsinkrc.yaml", "portSink: 6000\nportDashboard: 6001\nrequestsFolder: from-file\nlogLevel: debug\n")

	flags := &Config{}
	flags.PortSink = 9000
	flags.MarkSet("portSink")

	cfg, err := LoadAll(LoadOptions{
		WorkDir:    dir,
		SkipGlobal: true,
		Lookup: envMap(map[string]string{
			EnvPortSink:      "7000",
			EnvPortDashboard: "7001",
		}),
		Flags: flags,
	})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.PortSink)
	assert.Equal(t, SourceFlag, cfg.Sources["portSink"])
	assert.Equal(t, 7001, cfg.PortDashboard)
	assert.Equal(t, SourceEnv, cfg.Sources["portDashboard"])
	assert.Equal(t, "from-file", cfg.RequestsFolder)
	assert.Equal(t, SourceFile, cfg.Sources["requestsFolder"])
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, SourceDefault, cfg.Sources["logFormat"])
	assert.Equal(t, filepath.Join(dir, ".ctfsinkrc.yaml"), cfg.ConfigFile)
}

func TestLoadAll_ExplicitConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", "bind: 0.0.0.0\n")

	t.Run("flag", func(t *testing.T) {
		cfg, err := LoadAll(LoadOptions{
			WorkDir: t.TempDir(), SkipGlobal: true, Lookup: envMap(nil),
			Flags: &Config{ConfigFile: path},
		})
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Bind)
	})

	t.Run("env", func(t *testing.T) {
		cfg, err := LoadAll(LoadOptions{
			WorkDir: t.TempDir(), SkipGlobal: true,
			Lookup: envMap(map[string]string{EnvConfig: path}),
		})
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Bind)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := LoadAll(LoadOptions{
			ConfigFile: filepath.Join(dir, "nope.yaml"),
			SkipGlobal: true, Lookup: envMap(nil),
		})
		assert.Error(t, err)
	})
}

func TestLoadAll_NoFile(t *testing.T) {
	cfg, err := LoadAll(LoadOptions{WorkDir: t.TempDir(), SkipGlobal: true, Lookup: envMap(nil)})
	require.NoError(t, err)
	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, DefaultPortSink, cfg.PortSink)
}

func TestLoadAll_InvalidResult(t *testing.T) {
	_, err := LoadAll(LoadOptions{
		WorkDir: t.TempDir(), SkipGlobal: true,
		Lookup: envMap(map[string]string{EnvPortSink: "5001"}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be the same")
}

func TestConfig_Value(t *testing.T) {
	cfg := NewDefault()
	for _, k := range Keys {
		if k == "logFile" {
			assert.Empty(t, cfg.Value(k))
			continue
		}
		assert.NotEmpty(t, cfg.Value(k), k)
	}
	assert.Equal(t, "true", cfg.Value("decodeBodies"))
}
