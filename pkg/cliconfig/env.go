package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variable names. The first three keep the names used by
// existing deployments; the rest are namespaced.
const (
	EnvPortSink       = "PORT_SINK"
	EnvPortDashboard  = "PORT_DASHBOARD"
	EnvRequestsFolder = "REQUESTS_FOLDER"
	EnvBind           = "CTFSINK_BIND"
	EnvConfig         = "CTFSINK_CONFIG"
	EnvReadTimeout    = "CTFSINK_READ_TIMEOUT"
	EnvWriteTimeout   = "CTFSINK_WRITE_TIMEOUT"
	EnvMaxBodyBytes   = "CTFSINK_MAX_BODY_BYTES"
	EnvDecodeBodies   = "CTFSINK_DECODE_BODIES"
	EnvLogLevel       = "CTFSINK_LOG_LEVEL"
	EnvLogFormat      = "CTFSINK_LOG_FORMAT"
	EnvLogFile        = "CTFSINK_LOG_FILE"
)

// LoadEnvConfig reads the configuration variables present in the
// environment. Malformed numbers and booleans are errors.
func LoadEnvConfig(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{SetFields: make(map[string]bool)}

	str := func(env, key string, dst *string) {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
			cfg.MarkSet(key)
		}
	}
	num := func(env, key string, dst *int) error {
		v, ok := lookup(env)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &ConfigError{Path: env, Message: fmt.Sprintf("%q is not an integer", v)}
		}
		*dst = n
		cfg.MarkSet(key)
		return nil
	}

	str(EnvBind, "bind", &cfg.Bind)
	str(EnvRequestsFolder, "requestsFolder", &cfg.RequestsFolder)
	str(EnvLogLevel, "logLevel", &cfg.LogLevel)
	str(EnvLogFormat, "logFormat", &cfg.LogFormat)
	str(EnvLogFile, "logFile", &cfg.LogFile)
	if v, ok := lookup(EnvConfig); ok {
		cfg.ConfigFile = v
	}

	for _, n := range []struct {
		env, key string
		dst      *int
	}{
		{EnvPortSink, "portSink", &cfg.PortSink},
		{EnvPortDashboard, "portDashboard", &cfg.PortDashboard},
		{EnvReadTimeout, "readTimeout", &cfg.ReadTimeout},
		{EnvWriteTimeout, "writeTimeout", &cfg.WriteTimeout},
	} {
		if err := num(n.env, n.key, n.dst); err != nil {
			return nil, err
		}
	}

	if v, ok := lookup(EnvMaxBodyBytes); ok && v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, &ConfigError{Path: EnvMaxBodyBytes, Message: fmt.Sprintf("%q is not an integer", v)}
		}
		cfg.MaxBodyBytes = n
		cfg.MarkSet("maxBodyBytes")
	}

	if v, ok := lookup(EnvDecodeBodies); ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return nil, &ConfigError{Path: EnvDecodeBodies, Message: err.Error()}
		}
		cfg.DecodeBodies = b
		cfg.MarkSet("decodeBodies")
	}

	return cfg, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", v)
}
