// Package cliconfig resolves the ctfsink configuration from defaults, a YAML
// file, environment variables and command-line flags.
package cliconfig

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete ctfsink configuration.
// Values come from several sources with the following precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables
//  3. Config file (--config, .ctfsinkrc.yaml, or the user config dir)
//  4. Default values (lowest priority)
type Config struct {
	// Listeners
	Bind          string `yaml:"bind" json:"bind"`
	PortSink      int    `yaml:"portSink" json:"portSink"`
	PortDashboard int    `yaml:"portDashboard" json:"portDashboard"`
	ReadTimeout   int    `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout  int    `yaml:"writeTimeout" json:"writeTimeout"`

	// Storage
	RequestsFolder string `yaml:"requestsFolder" json:"requestsFolder"`
	MaxBodyBytes   int64  `yaml:"maxBodyBytes" json:"maxBodyBytes"`
	DecodeBodies   bool   `yaml:"decodeBodies" json:"decodeBodies"`

	// Logging
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	LogFile   string `yaml:"logFile,omitempty" json:"logFile,omitempty"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `yaml:"-" json:"configFile,omitempty"`

	// Sources tracks where each value came from, keyed by YAML name.
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields lists the YAML names explicitly set by the source this
	// Config was loaded from. Merge only applies those.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// Source names.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Keys is every configurable YAML name, in display order.
var Keys = []string{
	"bind",
	"portSink",
	"portDashboard",
	"readTimeout",
	"writeTimeout",
	"requestsFolder",
	"maxBodyBytes",
	"decodeBodies",
	"logLevel",
	"logFormat",
	"logFile",
}

// SinkAddr returns the listen address of the sink server.
func (c *Config) SinkAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.PortSink))
}

// DashboardAddr returns the listen address of the dashboard server.
func (c *Config) DashboardAddr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.PortDashboard))
}

// ReadTimeoutDuration returns ReadTimeout in seconds as a duration.
func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns WriteTimeout in seconds as a duration.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// Value returns the value of key formatted for display.
func (c *Config) Value(key string) string {
	switch key {
	case "bind":
		return c.Bind
	case "portSink":
		return strconv.Itoa(c.PortSink)
	case "portDashboard":
		return strconv.Itoa(c.PortDashboard)
	case "readTimeout":
		return strconv.Itoa(c.ReadTimeout)
	case "writeTimeout":
		return strconv.Itoa(c.WriteTimeout)
	case "requestsFolder":
		return c.RequestsFolder
	case "maxBodyBytes":
		return strconv.FormatInt(c.MaxBodyBytes, 10)
	case "decodeBodies":
		return strconv.FormatBool(c.DecodeBodies)
	case "logLevel":
		return c.LogLevel
	case "logFormat":
		return c.LogFormat
	case "logFile":
		return c.LogFile
	}
	return ""
}

// MarkSet records key as explicitly set on c.
func (c *Config) MarkSet(key string) {
	if c.SetFields == nil {
		c.SetFields = make(map[string]bool)
	}
	c.SetFields[key] = true
}
