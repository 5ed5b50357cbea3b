package cliconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gcalmettes/ctfsink/pkg/logging"
)

const (
	maxTimeout = 3600
	maxPort    = 65535
)

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.PortSink < 0 || c.PortSink > maxPort {
		errs = append(errs, fmt.Errorf("portSink %d is out of range (0-%d)", c.PortSink, maxPort))
	}
	if c.PortDashboard < 0 || c.PortDashboard > maxPort {
		errs = append(errs, fmt.Errorf("portDashboard %d is out of range (0-%d)", c.PortDashboard, maxPort))
	}
	if c.PortSink != 0 && c.PortSink == c.PortDashboard {
		errs = append(errs, fmt.Errorf("portSink and portDashboard cannot be the same (%d)", c.PortSink))
	}
	if strings.TrimSpace(c.Bind) == "" {
		errs = append(errs, errors.New("bind address is required"))
	}
	if strings.TrimSpace(c.RequestsFolder) == "" {
		errs = append(errs, errors.New("requestsFolder is required"))
	}
	if c.ReadTimeout <= 0 || c.ReadTimeout > maxTimeout {
		errs = append(errs, fmt.Errorf("readTimeout %d is out of range (1-%d)", c.ReadTimeout, maxTimeout))
	}
	if c.WriteTimeout <= 0 || c.WriteTimeout > maxTimeout {
		errs = append(errs, fmt.Errorf("writeTimeout %d is out of range (1-%d)", c.WriteTimeout, maxTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("maxBodyBytes must be positive, got %d", c.MaxBodyBytes))
	}
	if !logging.ValidLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("logLevel %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if !logging.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("logFormat %q is not one of text, json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
