package cliconfig

// Default values.
const (
	DefaultBind           = "127.0.0.1"
	DefaultPortSink       = 5000
	DefaultPortDashboard  = 5001
	DefaultReadTimeout    = 30
	DefaultWriteTimeout   = 30
	DefaultRequestsFolder = "00_requests"
	DefaultMaxBodyBytes   = 10 << 20
	DefaultDecodeBodies   = true
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewDefault returns a Config holding the default values.
func NewDefault() *Config {
	cfg := &Config{
		Bind:           DefaultBind,
		PortSink:       DefaultPortSink,
		PortDashboard:  DefaultPortDashboard,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		RequestsFolder: DefaultRequestsFolder,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		DecodeBodies:   DefaultDecodeBodies,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		Sources:        make(map[string]string, len(Keys)),
	}
	for _, k := range Keys {
		cfg.Sources[k] = SourceDefault
	}
	return cfg
}
