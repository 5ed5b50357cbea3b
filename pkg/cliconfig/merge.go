package cliconfig

// Merge copies every field listed in source.SetFields into target and
// records sourceType as its origin.
func Merge(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	for key := range source.SetFields {
		switch key {
		case "bind":
			target.Bind = source.Bind
		case "portSink":
			target.PortSink = source.PortSink
		case "portDashboard":
			target.PortDashboard = source.PortDashboard
		case "readTimeout":
			target.ReadTimeout = source.ReadTimeout
		case "writeTimeout":
			target.WriteTimeout = source.WriteTimeout
		case "requestsFolder":
			target.RequestsFolder = source.RequestsFolder
		case "maxBodyBytes":
			target.MaxBodyBytes = source.MaxBodyBytes
		case "decodeBodies":
			target.DecodeBodies = source.DecodeBodies
		case "logLevel":
			target.LogLevel = source.LogLevel
		case "logFormat":
			target.LogFormat = source.LogFormat
		case "logFile":
			target.LogFile = source.LogFile
		default:
			continue
		}
		target.Sources[key] = sourceType
	}
}
