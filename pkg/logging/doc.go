// Package logging builds the structured loggers used by ctfsink.
//
// It wraps log/slog so every component logs the same way:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("sink listening", "addr", addr)
//
// Components accept a *slog.Logger and fall back to Nop when given nil.
//
// Middleware wraps an http.Handler and emits one access line per request,
// tagged with a correlation ID.
package logging
