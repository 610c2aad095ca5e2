// Package logging provides structured logging for Hearth Core.
//
// It wraps Go's standard log/slog package so every component logs in a
// consistent, machine-parsable shape.
//
// # Configuration
//
// Logging is configured via the LoggingConfig section in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting hub", "port", 38736)
//	logger.Error("cloud relay unreachable", "error", err)
//
// Never log secrets, tokens, or API keys. Redact sensitive fields before
// passing them as attributes.
package logging
