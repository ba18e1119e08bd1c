// Package logging provides structured logging for NaviLink Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "device", deviceID)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log credentials, session tokens, or signed URLs. Signed
// WebSocket URLs embed the access key and signature in the query
// string, so log the bare endpoint instead:
//
//	logger.Info("connecting", "endpoint", cfg.Broker.Endpoint)
package logging
