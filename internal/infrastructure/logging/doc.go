// Package logging provides structured logging for mqtt-cli.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the command tree.
//
// # Features
//
//   - Text output for terminals, JSON output for machine consumption
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (trace, debug, info, warn, error)
//   - Levels adjustable at runtime by --debug and --trace
//   - Rotating log files via lumberjack when output is "file"
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout, file
//	  file:
//	    path: "~/.mqtt-cli/logs/mqtt-cli.log"
//	    max_size: 10     # megabytes
//
// Logs go to stderr by default. Standard output carries received payloads
// and task results, so mixing logs into it breaks pipelines.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("connected", "broker", "localhost:1883")
//	logger.Trace("frame", "type", "PUBREL")
//
// # Security
//
// Never log passwords or tokens. Payloads are logged in full only at debug.
package logging
