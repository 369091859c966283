package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/config"
)

// LevelTrace is below debug. It enables wire-level detail such as the
// MQTT library's own debug output and inbound packet snapshots.
const LevelTrace = slog.LevelDebug - 4

// serviceName is attached to every log entry.
const serviceName = "mqtt-cli"

// Logger wraps slog.Logger with mqtt-cli specific functionality.
//
// It provides structured logging with default fields, a trace level below
// debug, and a level that can be raised after construction (--debug, --trace).
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	level  *slog.LevelVar
	closer io.Closer
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output format (text for terminals, JSON for machine consumption)
//   - Log level filtering
//   - Default fields (service name, version)
//   - Output destination (stderr, stdout, or a rotating file)
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for default field
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var (
		output io.Writer
		closer io.Closer
	)
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	case "file":
		rotator := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
		output = rotator
		closer = rotator
	default:
		output = os.Stderr
	}

	l := NewWithWriter(output, cfg.Format, cfg.Level, version)
	l.closer = closer
	return l
}

// NewWithWriter creates a Logger writing to w.
// Used by New and by tests that capture output.
func NewWithWriter(w io.Writer, format, level, version string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(parseLevel(level))

	opts := &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: replaceLevelName,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		level:  lv,
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: trace, debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceLevelName prints LevelTrace as TRACE instead of DEBUG-4.
func replaceLevelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// SetLevel changes the minimum level of this logger and every logger derived
// from it with With.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// DebugEnabled reports whether debug records are emitted.
func (l *Logger) DebugEnabled() bool {
	return l.Enabled(context.Background(), slog.LevelDebug)
}

// TraceEnabled reports whether trace records are emitted.
func (l *Logger) TraceEnabled() bool {
	return l.Enabled(context.Background(), LevelTrace)
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// With returns a new Logger with additional default attributes.
//
// The child shares the parent's level, so SetLevel on either affects both.
//
// Parameters:
//   - args: Key-value pairs to add as default attributes
//
// Returns:
//   - *Logger: New logger with added attributes
//
// Example:
//
//	mqttLogger := logger.With("component", "mqtt")
//	mqttLogger.Info("connected") // Includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
	}
}

// Close releases the log file when output is "file". It is a no-op otherwise.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger writes text to stderr at info level.
// It should only be used during early startup before config is available.
//
// Returns:
//   - *Logger: Default logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}, "dev")
}
