package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/config"
)

func TestNew_TextFormat(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "stderr",
	}

	logger := New(cfg, "1.0.0")

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if !logger.DebugEnabled() {
		t.Error("expected debug to be enabled")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cli.log")
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File: config.FileLoggingConfig{
			Path:    path,
			MaxSize: 1,
		},
	}

	logger := New(cfg, "1.0.0")
	logger.Info("written to file")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if logger.closer == nil {
		t.Error("expected file output to set a closer")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{
			name:     "trace level",
			input:    "trace",
			expected: LevelTrace,
		},
		{
			name:     "debug level",
			input:    "debug",
			expected: slog.LevelDebug,
		},
		{
			name:     "info level",
			input:    "info",
			expected: slog.LevelInfo,
		},
		{
			name:     "warn level",
			input:    "warn",
			expected: slog.LevelWarn,
		},
		{
			name:     "warning level",
			input:    "warning",
			expected: slog.LevelWarn,
		},
		{
			name:     "error level",
			input:    "error",
			expected: slog.LevelError,
		},
		{
			name:     "unknown defaults to info",
			input:    "unknown",
			expected: slog.LevelInfo,
		},
		{
			name:     "empty defaults to info",
			input:    "",
			expected: slog.LevelInfo,
		},
		{
			name:     "case insensitive",
			input:    "DEBUG",
			expected: slog.LevelDebug,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogger_SetLevelSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "text", "info", "test")
	child := logger.With("component", "mqtt")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output at info level, got %q", buf.String())
	}

	logger.SetLevel("debug")
	child.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected child to follow parent level, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "component=mqtt") {
		t.Errorf("expected child attribute in output, got %q", buf.String())
	}
}

func TestLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "text", "debug", "test")

	logger.Trace("too detailed")
	if buf.Len() != 0 {
		t.Fatalf("expected trace suppressed at debug level, got %q", buf.String())
	}
	if logger.TraceEnabled() {
		t.Error("TraceEnabled() = true at debug level, want false")
	}

	logger.SetLevel("trace")
	logger.Trace("frame seen")

	output := buf.String()
	if !strings.Contains(output, "level=TRACE") {
		t.Errorf("expected level=TRACE in output, got %q", output)
	}
	if !strings.Contains(output, "frame seen") {
		t.Errorf("expected message in output, got %q", output)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()

	if logger == nil {
		t.Fatal("expected non-nil default logger")
	}
	if logger.DebugEnabled() {
		t.Error("expected default logger at info level")
	}
}

func TestLogger_OutputContainsDefaultFields(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, "json", "info", "test")
	logger.Info("test message", "key", "value")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["service"] != "mqtt-cli" {
		t.Errorf("expected service='mqtt-cli', got %v", logEntry["service"])
	}

	if logEntry["version"] != "test" {
		t.Errorf("expected version='test', got %v", logEntry["version"])
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}

	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}
