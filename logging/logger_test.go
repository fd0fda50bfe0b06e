package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected output to contain 'key=value', got: %s", output)
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: &buf,
	})

	logger.Info("test message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, `"msg":"test message"`) {
		t.Errorf("Expected JSON output to contain msg field, got: %s", output)
	}
	if !strings.Contains(output, `"key":"value"`) {
		t.Errorf("Expected JSON output to contain key field, got: %s", output)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:  slog.LevelWarn,
		Format: "text",
		Output: &buf,
	})

	logger.Info("info message")
	if strings.Contains(buf.String(), "info message") {
		t.Error("Info message should be filtered at Warn level")
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("Warn message should be logged at Warn level")
	}
}

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})

	WithOperation(logger, "drop").Info("operation message")

	if !strings.Contains(buf.String(), "operation=drop") {
		t.Errorf("Expected operation in output, got: %s", buf.String())
	}
}

func TestWithName(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})

	WithName(logger, "group", "daemon").Info("resolving")

	if !strings.Contains(buf.String(), "group=daemon") {
		t.Errorf("Expected group name in output, got: %s", buf.String())
	}
}

func TestWithIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})

	WithIdentity(logger, 1, 2).Info("dropped")

	output := buf.String()
	if !strings.Contains(output, "identity.uid=1") || !strings.Contains(output, "identity.gid=2") {
		t.Errorf("Expected identity group in output, got: %s", output)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should not be enabled at any level")
	}
}

func TestOpenOutput(t *testing.T) {
	w, closeFn, err := OpenOutput("")
	if err != nil {
		t.Fatalf("OpenOutput(\"\") error: %v", err)
	}
	if w != os.Stderr {
		t.Error("empty path should select stderr")
	}
	if err := closeFn(); err != nil {
		t.Errorf("close stderr output: %v", err)
	}

	path := filepath.Join(t.TempDir(), "privhelper.log")
	w, closeFn, err = OpenOutput(path)
	if err != nil {
		t.Fatalf("OpenOutput(%q) error: %v", path, err)
	}
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: w})
	logger.Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing record, got: %s", data)
	}
}

func TestOpenOutput_BadPath(t *testing.T) {
	if _, _, err := OpenOutput(filepath.Join(t.TempDir(), "missing", "x.log")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestContextWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: slog.LevelInfo, Output: &buf})

	ctx := ContextWithLogger(context.Background(), logger)
	FromContext(ctx).Info("context message")

	if !strings.Contains(buf.String(), "context message") {
		t.Errorf("Expected message in output, got: %s", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without a logger should return Default()")
	}
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewLogger(Config{Level: slog.LevelDebug, Output: &buf}))

	Debug("debug helper")
	Info("info helper")
	Warn("warn helper")

	output := buf.String()
	for _, want := range []string{"debug helper", "info helper", "warn helper"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
