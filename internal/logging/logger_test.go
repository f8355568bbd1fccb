package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json format", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, err := New(&buf, "info", "json")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("hello", "table", "health_check")
		if !strings.Contains(buf.String(), `"table":"health_check"`) {
			t.Errorf("expected JSON output, got %s", buf.String())
		}
	})

	t.Run("text format filters below level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger, err := New(&buf, "warn", "text")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("hidden")
		logger.Warn("shown")
		if strings.Contains(buf.String(), "hidden") {
			t.Errorf("info message should be filtered at warn level: %s", buf.String())
		}
		if !strings.Contains(buf.String(), "shown") {
			t.Errorf("warn message missing: %s", buf.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		t.Parallel()
		if _, err := New(&bytes.Buffer{}, "loud", "text"); err == nil {
			t.Error("expected error for unknown level")
		}
	})
}
