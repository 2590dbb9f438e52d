package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(slog.LevelInfo, FormatJSON, &buf)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("book created", BookID(7), Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["book_id"] != "7" {
		t.Errorf("expected book_id 7, got %v", entry["book_id"])
	}
	if _, ok := entry["error"]; ok {
		t.Error("nil error should be omitted")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(slog.LevelDebug, "", &buf)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("visible", slog.String("operation", "book.list"))
	if !strings.Contains(buf.String(), "operation=book.list") {
		t.Errorf("expected text output with operation, got %q", buf.String())
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(slog.LevelInfo, "xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
