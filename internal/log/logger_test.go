package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
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
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestJSONFormatAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentDataset, Output: &buf})

	l.Debug("hidden")
	l.Info("Dataset loaded", FieldLessonCount, 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec[FieldComponent] != ComponentDataset || rec[FieldLessonCount] != 3.0 {
		t.Fatalf("record = %v", rec)
	}
}

func TestWithComponentSharesHandler(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Format: "text", Component: ComponentApp, Output: &buf})
	base.WithComponent(ComponentWorker).Warn("tick")

	if !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("output = %s", buf.String())
	}
	if strings.Count(buf.String(), "component=") != 1 {
		t.Fatalf("component must be logged once: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("fallback component = %s", l.Component())
	}

	logger := New(DefaultConfig()).WithComponent(ComponentHTTP)
	var seen *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if seen != logger {
		t.Fatal("middleware did not store the logger")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "text", Output: &buf}))
	r := httptest.NewRequest("GET", "/api/dashboard?type=X", nil)

	sl.LogHTTPEnd(context.Background(), r, "req-1", 502, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("output = %s", buf.String())
	}

	buf.Reset()
	sl.LogRefresh(context.Background(), "api", "", 0, 0, 5, errors.New("upstream down"))
	if !strings.Contains(buf.String(), "Dataset refresh failed") || !strings.Contains(buf.String(), "upstream down") {
		t.Fatalf("output = %s", buf.String())
	}

	buf.Reset()
	sl.LogRefresh(context.Background(), "schedule", "abc", 3, 2, 5, nil)
	if !strings.Contains(buf.String(), "snapshot_id=abc") {
		t.Fatalf("output = %s", buf.String())
	}
}
