package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
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
		{"warning", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
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

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentSeed})

	logger.Info("dataset loaded", FieldInserted, 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentSeed {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentSeed)
	}
	if rec[FieldInserted] != float64(3) {
		t.Errorf("inserted = %v, want 3", rec[FieldInserted])
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithMonth(0).
		WithError(nil).
		WithRequestID("").
		WithOperation(OpStatistics)
	if len(f) != 1 {
		t.Errorf("empty values should be skipped, got %v", f)
	}

	f = NewFields().WithMonth(3).WithError(errors.New("boom"))
	if f[FieldMonth] != 3 || f[FieldError] != "boom" {
		t.Errorf("unexpected fields %v", f)
	}
	if got := len(f.ToSlice()); got != 4 {
		t.Errorf("ToSlice() len = %d, want 4", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	var fromHandler *Logger
	h := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromHandler = FromContext(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/statistics?month=3", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if fromHandler == nil || fromHandler.Component() != ComponentHTTP {
		t.Fatalf("handler did not get the request logger: %+v", fromHandler)
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", rec["level"])
	}
	if rec[FieldStatusCode] != float64(500) {
		t.Errorf("status = %v, want 500", rec[FieldStatusCode])
	}
	if id, _ := rec[FieldRequestID].(string); id == "" {
		t.Error("request id missing")
	}
	if !strings.Contains(rec[FieldQuery].(string), "month=3") {
		t.Errorf("query = %v", rec[FieldQuery])
	}
}

func TestFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if l := FromContext(req.Context()); l == nil || l.Logger == nil {
		t.Fatal("FromContext should fall back to the default logger")
	}
}
