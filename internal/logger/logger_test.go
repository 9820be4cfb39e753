package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got error: %v (%q)", err, buf.String())
	}
	return entry
}

func TestNewWithWriter_Production(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)

	log.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be suppressed in production, got %q", buf.String())
	}

	log.Info("parcel submitted", map[string]interface{}{"parcel_id": 7})
	entry := decodeLine(t, &buf)

	if entry["message"] != "parcel submitted" {
		t.Errorf("Expected message field, got %v", entry["message"])
	}
	if entry["service"] != "farmboard" {
		t.Errorf("Expected service field, got %v", entry["service"])
	}
	if entry["parcel_id"] != float64(7) {
		t.Errorf("Expected parcel_id 7, got %v", entry["parcel_id"])
	}
}

func TestNewWithWriter_DevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("development", &buf)

	log.Debug("drawing started", map[string]interface{}{"session": "abc"})

	output := buf.String()
	if !strings.Contains(output, "drawing started") {
		t.Error("Expected debug output in development")
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Error("Expected console output rather than JSON in development")
	}
}

func TestNew(t *testing.T) {
	if New("production").GetZerolog() == nil {
		t.Error("Expected zerolog instance to be available")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *Logger)
		level string
	}{
		{"info", func(l *Logger) { l.Info("m", nil) }, "info"},
		{"warn", func(l *Logger) { l.Warn("m", map[string]interface{}{"k": "v"}) }, "warn"},
		{"error", func(l *Logger) { l.Error("m", errors.New("upstream down"), nil) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewWithWriter("production", &buf))

			entry := decodeLine(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("Expected level %s, got %v", tt.level, entry["level"])
			}
		})
	}
}

func TestError_IncludesCause(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter("production", &buf).Error("publish failed", errors.New("nats: timeout"), nil)

	entry := decodeLine(t, &buf)
	if entry["error"] != "nats: timeout" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("production", &buf)

	base.Component("weather").
		WithRequestID("req-12345").
		With(map[string]interface{}{"lat": 36.8}).
		Info("cache miss", nil)

	entry := decodeLine(t, &buf)
	if entry["component"] != "weather" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["request_id"] != "req-12345" {
		t.Errorf("Expected request_id field, got %v", entry["request_id"])
	}
	if entry["lat"] != 36.8 {
		t.Errorf("Expected lat field, got %v", entry["lat"])
	}
}

func TestNop(t *testing.T) {
	// Should not panic or write anywhere
	Nop().Info("discarded", map[string]interface{}{"k": 1})
	Nop().Error("discarded", errors.New("x"), nil)
}
