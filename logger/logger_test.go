package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "invalid-level", Format: "json", Output: "stdout"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewWithWriterWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "phrame")
	l.Info("generated", Fields(FieldProvider, "openai", "count", 2))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "generated" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["provider"] != "openai" {
		t.Errorf("provider = %v", entry["provider"])
	}
	if entry["service"] != "phrame" {
		t.Errorf("service = %v", entry["service"])
	}
}

func TestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn", "phrame")
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn entry should be written")
	}
}

func TestWithContextAddsSummaryID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "phrame")
	ctx := context.WithValue(context.Background(), ContextKeySummaryID, "s-42")
	l.WithContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), `"summary_id":"s-42"`) {
		t.Errorf("expected summary_id in %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("test")
	cl := l.WithComponent("handler")
	if cl.service != "test" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestGetReturnsRegistered(t *testing.T) {
	SetGlobalLogger(Nop())
	named := Nop()
	Register("acquisition", named)
	if Get("acquisition") != named {
		t.Error("expected registered logger")
	}
	if Get("other") == nil {
		t.Error("expected derived logger for unregistered name")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidateRejectsLevel(t *testing.T) {
	cfg := Config{Level: "loud", Format: "json"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFields(t *testing.T) {
	f := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(f) != 2 {
		t.Fatalf("expected 2 fields, got %d: %v", len(f), f)
	}
	if f["a"] != 1 || f["b"] != "two" {
		t.Errorf("unexpected fields %v", f)
	}
}

func TestOutcome(t *testing.T) {
	f := Outcome("poll", 1500*time.Millisecond, nil)
	if f[FieldDuration] != int64(1500) || f[FieldOperation] != "poll" {
		t.Errorf("fields = %v", f)
	}
	if _, ok := f[FieldError]; ok {
		t.Error("error key set without an error")
	}
	f = Outcome("poll", 0, errors.New("queue full"))
	if f[FieldError] != "queue full" {
		t.Errorf("error = %v", f[FieldError])
	}
}

func TestRedact(t *testing.T) {
	in := map[string]interface{}{
		"api_key":    "sk-123",
		"session_id": "abc",
		"prompt":     "a lighthouse",
		"max_tokens": 256,
		"nested":     map[string]interface{}{"password": "hunter2", "size": 512},
	}
	out := Redact(in)

	if out["api_key"] != Redacted {
		t.Errorf("api_key = %v", out["api_key"])
	}
	if out["session_id"] != Redacted {
		t.Errorf("session_id = %v", out["session_id"])
	}
	if out["prompt"] != "a lighthouse" {
		t.Errorf("prompt = %v", out["prompt"])
	}
	if out["max_tokens"] != 256 {
		t.Errorf("non-string values are kept, got %v", out["max_tokens"])
	}
	nested := out["nested"].(map[string]interface{})
	if nested["password"] != Redacted || nested["size"] != 512 {
		t.Errorf("nested = %v", nested)
	}
	if in["api_key"] != "sk-123" {
		t.Error("input map must not be modified")
	}
}

func TestRedactDisabled(t *testing.T) {
	cfg := Config{Unredacted: true}
	cfg.ApplyDefaults()
	defer func() {
		c := Config{}
		c.ApplyDefaults()
	}()

	out := Redact(map[string]interface{}{"token": "t"})
	if out["token"] != "t" {
		t.Errorf("expected raw value with redaction off, got %v", out["token"])
	}
}
