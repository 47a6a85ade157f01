// Structured logging tests
//
// Copyright (C) 2026  BeagleG Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)

	logger.Info("hello %s", "world")

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("expected INFO level, got: %s", output)
	}
	if !strings.Contains(output, "test:") {
		t.Errorf("expected prefix 'test:', got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected message 'hello world', got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetColorize(false)

	// Default level is INFO, so DEBUG should be filtered
	logger.SetLevel(INFO)
	logger.Debug("debug message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG to be filtered, got: %s", buf.String())
	}

	logger.Info("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Errorf("expected INFO to pass, got: %s", buf.String())
	}

	buf.Reset()
	logger.SetLevel(ERROR)
	logger.Warn("warn message")
	if buf.Len() != 0 {
		t.Errorf("expected WARN to be filtered at ERROR level, got: %s", buf.String())
	}
	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected ERROR to pass, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("motion")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)

	logger.Info("queue running")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("level = %q, want INFO", entry.Level)
	}
	if entry.Logger != "motion" {
		t.Errorf("logger = %q, want motion", entry.Logger)
	}
	if entry.Message != "queue running" {
		t.Errorf("message = %q", entry.Message)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetColorize(false)
	logger.SetLevel(DEBUG)

	logger.WithFields(Fields{"slot": 3, "state": "filled"}).Debug("enqueue")

	output := buf.String()
	if !strings.Contains(output, "slot=3") {
		t.Errorf("expected slot field, got: %s", output)
	}
	if !strings.Contains(output, "state=filled") {
		t.Errorf("expected state field, got: %s", output)
	}
}

func TestLoggerWithFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetFormat(FormatJSON)
	logger.SetLevel(DEBUG)

	logger.WithField("cursor", 5).Debugf("slot %d filled", 2)

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if entry.Message != "slot 2 filled" {
		t.Errorf("message = %q", entry.Message)
	}
	if v, ok := entry.Fields["cursor"]; !ok || v.(float64) != 5 {
		t.Errorf("cursor field = %v", entry.Fields)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New("test")
	logger.SetWriter(&buf)
	logger.SetColorize(false)

	logger.WithError(errTest("boom")).Error("mapping failed")

	if !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("expected error field, got: %s", buf.String())
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestLoggerWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := New("beagleg")
	logger.SetWriter(&buf)
	logger.SetColorize(false)

	sub := logger.WithPrefix("gpio")
	sub.Info("mapped")

	if !strings.Contains(buf.String(), "gpio:") {
		t.Errorf("expected gpio prefix, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"WARNING", WARN},
		{"error", ERROR},
		{"bogus", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	levels := map[LogLevel]string{
		DEBUG:        "DEBUG",
		INFO:         "INFO",
		WARN:         "WARN",
		ERROR:        "ERROR",
		LogLevel(42): "UNKNOWN",
	}
	for level, want := range levels {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
	}
}

func TestGetLogger(t *testing.T) {
	logger := GetLogger("pruss")
	if logger == nil {
		t.Fatal("GetLogger returned nil")
	}
	if logger.prefix != "pruss" {
		t.Errorf("prefix = %q, want pruss", logger.prefix)
	}
}
