package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Output: &buf}); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	Debug("hidden message")
	Info("draft flushed", "form", "daily-session")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "draft flushed") || !strings.Contains(out, "daily-session") {
		t.Errorf("expected info message with key-values, got %q", out)
	}
}

func TestInitWithFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "ipurpose.log")
	if err := Init(Config{Level: "debug", File: logFile, Quiet: true}); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	Debug("Test debug message")
	Warn("Test warning message")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "Test warning message") {
		t.Errorf("log file missing warning: %q", string(data))
	}
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
