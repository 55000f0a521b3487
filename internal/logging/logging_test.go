// ABOUTME: Tests for log output setup
// ABOUTME: Verifies file output and debug gating
package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "test.log")
	closer := Setup(Options{File: path, MaxSizeMB: 1})

	log.Printf("hello from test")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing line: %q", data)
	}
}

func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	defer log.SetOutput(os.Stderr)
	defer Setup(Options{})

	Setup(Options{})
	log.SetOutput(&buf)
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("debug line written while disabled: %q", buf.String())
	}

	Setup(Options{Debug: true})
	log.SetOutput(&buf)
	Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "DEBUG: shown 2") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}
