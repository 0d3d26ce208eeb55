package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "bugtrack.log")

	logger, err := New(path, "debug")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("refreshing token")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "refreshing token") {
		t.Errorf("expected debug line in log, got %q", data)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bugtrack.log")

	logger, err := New(path, "warn")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "quiet") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Error("warn line missing")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "x.log"), "chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewEmptyPathIsNop(t *testing.T) {
	logger, err := New("", "info")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("dropped")
}
