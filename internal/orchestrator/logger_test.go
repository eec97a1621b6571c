package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDebugLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "scheduler.log")

	logger, err := NewDebugLogger(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Log("wave of %d", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "wave of 3") {
		t.Errorf("log file missing message, got %q", string(data))
	}
}

func TestNewDebugLoggerEmptyPathIsNoOp(t *testing.T) {
	logger, err := NewDebugLogger("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Log("should go nowhere")
	if err := logger.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestNopLoggerIsSafe(t *testing.T) {
	logger := NopLogger()
	logger.Log("nothing")
	if err := logger.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	var nilLogger *DebugLogger
	nilLogger.Log("still nothing")
	if err := nilLogger.Close(); err != nil {
		t.Fatalf("unexpected close error on nil: %v", err)
	}
}

func TestSetDebugLoggerRoutesPackageLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "scheduler.log")
	logger, err := NewDebugLogger(logPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	SetDebugLogger(logger)
	defer SetDebugLogger(nil)

	debugLog("task %s wave of %d", "t1", 2)
	logger.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "task t1 wave of 2") {
		t.Errorf("log file missing routed message, got %q", string(data))
	}
}
