package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"stocksearch/config"
	"stocksearch/logger"

	"go.uber.org/zap/zapcore"
)

// go test -v --run TestNewConsoleLogger
func TestNewConsoleLogger(t *testing.T) {
	log, err := logger.New(config.LogConfig{Level: "debug", Format: "console", Environment: "dev"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}
}

// go test -v --run TestNewInvalidLevel
func TestNewInvalidLevel(t *testing.T) {
	if _, err := logger.New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level, got nil")
	}
}

// go test -v --run TestNewWithFileOutput
func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stocksearch.log")

	log, err := logger.New(config.LogConfig{Level: "info", Format: "json", OutputFile: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected log file to exist: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected log file to contain the written entry")
	}
}
