package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if ValidLevel("bogus") || !ValidLevel("debug") {
		t.Error("ValidLevel misclassified levels")
	}
}

func TestNewLoggerWithConfig_ConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "nsefees.log")

	logger := NewLoggerWithConfig(LogConfig{
		Level:    "debug",
		Console:  true,
		File:     true,
		FilePath: path,
		MaxSize:  1,
		Out:      &buf,
	})
	LogCalculation(WithTicker(logger, "SCOM"), "buy", decimal.NewFromInt(50), 10,
		decimal.RequireFromString("12.35"), decimal.RequireFromString("2.47"))

	if !strings.Contains(buf.String(), "Fees calculated") || !strings.Contains(buf.String(), "SCOM") {
		t.Errorf("console output missing event: %q", buf.String())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(b), `"total_fees":"12.35"`) {
		t.Errorf("file output missing fields: %s", b)
	}
}

func TestNewLoggerWithConfig_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithConfig(LogConfig{Level: "warn", Console: true, Out: &buf})

	LogRefresh(logger, "2026-10-09", 3, 2, 1, false)
	if buf.Len() != 0 {
		t.Errorf("info event written at warn level: %q", buf.String())
	}
	logger.Warn().Msg("stale prices")
	if !strings.Contains(buf.String(), "stale prices") {
		t.Errorf("warn event missing: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), logger)

	l := FromContext(ctx)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Error("logger not carried by context")
	}

	// Nop logger when absent; must not panic.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
}
