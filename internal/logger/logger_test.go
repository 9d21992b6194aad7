// Package logger tests verify the custom [Handler] output format, level
// filtering, runtime level changes, and the [ReadTail] utility.
package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// Handler Output Format
// ///////////////////////////////////////////////

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo)
	logger := slog.New(h)

	logger.Info("test message", "key", "value")

	line := buf.String()
	// Trim platform-specific line ending
	line = strings.TrimRight(line, "\r\n")

	// Check format: timestamp [LEVEL] message | key=value
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("expected [INFO] in output, got %q", line)
	}
	if !strings.Contains(line, "test message") {
		t.Errorf("expected message in output, got %q", line)
	}
	if !strings.Contains(line, "| key=value") {
		t.Errorf("expected key=value in output, got %q", line)
	}
	// Timestamp should end with Z (UTC)
	if !strings.HasSuffix(strings.Split(line, " [")[0], "Z") {
		t.Errorf("expected UTC timestamp ending with Z, got %q", line)
	}
}

func TestHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo)
	logger := slog.New(h)

	logger.Info("no attrs")

	line := strings.TrimRight(buf.String(), "\r\n")
	if strings.Contains(line, "|") {
		t.Errorf("expected no pipe separator without attrs, got %q", line)
	}
}

func TestHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo)
	logger := slog.New(h).WithGroup("signal")

	logger.Warn("received", "name", "SIGTERM")

	line := strings.TrimRight(buf.String(), "\r\n")
	if !strings.Contains(line, "signal.name=SIGTERM") {
		t.Errorf("expected grouped attr key, got %q", line)
	}
}

// ///////////////////////////////////////////////
// Level Filtering
// ///////////////////////////////////////////////

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelWarn)
	logger := slog.New(h)

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("expected info record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("expected warn record to pass, got %q", out)
	}
}

func TestHandler_LevelVarChange(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(LevelWarn)
	logger := slog.New(NewHandler(&buf, level))

	logger.Debug("before")
	level.Set(LevelDebug)
	logger.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("expected debug filtered before level change, got %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("expected debug emitted after level change, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"fail", LevelFail},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Sink
// ///////////////////////////////////////////////

func TestSink_LevelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	_, sink, err := NewLogger(filepath.Join(dir, "daemon.log"), LevelInfo, 1, 1)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer sink.Close()

	if sink.Level() != LevelInfo {
		t.Errorf("initial level = %v, want info", sink.Level())
	}
	sink.SetLevel(LevelTrace)
	if sink.Level() != LevelTrace {
		t.Errorf("level after SetLevel = %v, want trace", sink.Level())
	}
}

func TestSink_RotateCreatesNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.log")
	logger, sink, err := NewLogger(path, LevelInfo, 1, 2)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer sink.Close()

	logger.Info("before roll")
	if err := sink.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	logger.Info("after roll")

	// The live file should only hold the post-roll line.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(data), "before roll") {
		t.Errorf("expected pre-roll content rotated away, got %q", data)
	}
	if !strings.Contains(string(data), "after roll") {
		t.Errorf("expected post-roll content in live file, got %q", data)
	}
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

func TestReadTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "line-"+string(rune('0'+i)))
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadTail(path, 3)
	if err != nil {
		t.Fatalf("ReadTail failed: %v", err)
	}
	want := "line-7\nline-8\nline-9"
	if got != want {
		t.Errorf("ReadTail = %q, want %q", got, want)
	}
}

func TestReadTail_FewerLinesThanRequested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(path, []byte("only\nlines\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := ReadTail(path, 10)
	if err != nil {
		t.Fatalf("ReadTail failed: %v", err)
	}
	if got != "only\nlines" {
		t.Errorf("ReadTail = %q", got)
	}
}

func TestReadTail_MissingFile(t *testing.T) {
	if _, err := ReadTail(filepath.Join(t.TempDir(), "nope.log"), 5); err == nil {
		t.Errorf("expected error for missing file")
	}
}
