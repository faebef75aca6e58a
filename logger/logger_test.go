package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "swapdesk.log")
	log := Logger()
	if err := log.Configure("debug", "json", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	log.WithComponent("file_test").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte(`"component":"file_test"`)) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestLogPerformanceEntry(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	LogPerformanceEntry(log.WithComponent("x"), "quotes", "fetch", 1500*time.Microsecond, nil)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if got["operation"] != "fetch" || got["component"] != "quotes" {
		t.Fatalf("unexpected fields: %v", got)
	}
	if got["duration_ms"] != 1.5 {
		t.Fatalf("duration_ms = %v, want 1.5", got["duration_ms"])
	}
}

func TestReportCountsWarningsByComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	log.WithComponent("report_test").Warn("first")
	log.WithComponent("report_test").Error("second")
	RecordChannelMessage("report_test_channel", 42)

	fields := reportFields()
	if got := fields["warnings"].(map[string]int64)["report_test"]; got != 1 {
		t.Fatalf("warnings = %d", got)
	}
	if got := fields["errors"].(map[string]int64)["report_test"]; got != 1 {
		t.Fatalf("errors = %d", got)
	}
	ch := fields["channels"].(map[string]map[string]int64)["report_test_channel"]
	if ch["messages"] != 1 || ch["bytes"] != 42 {
		t.Fatalf("unexpected channel stats: %v", ch)
	}
}
