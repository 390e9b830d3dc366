package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ical2org/internal/config"
)

const testCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//ical2org//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:watch@example.org\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20990116T090000Z\r\n" +
	"DTEND:20990116T100000Z\r\n" +
	"SUMMARY:Far future\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func testConfig(t *testing.T, src config.SourceConfig) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Watch.CacheDir = t.TempDir()
	cfg.Watch.Sources = []config.SourceConfig{src}
	// Window wide enough to reach the fixture event.
	cfg.Days = 40000
	return cfg
}

func TestRunSourceWritesOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cal.ics")
	output := filepath.Join(dir, "cal.org")
	if err := os.WriteFile(input, []byte(testCalendar), 0o600); err != nil {
		t.Fatal(err)
	}

	src := config.SourceConfig{Name: "test", Input: input, Output: output}
	w := New(testConfig(t, src), time.UTC)

	if err := w.runSource(context.Background(), src); err != nil {
		t.Fatalf("runSource: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), "* Far future") {
		t.Errorf("output missing entry:\n%s", data)
	}
}

func TestRunSourceMissingInput(t *testing.T) {
	src := config.SourceConfig{
		Name:   "broken",
		Input:  filepath.Join(t.TempDir(), "nope.ics"),
		Output: filepath.Join(t.TempDir(), "out.org"),
	}
	w := New(testConfig(t, src), time.UTC)

	if err := w.runSource(context.Background(), src); err == nil {
		t.Error("runSource succeeded on a missing input")
	}
}

func TestRunFailedSourceKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "cal.org")
	if err := os.WriteFile(output, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := config.SourceConfig{
		Name:   "broken",
		Input:  filepath.Join(dir, "nope.ics"),
		Output: output,
	}
	w := New(testConfig(t, src), time.UTC)

	if err := w.runSource(context.Background(), src); err == nil {
		t.Fatal("runSource succeeded on a missing input")
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "previous run\n" {
		t.Errorf("previous output not preserved: %q, %v", data, err)
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t, config.SourceConfig{Name: "x", Input: "-", Output: "-"})
	cfg.Watch.Schedule = "not a schedule"
	w := New(cfg, time.UTC)

	if err := w.Run(context.Background()); err == nil {
		t.Error("Run accepted a bad schedule")
	}
}

func TestRunRejectsEmptySources(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Watch.CacheDir = t.TempDir()
	w := New(cfg, time.UTC)

	if err := w.Run(context.Background()); err == nil {
		t.Error("Run accepted an empty source list")
	}
}
