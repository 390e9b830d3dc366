package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFirstRunCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Days != 90 {
		t.Errorf("Days = %d, want 90", cfg.Days)
	}
	if cfg.IncludeLocation == nil || !*cfg.IncludeLocation {
		t.Errorf("IncludeLocation = %v, want true", cfg.IncludeLocation)
	}
	if cfg.Watch.Schedule != "*/30 * * * *" {
		t.Errorf("Watch.Schedule = %q", cfg.Watch.Schedule)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	include := false
	in := &Config{
		Days:            30,
		Timezone:        "Europe/Berlin",
		Emails:          []string{"me@example.org"},
		IncludeLocation: &include,
		Watch: WatchConfig{
			Schedule: "0 * * * *",
			CacheDir: "/tmp/cache",
			Sources: []SourceConfig{
				{Name: "work", Input: "https://example.org/cal.ics", Output: "work.org"},
			},
		},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Days != 30 || out.Timezone != "Europe/Berlin" {
		t.Errorf("got Days=%d Timezone=%q", out.Days, out.Timezone)
	}
	if out.IncludeLocation == nil || *out.IncludeLocation {
		t.Errorf("IncludeLocation = %v, want false", out.IncludeLocation)
	}
	if len(out.Watch.Sources) != 1 || out.Watch.Sources[0].Name != "work" {
		t.Errorf("Watch.Sources = %+v", out.Watch.Sources)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	if cfg.Days != 90 {
		t.Errorf("Days = %d, want 90", cfg.Days)
	}
	if cfg.IncludeLocation == nil || !*cfg.IncludeLocation {
		t.Error("IncludeLocation not defaulted to true")
	}
	if cfg.Watch.Schedule == "" || cfg.Watch.CacheDir == "" {
		t.Errorf("watch defaults missing: %+v", cfg.Watch)
	}
	if cfg.Emails == nil || cfg.Watch.Sources == nil {
		t.Error("nil slices not normalized")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded, want error")
	}
}
