package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one calendar source watch mode converts.
type SourceConfig struct {
	// Name labels the source in logs.
	Name string `yaml:"name"`
	// Input is a local path, "-" for stdin, or an http(s) URL.
	Input string `yaml:"input"`
	// Output is the org file to write. "-" writes to stdout.
	Output string `yaml:"output"`
	// Emails override the top-level self addresses for this source.
	Emails []string `yaml:"emails,omitempty"`
}

// WatchConfig is the watch-mode block: which sources to convert and how
// often.
type WatchConfig struct {
	// Schedule is a cron expression, e.g. "*/30 * * * *".
	Schedule string `yaml:"schedule"`
	// CacheDir is where fetched URL bodies and their HTTP validators live.
	CacheDir string `yaml:"cache_dir"`
	// Sources is the list of calendars to convert each cycle.
	Sources []SourceConfig `yaml:"sources"`
}

// Config is the top-level configuration. Every field doubles as the
// default for the matching CLI flag; flags given explicitly win.
type Config struct {
	// Days is the window half-width: events from now-days to now+days.
	Days int `yaml:"days"`

	// Timezone is the IANA zone output and dedup hashing use
	// (e.g. "Europe/Berlin"). Empty means the host zone.
	Timezone string `yaml:"timezone"`

	// Emails are the addresses identifying the user; events the user
	// declined are dropped.
	Emails []string `yaml:"emails"`

	// IncludeLocation appends the event location to entry headings.
	// Unset means true.
	IncludeLocation *bool `yaml:"include_location,omitempty"`

	// Watch configures the scheduled multi-source daemon.
	Watch WatchConfig `yaml:"watch"`
}

// DefaultPath returns the standard config location,
// ~/.config/ical2org/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "ical2org.yaml")
	}
	return filepath.Join(dir, "ical2org", "config.yaml")
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	include := true
	return &Config{
		Days:            90,
		Timezone:        "",
		Emails:          []string{},
		IncludeLocation: &include,
		Watch: WatchConfig{
			Schedule: "*/30 * * * *",
			CacheDir: defaultCacheDir(),
			Sources:  []SourceConfig{},
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "ical2org-cache")
	}
	return filepath.Join(dir, "ical2org")
}

// Normalize fills in missing/zero values so partially-filled config files
// still behave correctly.
func (c *Config) Normalize() {
	if c.Days <= 0 {
		c.Days = 90
	}
	if c.Emails == nil {
		c.Emails = []string{}
	}
	if c.IncludeLocation == nil {
		include := true
		c.IncludeLocation = &include
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "*/30 * * * *"
	}
	if c.Watch.CacheDir == "" {
		c.Watch.CacheDir = defaultCacheDir()
	}
	if c.Watch.Sources == nil {
		c.Watch.Sources = []SourceConfig{}
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, the parent directory is created, a default
// config is written with 0600 perms and returned. If it exists, it is
// unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path: parent directory 0700, YAML
// marshalled, written atomically via a temp file + rename, final perms
// 0600 (watch sources can carry credentialed URLs).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".ical2org-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save delegates to the package-level Save:
//
//	cfg, _ := config.Load(path)
//	// ... mutate cfg ...
//	if err := cfg.Save(path); err != nil { ... }
func (c *Config) Save(path string) error {
	return Save(path, c)
}
