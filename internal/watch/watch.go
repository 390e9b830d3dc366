// Package watch runs scheduled conversions of configured calendar
// sources, so org files stay current without a cron entry per calendar.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"ical2org/internal/config"
	"ical2org/internal/convert"
	"ical2org/internal/ics"
	appLog "ical2org/internal/log"
)

// Watcher converts every configured source once at startup and again on
// each cron tick, until the context is cancelled.
type Watcher struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher *ics.Fetcher
}

func New(cfg *config.Config, loc *time.Location) *Watcher {
	return &Watcher{
		cfg:     cfg,
		loc:     loc,
		fetcher: ics.NewFetcher(cfg.Watch.CacheDir),
	}
}

// Run blocks until ctx is cancelled. A failing source logs an error and
// waits for the next cycle; only an empty source list or a bad schedule
// is fatal.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.cfg.Watch.Sources) == 0 {
		return fmt.Errorf("no watch sources configured")
	}
	// Validate the schedule before the first conversion, so a config typo
	// fails fast instead of after a full cycle.
	if _, err := cron.ParseStandard(w.cfg.Watch.Schedule); err != nil {
		return fmt.Errorf("bad watch schedule %q: %w", w.cfg.Watch.Schedule, err)
	}

	appLog.Info("watch starting",
		"sources", len(w.cfg.Watch.Sources),
		"schedule", w.cfg.Watch.Schedule)

	w.runAll(ctx)

	c := cron.New()
	if _, err := c.AddFunc(w.cfg.Watch.Schedule, func() { w.runAll(ctx) }); err != nil {
		return fmt.Errorf("bad watch schedule %q: %w", w.cfg.Watch.Schedule, err)
	}
	c.Start()

	<-ctx.Done()
	appLog.Info("watch stopping")
	// Let a conversion in flight finish before returning.
	<-c.Stop().Done()
	return nil
}

func (w *Watcher) runAll(ctx context.Context) {
	for _, src := range w.cfg.Watch.Sources {
		if ctx.Err() != nil {
			return
		}
		if err := w.runSource(ctx, src); err != nil {
			appLog.Error("source conversion failed", err, "source", src.Name)
			continue
		}
		appLog.Info("source converted", "source", src.Name, "output", src.Output)
	}
}

// runSource converts one source with a fresh Convertor, so each cycle
// gets its own window and dedup registry. The org file is replaced
// atomically; a failed conversion never truncates the previous output.
func (w *Watcher) runSource(ctx context.Context, src config.SourceConfig) error {
	body, err := w.fetcher.Open(ctx, src.Input)
	if err != nil {
		return fmt.Errorf("open %s: %w", src.Input, err)
	}

	emails := src.Emails
	if emails == nil {
		emails = w.cfg.Emails
	}
	conv := convert.New(convert.Options{
		Days:            w.cfg.Days,
		Location:        w.loc,
		SelfEmails:      emails,
		IncludeLocation: w.cfg.IncludeLocation == nil || *w.cfg.IncludeLocation,
	})

	if src.Output == "-" {
		return conv.Convert(bytes.NewReader(body), os.Stdout)
	}

	var out bytes.Buffer
	if err := conv.Convert(bytes.NewReader(body), &out); err != nil {
		return err
	}
	return writeAtomic(src.Output, out.Bytes())
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ical2org-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
