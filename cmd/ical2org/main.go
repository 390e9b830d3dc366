// Command ical2org converts an iCalendar file into an org-mode outline of
// the events falling inside a window around now.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ical2org/internal/config"
	"ical2org/internal/convert"
	"ical2org/internal/ics"
	appLog "ical2org/internal/log"
	"ical2org/internal/timeutil"
	"ical2org/internal/watch"
)

var (
	flagEmails         []string
	flagDays           int
	flagTimezone       string
	flagLocation       bool
	flagPrintTimezones bool
	flagVerbose        bool
	flagConfig         string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ical2org [flags] ICS_FILE ORG_FILE",
		Short: "Convert an iCalendar file to an org-mode outline",
		Long: `Convert an iCalendar file to an org-mode outline.

ICS_FILE is a local path, an http(s) URL, or - for stdin.
ORG_FILE is a local path, or - for stdout.
Only events within --days days of now are converted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runConvert,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath(), "Path to config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringArrayVarP(&flagEmails, "email", "e", nil, "Your email address; events you declined are dropped (repeatable)")
	cmd.Flags().IntVarP(&flagDays, "days", "d", 90, "Window half-width in days around now")
	cmd.Flags().StringVarP(&flagTimezone, "timezone", "t", "", "Timezone for output (default host-local)")
	cmd.Flags().BoolVar(&flagLocation, "location", true, "Append the event location to entry headings")
	cmd.Flags().BoolVarP(&flagPrintTimezones, "print-timezones", "p", false, "List acceptable timezone names and exit")

	cmd.AddCommand(newWatchCmd(), newTimezonesCmd())

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		appLog.SetLevel(appLog.LevelDebug)
	}
	if flagPrintTimezones {
		return printTimezones(cmd.OutOrStdout())
	}
	if len(args) != 2 {
		return fmt.Errorf("expected ICS_FILE and ORG_FILE arguments, got %d", len(args))
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags given explicitly win over the config file.
	days := cfg.Days
	if cmd.Flags().Changed("days") {
		days = flagDays
	}
	emails := cfg.Emails
	if cmd.Flags().Changed("email") {
		emails = flagEmails
	}
	includeLocation := cfg.IncludeLocation == nil || *cfg.IncludeLocation
	if cmd.Flags().Changed("location") {
		includeLocation = flagLocation
	}
	tzName := cfg.Timezone
	if cmd.Flags().Changed("timezone") {
		tzName = flagTimezone
	}
	loc, err := resolveTimezone(tzName)
	if err != nil {
		return err
	}

	fetcher := ics.NewFetcher(cfg.Watch.CacheDir)
	body, err := fetcher.Open(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if args[1] != "-" {
		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	conv := convert.New(convert.Options{
		Days:            days,
		Location:        loc,
		SelfEmails:      emails,
		IncludeLocation: includeLocation,
	})
	return conv.Convert(bytes.NewReader(body), out)
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Convert configured sources on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagVerbose {
				appLog.SetLevel(appLog.LevelDebug)
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			loc, err := resolveTimezone(cfg.Timezone)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				appLog.Info("signal received, shutting down", "signal", sig.String())
				cancel()
			}()

			return watch.New(cfg, loc).Run(ctx)
		},
	}
}

func newTimezonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timezones",
		Short: "List acceptable timezone names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTimezones(cmd.OutOrStdout())
		},
	}
}

// resolveTimezone maps the configured name to a location; empty means the
// host zone.
func resolveTimezone(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q (use --print-timezones to list valid names)", name)
	}
	return loc, nil
}

func printTimezones(w io.Writer) error {
	zones, err := timeutil.ListZones()
	if err != nil {
		return fmt.Errorf("list timezones: %w", err)
	}
	for _, z := range zones {
		fmt.Fprintln(w, z)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
