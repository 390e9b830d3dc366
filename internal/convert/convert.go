package convert

import (
	"fmt"
	"io"
	"time"

	"ical2org/internal/expand"
	"ical2org/internal/ics"
	appLog "ical2org/internal/log"
	"ical2org/internal/model"
	"ical2org/internal/org"
)

// Options are the knobs one conversion run honors.
type Options struct {
	// Days is the window half-width: the window spans now-days to
	// now+days. Negative values clamp to zero.
	Days int
	// Location is the target timezone for output and identity hashing.
	// Nil means the host timezone.
	Location *time.Location
	// SelfEmails identify the user for declined-event suppression.
	SelfEmails []string
	// IncludeLocation appends the location to entry headings.
	IncludeLocation bool
}

// Convertor drives one conversion run: parse, window, generate, dedup,
// write. It owns the seen-hash registry, so a second document converted
// through the same Convertor dedups against the first; a fresh run needs
// a fresh Convertor.
type Convertor struct {
	opts   Options
	emails map[string]bool
	seen   *Registry

	now func() time.Time // stubbed in tests
}

func New(opts Options) *Convertor {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Days < 0 {
		opts.Days = 0
	}
	emails := make(map[string]bool, len(opts.SelfEmails))
	for _, e := range opts.SelfEmails {
		emails[e] = true
	}
	return &Convertor{
		opts:   opts,
		emails: emails,
		seen:   NewRegistry(),
		now:    time.Now,
	}
}

// Convert reads one iCalendar document from r and writes org entries for
// every unique occurrence inside the window to w. The first failing event
// aborts the run; output written before that point stays written.
func (c *Convertor) Convert(r io.Reader, w io.Writer) error {
	events, err := ics.Parse(r)
	if err != nil {
		return err
	}

	win := model.NewWindow(c.now(), c.opts.Days)
	writer := org.NewWriter(w, c.opts.Location, c.opts.IncludeLocation)

	accepted := 0
	for i := range events {
		ev := &events[i]
		occs, err := expand.Generate(ev, win, c.opts.Location, c.emails)
		if err != nil {
			return fmt.Errorf("event %q: %w", ev.Identity(), err)
		}
		for _, occ := range occs {
			id := OccurrenceID(occ, ev, c.opts.Location)
			if !c.seen.Add(id) {
				appLog.Debug("duplicate occurrence dropped", "uid", ev.Identity(), "start", occ.Start)
				continue
			}
			if err := writer.WriteEntry(occ, ev, id); err != nil {
				return fmt.Errorf("event %q: %w", ev.Identity(), err)
			}
			accepted++
		}
	}

	appLog.Debug("conversion finished", "events", len(events), "entries", accepted)
	return nil
}
