package expand

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"ical2org/internal/ics"
	appLog "ical2org/internal/log"
	"ical2org/internal/model"
	"ical2org/internal/timeutil"
)

// Safety cap for one event's expansion. Windowing already bounds the
// result, but a minutely rule over a wide window can still explode.
const maxOccurrencesPerEvent = 5000

// Generate materializes the occurrences of one event that fall inside the
// window. The two shapes an event can take select the variant: an event
// without a recurrence rule contributes at most one occurrence, an event
// with one contributes every rule candidate inside [win.Start, win.End).
//
// A recurrence rule that cannot be decoded is not an error: the event
// yields nothing and a warning is logged, so one broken rule does not take
// the rest of the calendar down. Malformed time values are errors and
// abort the run.
//
// Occurrences come back in ascending start order; callers must not depend
// on the order beyond that.
func Generate(ev *model.Event, win model.Window, loc *time.Location, selfEmails map[string]bool) ([]model.Occurrence, error) {
	if Declined(ev, selfEmails) {
		appLog.Debug("event declined, skipping", "uid", ev.UID)
		return nil, nil
	}

	evStart, err := timeutil.Normalize(ev.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("DTSTART: %w", err)
	}
	evEnd, err := resolveEnd(ev, evStart, loc)
	if err != nil {
		return nil, err
	}

	if !ev.Recurring() {
		return generateSingle(ev, evStart, evEnd, win, loc)
	}
	return generateRecurring(ev, evStart, evEnd, win, loc)
}

// resolveEnd picks the event end: an explicit end wins, then a duration
// added to the start, then the start itself (zero-length event).
func resolveEnd(ev *model.Event, evStart time.Time, loc *time.Location) (time.Time, error) {
	if !ev.End.IsZero() {
		end, err := timeutil.Normalize(ev.End, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return end, nil
	}
	if ev.Duration != "" {
		d, err := ics.ParseDuration(ev.Duration)
		if err != nil {
			return time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return d.AddTo(evStart), nil
	}
	return evStart, nil
}

func generateSingle(ev *model.Event, evStart, evEnd time.Time, win model.Window, loc *time.Location) ([]model.Occurrence, error) {
	if !win.Overlaps(evStart, evEnd) {
		return nil, nil
	}

	excluded, err := Exclusions(ev, loc)
	if err != nil {
		return nil, err
	}
	for _, ex := range excluded {
		if ex.Equal(evStart) {
			return nil, nil
		}
	}

	return []model.Occurrence{{Start: evStart, End: evEnd}}, nil
}

func generateRecurring(ev *model.Event, evStart, evEnd time.Time, win model.Window, loc *time.Location) ([]model.Occurrence, error) {
	duration := evEnd.Sub(evStart)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("could not decode RRULE", "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil, nil
	}
	r.DTStart(evStart)

	// Build a set so exception instants subtract from the rule before
	// enumeration. The set compares instants, so exclusions normalized in
	// the run timezone still remove candidates generated in the event's
	// own zone.
	var set rrule.Set
	set.RRule(r)

	excluded, err := Exclusions(ev, loc)
	if err != nil {
		return nil, err
	}
	for _, ex := range excluded {
		set.ExDate(ex)
	}

	// Between is inclusive at both edges; the window is half-open, so
	// candidates landing exactly on win.End are dropped below.
	candidates := set.Between(win.Start, win.End, true)
	if len(candidates) > maxOccurrencesPerEvent {
		appLog.Warn("occurrence cap hit, truncating", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		candidates = candidates[:maxOccurrencesPerEvent]
	}

	out := make([]model.Occurrence, 0, len(candidates))
	for _, c := range candidates {
		if !c.Before(win.End) {
			continue
		}
		out = append(out, model.Occurrence{
			Start:     c,
			End:       c.Add(duration),
			Recurring: true,
		})
	}
	return out, nil
}
