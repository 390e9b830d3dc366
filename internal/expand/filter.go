package expand

import (
	"fmt"
	"time"

	"ical2org/internal/model"
	"ical2org/internal/timeutil"
)

// Declined reports whether the event should contribute nothing at all:
// some attendee declined it, and that attendee's display name is one of
// the run's own addresses. The whole series is suppressed, not just
// single instances, and the check runs before any windowing.
func Declined(ev *model.Event, selfEmails map[string]bool) bool {
	if len(selfEmails) == 0 {
		return false
	}
	for _, att := range ev.Attendees {
		if att.PartStat == "DECLINED" && selfEmails[att.CN] {
			return true
		}
	}
	return false
}

// Exclusions resolves the event's exception instants against the run
// timezone. Matching against candidates is by exact instant, never by
// date, so the zone an exclusion was written in does not matter.
func Exclusions(ev *model.Event, loc *time.Location) ([]time.Time, error) {
	if len(ev.ExDates) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(ev.ExDates))
	for _, rt := range ev.ExDates {
		t, err := timeutil.Normalize(rt, loc)
		if err != nil {
			return nil, fmt.Errorf("EXDATE: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}
