package timeutil

import (
	"fmt"
	"strings"
	"time"

	"ical2org/internal/model"
)

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"
)

// Normalize resolves a raw date or date-time value into a timezone-aware
// instant.
//
// Values that already carry a zone (a trailing Z, or a TZID parameter) come
// back in that zone untouched. Floating values are taken as wall-clock time
// in def. Date-only values are read as midnight UTC and then converted to
// def; constructing local midnight directly is ambiguous around DST
// transitions.
func Normalize(rt model.RawTime, def *time.Location) (time.Time, error) {
	if rt.IsZero() {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if rt.DateOnly {
		t, err := time.ParseInLocation(layoutDate, rt.Value, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad date %q: %w", rt.Value, err)
		}
		return t.In(def), nil
	}
	if strings.HasSuffix(rt.Value, "Z") {
		t, err := time.ParseInLocation(layoutUTC, rt.Value, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad UTC time %q: %w", rt.Value, err)
		}
		return t, nil
	}
	if rt.TZID != "" {
		loc, err := time.LoadLocation(rt.TZID)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown TZID %q: %w", rt.TZID, err)
		}
		t, err := time.ParseInLocation(layoutFloating, rt.Value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", rt.Value, err)
		}
		return t, nil
	}
	t, err := time.ParseInLocation(layoutFloating, rt.Value, def)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", rt.Value, err)
	}
	return t, nil
}

// AddWallClock adds d to t in wall-clock terms: the civil date and time
// move by d, and the zone offset is re-resolved at the new wall-clock
// point. Adding 24h across a DST change keeps the local time of day, where
// plain Add would shift it by the transition delta.
func AddWallClock(t time.Time, d time.Duration) time.Time {
	civil := time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	civil = civil.Add(d)
	return time.Date(civil.Year(), civil.Month(), civil.Day(),
		civil.Hour(), civil.Minute(), civil.Second(), civil.Nanosecond(), t.Location())
}
