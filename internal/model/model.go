package model

import "time"

// RawTime is a date or date-time property value exactly as it appeared in
// the source document, before timezone resolution. Resolution against the
// run timezone happens in internal/timeutil; keeping the raw form here
// means the parser never has to guess which zone a floating time belongs
// to.
type RawTime struct {
	Value    string // 20240102T090000Z, 20240102T090000 or 20240102
	TZID     string // TZID parameter, empty when absent
	DateOnly bool   // VALUE=DATE, or the value carries no time part
}

// IsZero reports whether the property was absent from the source.
func (rt RawTime) IsZero() bool {
	return rt.Value == ""
}

// Attendee is one ATTENDEE property with the parameters the engine cares
// about.
type Attendee struct {
	// Address is the raw calendar address, e.g. "mailto:ann@example.org".
	Address string
	// CN is the display-name parameter, empty when absent.
	CN string
	// PartStat is the participation status, e.g. "ACCEPTED" or "DECLINED".
	PartStat string
}

// NoUID is the sentinel identity for events whose source omitted a UID.
const NoUID = "**NOID**"

// Event is one calendar component as parsed, before recurrence expansion.
// Immutable once built; the engine only reads it.
type Event struct {
	UID string // empty when the source omitted it

	Summary     string
	Description string
	Location    string
	Organizer   string // raw calendar address, empty when absent

	Start    RawTime
	End      RawTime // zero when absent
	Duration string  // raw RFC 5545 duration, e.g. "PT1H", empty when absent
	DTStamp  RawTime

	RawRRule  string // raw recurrence rule text, empty for single events
	ExDates   []RawTime
	Attendees []Attendee
}

// Recurring reports whether the event carries a recurrence rule.
func (e *Event) Recurring() bool {
	return e.RawRRule != ""
}

// Identity returns the event's UID, or the NoUID sentinel when the source
// omitted one.
func (e *Event) Identity() string {
	if e.UID == "" {
		return NoUID
	}
	return e.UID
}

// Occurrence is a single concrete instance of an event, after recurrence
// expansion and timezone normalization. Start and End are timezone-aware.
type Occurrence struct {
	Start     time.Time
	End       time.Time
	Recurring bool
}

// Window is the half-open [Start, End) range occurrences are clipped to.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds the window now-days .. now+days in UTC.
func NewWindow(now time.Time, days int) Window {
	d := time.Duration(days) * 24 * time.Hour
	return Window{
		Start: now.UTC().Add(-d),
		End:   now.UTC().Add(d),
	}
}

// Overlaps reports whether [start, end] strictly overlaps the window.
// Touching an edge is not enough: a meeting ending exactly at the window
// start stays out.
func (w Window) Overlaps(start, end time.Time) bool {
	return start.Before(w.End) && end.After(w.Start)
}
