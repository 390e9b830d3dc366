package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "ical2org/internal/log"
	"ical2org/internal/model"
)

// ErrParse marks a source document the calendar parser rejected outright,
// as opposed to a failure on one event inside an otherwise readable
// document.
var ErrParse = errors.New("unparsable calendar document")

// Parse reads one iCalendar document and returns its VEVENTs in document
// order.
//
//   - Time values stay raw (value text plus TZID/VALUE parameters);
//     resolving them against the run timezone is internal/timeutil's job.
//   - RRULE is kept as raw text; expansion happens in internal/expand.
//   - A broken event aborts the whole call with the event named in the
//     error, matching the run-level failure contract for malformed input.
func Parse(r io.Reader) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(ve)
		if perr != nil {
			return nil, fmt.Errorf("event %q: %w", eventName(ve), perr)
		}
		events = append(events, ev)
	}

	appLog.Debug("parsed calendar", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	// UID may legitimately be absent; the emitter substitutes a sentinel.
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		out.Organizer = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	out.Start = rawTime(dtStart)

	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		out.End = rawTime(p)
	}
	// Use the string property name to avoid dependency on constant variants.
	if p := ve.GetProperty(ical.ComponentProperty("DURATION")); p != nil {
		out.Duration = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtstamp); p != nil {
		out.DTStamp = rawTime(p)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times, each carrying a comma-separated
	// list. Each entry inherits the parameters of its own property line.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out.ExDates = append(out.ExDates, model.RawTime{
				Value:    part,
				TZID:     firstParam(p, "TZID"),
				DateOnly: isDateValue(p, part),
			})
		}
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		out.Attendees = append(out.Attendees, model.Attendee{
			Address:  p.Value,
			CN:       firstParam(p, "CN"),
			PartStat: firstParam(p, "PARTSTAT"),
		})
	}

	return out, nil
}

func rawTime(p *ical.IANAProperty) model.RawTime {
	return model.RawTime{
		Value:    p.Value,
		TZID:     firstParam(p, "TZID"),
		DateOnly: isDateValue(p, p.Value),
	}
}

// isDateValue mirrors the two all-day signals: an explicit VALUE=DATE
// parameter, or a value with no time part.
func isDateValue(p *ical.IANAProperty, value string) bool {
	if strings.EqualFold(firstParam(p, "VALUE"), "DATE") {
		return true
	}
	return !strings.Contains(value, "T")
}

func firstParam(p *ical.IANAProperty, name string) string {
	if p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return strings.TrimSpace(vs[0])
	}
	return ""
}

// eventName labels an event for error messages: UID when present, else
// summary, else a placeholder.
func eventName(ve *ical.VEvent) string {
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value != "" {
		return p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		return p.Value
	}
	return "(unnamed)"
}
