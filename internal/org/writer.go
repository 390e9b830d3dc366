package org

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ical2org/internal/model"
	"ical2org/internal/timeutil"
)

const (
	recurTag = ":RECURRING:"
	noTitle  = "(No title)"

	stampLayout  = "<2006-01-02 Mon 15:04>"
	dateLayout   = "<2006-01-02 Mon>"
	drawerLayout = "2006-01-02 15:04"
)

// Writer renders accepted occurrences as org-mode outline entries.
type Writer struct {
	w               io.Writer
	loc             *time.Location
	includeLocation bool
}

func NewWriter(w io.Writer, loc *time.Location, includeLocation bool) *Writer {
	return &Writer{w: w, loc: loc, includeLocation: includeLocation}
}

// WriteEntry emits one occurrence: heading, metadata drawer, timestamp
// range and an optional description subtree. id is the occurrence's
// stable identity as recorded in the drawer.
//
// Timed ranges render in the writer's timezone. All-day ranges render in
// UTC, with the exclusive end date shown one day earlier so the last line
// of a three-day event names its third day, not the morning after.
func (w *Writer) WriteEntry(occ model.Occurrence, ev *model.Event, id string) error {
	stamp, err := timeutil.Normalize(ev.DTStamp, w.loc)
	if err != nil {
		return fmt.Errorf("DTSTAMP: %w", err)
	}

	var b strings.Builder

	b.WriteString("* " + w.title(ev))
	// Recurring headings carry the tag and a separating blank line; single
	// headings run straight into the drawer.
	if occ.Recurring {
		b.WriteString(" " + recurTag + "\n")
	}
	b.WriteString("\n")

	b.WriteString(":ICALCONTENTS:\n")
	fmt.Fprintf(&b, ":ORGUID: %s\n", id)
	fmt.Fprintf(&b, ":ORIGINAL-UID: %s\n", ev.Identity())
	fmt.Fprintf(&b, ":DTSTART: %s\n", occ.Start.In(w.loc).Format(drawerLayout))
	fmt.Fprintf(&b, ":DTEND: %s\n", occ.End.In(w.loc).Format(drawerLayout))
	fmt.Fprintf(&b, ":DTSTAMP: %s\n", stamp.In(w.loc).Format(drawerLayout))
	for _, att := range ev.Attendees {
		fmt.Fprintf(&b, ":ATTENDEE: %s\n", att.Address)
	}
	if ev.Organizer != "" {
		fmt.Fprintf(&b, ":ORGANIZER: %s\n", ev.Organizer)
	}
	if ev.RawRRule != "" {
		fmt.Fprintf(&b, ":RRULE: %s\n", ev.RawRRule)
	}
	b.WriteString(":END:\n")

	if ev.Start.DateOnly {
		start := occ.Start.In(time.UTC)
		end := occ.End.In(time.UTC).AddDate(0, 0, -1)
		fmt.Fprintf(&b, "  %s--%s\n", start.Format(dateLayout), end.Format(dateLayout))
	} else {
		fmt.Fprintf(&b, "  %s--%s\n",
			occ.Start.In(w.loc).Format(stampLayout),
			occ.End.In(w.loc).Format(stampLayout))
	}

	if ev.Description != "" {
		b.WriteString("** Description\n\n")
		b.WriteString(unescapeText(ev.Description) + "\n")
	}
	b.WriteString("\n")

	_, err = io.WriteString(w.w, b.String())
	return err
}

func (w *Writer) title(ev *model.Event) string {
	summary := unescape(ev.Summary)
	location := unescape(ev.Location)
	switch {
	case summary == "" && location == "":
		return noTitle
	case summary == "":
		if w.includeLocation {
			return location
		}
		return noTitle
	case location != "" && w.includeLocation:
		return summary + " - " + location
	default:
		return summary
	}
}

// unescape undoes the comma escape calendar TEXT values carry.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\,`, ",")
}

// unescapeText additionally turns literal \n sequences into real
// newlines, for multi-line description bodies.
func unescapeText(s string) string {
	return unescape(strings.ReplaceAll(s, `\n`, "\n"))
}
