package ics

import (
	"errors"
	"strings"
	"testing"
)

func calendar(lines ...string) string {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//ical2org//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

func TestParseTimedEvent(t *testing.T) {
	t.Parallel()
	doc := calendar(
		"BEGIN:VEVENT",
		"UID:one@example.org",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240105T090000Z",
		"DTEND:20240105T100000Z",
		"SUMMARY:Team sync",
		"LOCATION:Room 4",
		"DESCRIPTION:Agenda\\nItems",
		"ORGANIZER;CN=Boss:mailto:boss@example.org",
		"ATTENDEE;CN=ann@example.org;PARTSTAT=DECLINED:mailto:ann@example.org",
		"ATTENDEE;CN=bob@example.org;PARTSTAT=ACCEPTED:mailto:bob@example.org",
		"RRULE:FREQ=WEEKLY;BYDAY=FR",
		"EXDATE:20240112T090000Z,20240119T090000Z",
		"EXDATE;TZID=Europe/Madrid:20240126T100000",
		"END:VEVENT",
	)

	events, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]

	if ev.UID != "one@example.org" {
		t.Errorf("UID = %q", ev.UID)
	}
	if ev.Summary != "Team sync" || ev.Location != "Room 4" {
		t.Errorf("summary/location = %q / %q", ev.Summary, ev.Location)
	}
	if ev.Description != `Agenda\nItems` {
		t.Errorf("description = %q, want raw escaped text", ev.Description)
	}
	if ev.Organizer != "mailto:boss@example.org" {
		t.Errorf("organizer = %q", ev.Organizer)
	}
	if ev.Start.Value != "20240105T090000Z" || ev.Start.DateOnly || ev.Start.TZID != "" {
		t.Errorf("start = %+v", ev.Start)
	}
	if ev.End.Value != "20240105T100000Z" {
		t.Errorf("end = %+v", ev.End)
	}
	if ev.DTStamp.Value != "20240101T000000Z" {
		t.Errorf("dtstamp = %+v", ev.DTStamp)
	}
	if ev.RawRRule != "FREQ=WEEKLY;BYDAY=FR" {
		t.Errorf("rrule = %q", ev.RawRRule)
	}

	if len(ev.ExDates) != 3 {
		t.Fatalf("got %d exdates, want 3: %+v", len(ev.ExDates), ev.ExDates)
	}
	if ev.ExDates[0].Value != "20240112T090000Z" || ev.ExDates[1].Value != "20240119T090000Z" {
		t.Errorf("comma list not split: %+v", ev.ExDates[:2])
	}
	if ev.ExDates[2].Value != "20240126T100000" || ev.ExDates[2].TZID != "Europe/Madrid" {
		t.Errorf("tzid exdate = %+v", ev.ExDates[2])
	}

	if len(ev.Attendees) != 2 {
		t.Fatalf("got %d attendees, want 2", len(ev.Attendees))
	}
	if ev.Attendees[0].CN != "ann@example.org" || ev.Attendees[0].PartStat != "DECLINED" {
		t.Errorf("first attendee = %+v", ev.Attendees[0])
	}
	if ev.Attendees[1].Address != "mailto:bob@example.org" || ev.Attendees[1].PartStat != "ACCEPTED" {
		t.Errorf("second attendee = %+v", ev.Attendees[1])
	}
}

func TestParseAllDayEvent(t *testing.T) {
	t.Parallel()
	doc := calendar(
		"BEGIN:VEVENT",
		"UID:two@example.org",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;VALUE=DATE:20240110",
		"DTEND;VALUE=DATE:20240112",
		"SUMMARY:Offsite",
		"END:VEVENT",
	)

	events, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if !ev.Start.DateOnly || ev.Start.Value != "20240110" {
		t.Errorf("start = %+v, want date-only", ev.Start)
	}
	if !ev.End.DateOnly || ev.End.Value != "20240112" {
		t.Errorf("end = %+v, want date-only", ev.End)
	}
}

func TestParseEventWithoutUID(t *testing.T) {
	t.Parallel()
	doc := calendar(
		"BEGIN:VEVENT",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240105T090000Z",
		"SUMMARY:Anonymous",
		"END:VEVENT",
	)

	events, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(events) != 1 || events[0].UID != "" {
		t.Fatalf("want one event with empty UID, got %+v", events)
	}
}

func TestParseDurationProperty(t *testing.T) {
	t.Parallel()
	doc := calendar(
		"BEGIN:VEVENT",
		"UID:three@example.org",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240105T090000Z",
		"DURATION:PT1H",
		"SUMMARY:Short one",
		"END:VEVENT",
	)

	events, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if events[0].Duration != "PT1H" {
		t.Errorf("duration = %q, want PT1H", events[0].Duration)
	}
}

func TestParseUnparsableDocument(t *testing.T) {
	t.Parallel()
	_, err := Parse(strings.NewReader("this is not a calendar"))
	if err == nil {
		t.Fatal("Parse succeeded on garbage")
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseMissingDTSTART(t *testing.T) {
	t.Parallel()
	doc := calendar(
		"BEGIN:VEVENT",
		"UID:broken@example.org",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:No start",
		"END:VEVENT",
	)

	_, err := Parse(strings.NewReader(doc))
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}
	if errors.Is(err, ErrParse) {
		t.Error("event-level failure reported as document parse failure")
	}
	if !strings.Contains(err.Error(), "broken@example.org") {
		t.Errorf("error %q does not name the event", err)
	}
}
