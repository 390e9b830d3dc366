package ics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ical2org/internal/timeutil"
)

// Duration is an RFC 5545 DURATION value split into its nominal and exact
// parts. Day and week components count calendar days, which are not always
// 24 hours long; the T components count real elapsed time. The split
// matters when a duration crosses a DST transition.
type Duration struct {
	Neg   bool
	Days  int           // D and W components, weeks folded into days
	Exact time.Duration // the T part
}

// AddTo applies the duration to t: calendar days move wall-clock style so
// the local time of day survives a DST change, the exact part moves
// absolute time.
func (d Duration) AddTo(t time.Time) time.Time {
	days := time.Duration(d.Days) * 24 * time.Hour
	exact := d.Exact
	if d.Neg {
		days, exact = -days, -exact
	}
	return timeutil.AddWallClock(t, days).Add(exact)
}

// ParseDuration parses an RFC 5545 DURATION value such as "PT1H30M",
// "P2D" or "-P1W".
func ParseDuration(s string) (Duration, error) {
	var out Duration
	rest := strings.TrimSpace(s)
	if rest == "" {
		return out, errors.New("empty duration")
	}
	switch rest[0] {
	case '-':
		out.Neg = true
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	}
	if rest == "" || rest[0] != 'P' {
		return out, fmt.Errorf("bad duration %q", s)
	}
	rest = rest[1:]

	inTime := false
	seen := false
	for rest != "" {
		if rest[0] == 'T' {
			inTime = true
			rest = rest[1:]
			continue
		}
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return out, fmt.Errorf("bad duration %q", s)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return out, fmt.Errorf("bad duration %q: %w", s, err)
		}
		unit := rest[i]
		rest = rest[i+1:]
		switch {
		case unit == 'W' && !inTime:
			out.Days += 7 * n
		case unit == 'D' && !inTime:
			out.Days += n
		case unit == 'H' && inTime:
			out.Exact += time.Duration(n) * time.Hour
		case unit == 'M' && inTime:
			out.Exact += time.Duration(n) * time.Minute
		case unit == 'S' && inTime:
			out.Exact += time.Duration(n) * time.Second
		default:
			return out, fmt.Errorf("bad duration %q", s)
		}
		seen = true
	}
	if !seen {
		return out, fmt.Errorf("bad duration %q", s)
	}
	return out, nil
}
