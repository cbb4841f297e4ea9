// Package timefmt renders the clock, day and relative labels used in
// forecast change messages.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// Format selects 12-hour or 24-hour clocks.
type Format string

const (
	Format12h Format = "12h"
	Format24h Format = "24h"
)

// ParseFormat accepts "12h" or "24h".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case Format12h:
		return Format12h, nil
	case Format24h:
		return Format24h, nil
	}
	return "", fmt.Errorf("invalid time format %q; use 12h or 24h", s)
}

// Formatter renders times in a fixed zone with a fixed clock style.
type Formatter struct {
	Format   Format
	Location *time.Location
}

// New returns a Formatter; a nil location means UTC.
func New(format Format, loc *time.Location) Formatter {
	return Formatter{Format: format, Location: loc}
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Clock renders "3:04 PM" (12h) or "15:04" (24h). The zero time renders
// as "Unknown".
func (f Formatter) Clock(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	t = t.In(f.loc())
	if f.Format == Format24h {
		return t.Format("15:04")
	}
	return t.Format("3:04 PM")
}

// DateTime renders "Feb 20, 9:12 AM" or "Feb 20, 09:12".
func (f Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	t = t.In(f.loc())
	return t.Format("Jan 2") + ", " + f.Clock(t)
}

// DayLabel renders a date key as "Sat, Feb 21".
func (f Formatter) DayLabel(key string) string {
	t, ok := ParseKey(key, f.loc())
	if !ok {
		return "Unknown day"
	}
	return t.In(f.loc()).Format("Mon, Jan 2")
}

// RelativeLabel renders an hour key relative to now: "Today 3:00 PM",
// "Tomorrow 9:00 AM", "Yesterday 11:00 PM" or "Sat 3:00 PM".
func (f Formatter) RelativeLabel(key string, now time.Time) string {
	target, ok := ParseKey(key, f.loc())
	if !ok || now.IsZero() {
		return "Forecast window"
	}
	target = target.In(f.loc())
	now = now.In(f.loc())

	startTarget := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, f.loc())
	startNow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc())
	dayDelta := int(roundHalfUp(startTarget.Sub(startNow).Hours() / 24))

	clock := f.Clock(target)
	switch dayDelta {
	case 0:
		return "Today " + clock
	case 1:
		return "Tomorrow " + clock
	case -1:
		return "Yesterday " + clock
	}
	return target.Format("Mon") + " " + clock
}

func roundHalfUp(v float64) float64 {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	return float64(int64(v + 0.5))
}

var keyLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseKey parses a series key. Keys carrying an offset are parsed as
// RFC 3339; zoneless keys are interpreted in loc.
func ParseKey(key string, loc *time.Location) (time.Time, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, key); err == nil {
		return t, true
	}
	for _, layout := range keyLayouts {
		if t, err := time.ParseInLocation(layout, key, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
