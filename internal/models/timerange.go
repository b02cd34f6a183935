package models

import (
	"strings"
	"time"
)

// DateRange is the half-open window [Start, End) used for listing events.
type DateRange struct {
	Start    time.Time
	End      time.Time
	TimeZone string
}

// NewDayRange builds a range covering whole calendar days from first through last,
// inclusive, in the named zone. Only the dates of first and last are used.
func NewDayRange(first, last time.Time, zone string) (DateRange, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return DateRange{}, err
	}
	if last.Before(first) {
		return DateRange{}, NewInvalidField("end date", "%s is before start date %s",
			last.Format(dateLayout), first.Format(dateLayout))
	}
	r := DateRange{
		Start:    time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc),
		End:      time.Date(last.Year(), last.Month(), last.Day()+1, 0, 0, 0, 0, loc),
		TimeZone: zone,
	}
	return r, r.Validate()
}

// Validate checks that the range is non-empty and its zone loads.
func (r DateRange) Validate() error {
	if _, err := LoadZone(r.TimeZone); err != nil {
		return err
	}
	if !r.End.After(r.Start) {
		return NewInvalidField("date range", "end %s must be after start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	return nil
}

// LoadZone loads an IANA zone. The empty name and "Local" are rejected because
// the service cannot interpret them.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, NewInvalidField("timezone", "an IANA zone name such as Europe/London is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, NewInvalidField("timezone", "unknown zone %q", name)
	}
	return loc, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewInvalidField("date", "%q is not in YYYY-MM-DD format", s)
	}
	return t, nil
}

// ParseClock parses an HH:MM time of day and applies it to the given date.
func ParseClock(date time.Time, s string) (time.Time, error) {
	c, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewInvalidField("time", "%q is not in HH:MM format", s)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}

// ResolveLocal interprets the wall clock of wall in loc. Wall clocks skipped by a
// DST transition, or repeated by one, are rejected because they do not name
// exactly one instant.
func ResolveLocal(wall time.Time, loc *time.Location) (time.Time, error) {
	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
	if !sameWallClock(t, wall) {
		return time.Time{}, NewInvalidField("start", "%s does not exist in %s (daylight saving gap)",
			wall.Format(dateTimeLayout), loc)
	}

	_, before := t.Add(-12 * time.Hour).Zone()
	_, after := t.Add(12 * time.Hour).Zone()
	if shift := before - after; shift != 0 {
		if shift < 0 {
			shift = -shift
		}
		d := time.Duration(shift) * time.Second
		for _, alt := range []time.Time{t.Add(-d), t.Add(d)} {
			if sameWallClock(alt.In(loc), wall) {
				return time.Time{}, NewInvalidField("start", "%s is ambiguous in %s (daylight saving overlap)",
					wall.Format(dateTimeLayout), loc)
			}
		}
	}
	return t, nil
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
