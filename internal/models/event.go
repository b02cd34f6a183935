package models

import (
	"net/mail"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// ColorNames maps the calendar service's event colour ids to their display names.
var ColorNames = map[string]string{
	"1":  "Lavender",
	"2":  "Sage",
	"3":  "Grape",
	"4":  "Flamingo",
	"5":  "Banana",
	"6":  "Tangerine",
	"7":  "Peacock",
	"8":  "Graphite",
	"9":  "Blueberry",
	"10": "Basil",
	"11": "Tomato",
}

// EventDraft is user-entered event data before it is translated for the service.
type EventDraft struct {
	Title string
	// Start is a wall-clock date and time. Its Location is ignored; TimeZone decides
	// which absolute instant it denotes.
	Start           time.Time
	DurationMinutes int
	TimeZone        string
	Location        string
	Description     string
	ColorID         string
	Attendees       []string
}

// Validate checks every field of the draft and resolves its start instant.
func (d EventDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return NewInvalidField("title", "must not be empty")
	}
	if d.DurationMinutes <= 0 {
		return NewInvalidField("duration", "must be a positive number of minutes, got %d", d.DurationMinutes)
	}
	if err := ValidateColorID(d.ColorID); err != nil {
		return err
	}
	if err := ValidateAttendees(d.Attendees); err != nil {
		return err
	}
	_, err := d.Resolve()
	return err
}

// Resolve returns the absolute start instant of the draft in its time zone.
func (d EventDraft) Resolve() (time.Time, error) {
	loc, err := LoadZone(d.TimeZone)
	if err != nil {
		return time.Time{}, err
	}
	return ResolveLocal(d.Start, loc)
}

// Duration returns the draft duration.
func (d EventDraft) Duration() time.Duration {
	return time.Duration(d.DurationMinutes) * time.Minute
}

// Event is a calendar event as returned by the service.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	TimeZone    string
	AllDay      bool
	Location    string
	Description string
	ColorID     string
	Attendees   []string
	HTMLLink    string
}

// Duration returns the length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// DateLabel renders the event's time span. All-day events are shown as bare dates,
// with the exclusive end date turned back into the last day of the event.
func (e Event) DateLabel() string {
	if e.AllDay {
		first := e.Start.Format(dateLayout)
		last := e.End.AddDate(0, 0, -1)
		if !last.After(e.Start) {
			return first
		}
		return first + " - " + last.Format(dateLayout)
	}
	return e.Start.Format(dateTimeLayout) + " - " + e.End.Format(dateTimeLayout)
}

// EventPatch is a partial update. Nil fields are left unchanged; a pointer to an
// empty value clears an optional field.
type EventPatch struct {
	Title           *string
	Start           *time.Time
	DurationMinutes *int
	TimeZone        *string
	Location        *string
	Description     *string
	ColorID         *string
	Attendees       *[]string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Start == nil && p.DurationMinutes == nil && p.TimeZone == nil &&
		p.Location == nil && p.Description == nil && p.ColorID == nil && p.Attendees == nil
}

// ChangesTiming reports whether the patch touches start, duration or zone.
func (p EventPatch) ChangesTiming() bool {
	return p.Start != nil || p.DurationMinutes != nil || p.TimeZone != nil
}

// Validate checks the fields that are set.
func (p EventPatch) Validate() error {
	if p.Empty() {
		return NewInvalidField("patch", "no fields to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewInvalidField("title", "must not be empty")
	}
	if p.DurationMinutes != nil && *p.DurationMinutes <= 0 {
		return NewInvalidField("duration", "must be a positive number of minutes, got %d", *p.DurationMinutes)
	}
	if p.TimeZone != nil {
		if _, err := LoadZone(*p.TimeZone); err != nil {
			return err
		}
	}
	if p.ColorID != nil {
		if err := ValidateColorID(*p.ColorID); err != nil {
			return err
		}
	}
	if p.Attendees != nil {
		if err := ValidateAttendees(*p.Attendees); err != nil {
			return err
		}
	}
	return nil
}

// ValidateColorID accepts "" (no colour) or an id between 1 and 11.
func ValidateColorID(id string) error {
	if id == "" {
		return nil
	}
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 || n > 11 || strconv.Itoa(n) != id {
		return NewInvalidField("color", "must be a number between 1 and 11, got %q", id)
	}
	return nil
}

// ValidateAttendees checks that every attendee is a bare email address.
func ValidateAttendees(emails []string) error {
	for _, email := range emails {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return NewInvalidField("attendees", "%q is not an email address", email)
		}
	}
	return nil
}
