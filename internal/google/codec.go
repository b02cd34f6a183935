package google

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"gcalauto/internal/models"
)

const wireDateLayout = "2006-01-02"

// Codec translates between the internal event model and calendar/v3 events.
type Codec struct {
	// Default is used for wire events that carry no time zone of their own.
	Default *time.Location
}

// NewCodec creates a Codec that falls back to def for zone-less events.
func NewCodec(def *time.Location) Codec {
	if def == nil {
		def = time.UTC
	}
	return Codec{Default: def}
}

// Encode validates the draft and builds the insert body. Optional fields that are
// not set are left at their zero value so they are omitted from the request.
func (c Codec) Encode(d models.EventDraft) (*calendar.Event, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	start, err := d.Resolve()
	if err != nil {
		return nil, err
	}
	end := start.Add(d.Duration())

	return &calendar.Event{
		Summary:     strings.TrimSpace(d.Title),
		Start:       timedBoundary(start, d.TimeZone),
		End:         timedBoundary(end, d.TimeZone),
		Location:    strings.TrimSpace(d.Location),
		Description: strings.TrimSpace(d.Description),
		ColorId:     d.ColorID,
		Attendees:   toAttendees(d.Attendees),
	}, nil
}

// EncodePatch builds a partial update body. When the patch changes start, duration
// or zone, current supplies the values left unchanged and both start and end are
// sent so the end always equals start plus duration. Changing only the zone keeps
// the wall-clock start.
func (c Codec) EncodePatch(p models.EventPatch, current *models.Event) (*calendar.Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	body := &calendar.Event{}
	if p.Title != nil {
		body.Summary = strings.TrimSpace(*p.Title)
	}
	if p.Location != nil {
		body.Location = strings.TrimSpace(*p.Location)
		if body.Location == "" {
			body.ForceSendFields = append(body.ForceSendFields, "Location")
		}
	}
	if p.Description != nil {
		body.Description = strings.TrimSpace(*p.Description)
		if body.Description == "" {
			body.ForceSendFields = append(body.ForceSendFields, "Description")
		}
	}
	if p.ColorID != nil {
		body.ColorId = *p.ColorID
		if body.ColorId == "" {
			body.ForceSendFields = append(body.ForceSendFields, "ColorId")
		}
	}
	if p.Attendees != nil {
		body.Attendees = toAttendees(*p.Attendees)
		if len(body.Attendees) == 0 {
			body.Attendees = []*calendar.EventAttendee{}
			body.ForceSendFields = append(body.ForceSendFields, "Attendees")
		}
	}

	if !p.ChangesTiming() {
		return body, nil
	}
	if current == nil {
		return nil, errors.New("current event is required to change its timing")
	}

	zone := current.TimeZone
	if p.TimeZone != nil {
		zone = *p.TimeZone
	}
	loc, err := models.LoadZone(zone)
	if err != nil {
		return nil, err
	}

	var wall time.Time
	switch {
	case p.Start != nil:
		wall = *p.Start
	case current.AllDay:
		return nil, models.NewInvalidField("start", "an all-day event needs an explicit start time to be rescheduled")
	default:
		wall = current.Start
	}

	duration := current.Duration()
	if p.DurationMinutes != nil {
		duration = time.Duration(*p.DurationMinutes) * time.Minute
	}
	if duration <= 0 {
		return nil, models.NewInvalidField("duration", "the event has no positive duration to keep; set one explicitly")
	}

	start, err := models.ResolveLocal(wall, loc)
	if err != nil {
		return nil, err
	}
	body.Start = timedBoundary(start, zone)
	body.End = timedBoundary(start.Add(duration), zone)
	return body, nil
}

// Decode converts a calendar/v3 event. Date-only boundaries become local midnight
// and mark the event as all-day.
func (c Codec) Decode(w *calendar.Event) (models.Event, error) {
	if w == nil || w.Start == nil {
		return models.Event{}, errors.New("event has no start")
	}

	loc := c.zone(w.Start.TimeZone)
	start, allDay, err := parseBoundary(w.Start, loc)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %s start: %w", w.Id, err)
	}

	end := start
	if w.End != nil {
		endLoc := loc
		if w.End.TimeZone != "" {
			endLoc = c.zone(w.End.TimeZone)
		}
		if end, _, err = parseBoundary(w.End, endLoc); err != nil {
			return models.Event{}, fmt.Errorf("event %s end: %w", w.Id, err)
		}
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	}

	var attendees []string
	for _, a := range w.Attendees {
		if a != nil && a.Email != "" {
			attendees = append(attendees, a.Email)
		}
	}

	return models.Event{
		ID:          w.Id,
		Title:       w.Summary,
		Start:       start,
		End:         end,
		TimeZone:    loc.String(),
		AllDay:      allDay,
		Location:    w.Location,
		Description: w.Description,
		ColorID:     w.ColorId,
		Attendees:   attendees,
		HTMLLink:    w.HtmlLink,
	}, nil
}

func (c Codec) zone(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if c.Default != nil {
		return c.Default
	}
	return time.UTC
}

func parseBoundary(dt *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	switch {
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	case dt.Date != "":
		t, err := time.ParseInLocation(wireDateLayout, dt.Date, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		return t, true, nil
	}
	return time.Time{}, false, errors.New("neither date nor dateTime is set")
}

func timedBoundary(t time.Time, zone string) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: zone,
	}
}

// toAttendees keeps the first occurrence of each address, in input order.
func toAttendees(emails []string) []*calendar.EventAttendee {
	var out []*calendar.EventAttendee
	seen := make(map[string]bool, len(emails))
	for _, email := range emails {
		key := strings.ToLower(email)
		if email == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, &calendar.EventAttendee{Email: email})
	}
	return out
}
