package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"gcalauto/internal/models"
)

const productID = "-//gcalauto//EN"

// Calendar builds a VCALENDAR holding one VEVENT per event.
func Calendar(events []models.Event, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, ev := range events {
		cal.Children = append(cal.Children, toICal(ev, now))
	}
	return cal
}

// Encode writes the events as an iCalendar document.
func Encode(w io.Writer, events []models.Event, now time.Time) error {
	if err := ical.NewEncoder(w).Encode(Calendar(events, now)); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// toICal converts an Event to a VEVENT. Timed boundaries are written in UTC;
// all-day boundaries as bare dates.
func toICal(ev models.Event, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	uid := ev.ID
	if uid == "" {
		uid = GenerateUID()
	}
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

	if ev.AllDay {
		dtstart := ical.NewProp(ical.PropDateTimeStart)
		dtstart.SetDate(ev.Start)
		ve.Props.Set(dtstart)
		dtend := ical.NewProp(ical.PropDateTimeEnd)
		dtend.SetDate(ev.End)
		ve.Props.Set(dtend)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}

	if ev.Description != "" {
		ve.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		ve.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.HTMLLink != "" {
		ve.Props.SetText(ical.PropURL, ev.HTMLLink)
	}
	for _, attendee := range ev.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String() + "@gcalauto"
}
