package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func wall(t *testing.T, s string) time.Time {
	t.Helper()
	w, err := time.Parse("2006-01-02 15:04", s)
	require.NoError(t, err)
	return w
}

func TestTokenBundleValidity(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		bundle      *TokenBundle
		valid       bool
		refreshable bool
	}{
		{"nil bundle", nil, false, false},
		{"future expiry", &TokenBundle{AccessToken: "a", Expiry: now.Add(time.Minute)}, true, false},
		{"past expiry with refresh", &TokenBundle{AccessToken: "a", RefreshToken: "r", Expiry: now.Add(-time.Minute)}, false, true},
		{"expiry equal to now", &TokenBundle{AccessToken: "a", Expiry: now}, false, false},
		{"zero expiry", &TokenBundle{AccessToken: "a"}, false, false},
		{"missing access token", &TokenBundle{Expiry: now.Add(time.Hour)}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.bundle.Valid(now))
			assert.Equal(t, tt.refreshable, tt.bundle.Refreshable())
		})
	}
}

func TestBundleFromOAuth2Scopes(t *testing.T) {
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}

	b := BundleFromOAuth2(tok, []string{"calendar"})
	assert.Equal(t, []string{"calendar"}, b.Scopes)
	assert.Equal(t, "r", b.RefreshToken)
	assert.True(t, b.Expiry.Equal(expiry))

	granted := tok.WithExtra(map[string]any{"scope": "calendar openid"})
	b = BundleFromOAuth2(granted, []string{"calendar"})
	assert.Equal(t, []string{"calendar", "openid"}, b.Scopes)

	back := b.OAuth2Token()
	assert.Equal(t, "a", back.AccessToken)
	assert.Equal(t, "Bearer", back.TokenType)
}

func TestEventDraftValidate(t *testing.T) {
	base := EventDraft{
		Title:           "Standup",
		Start:           wall(t, "2025-03-10 09:00"),
		DurationMinutes: 30,
		TimeZone:        "Europe/London",
	}

	tests := []struct {
		name   string
		mutate func(d *EventDraft)
		field  string
	}{
		{"valid", func(d *EventDraft) {}, ""},
		{"blank title", func(d *EventDraft) { d.Title = "  " }, "title"},
		{"zero duration", func(d *EventDraft) { d.DurationMinutes = 0 }, "duration"},
		{"negative duration", func(d *EventDraft) { d.DurationMinutes = -5 }, "duration"},
		{"missing zone", func(d *EventDraft) { d.TimeZone = "" }, "timezone"},
		{"local zone", func(d *EventDraft) { d.TimeZone = "Local" }, "timezone"},
		{"unknown zone", func(d *EventDraft) { d.TimeZone = "Mars/Olympus" }, "timezone"},
		{"color zero", func(d *EventDraft) { d.ColorID = "0" }, "color"},
		{"color twelve", func(d *EventDraft) { d.ColorID = "12" }, "color"},
		{"color padded", func(d *EventDraft) { d.ColorID = "07" }, "color"},
		{"color word", func(d *EventDraft) { d.ColorID = "red" }, "color"},
		{"color eleven", func(d *EventDraft) { d.ColorID = "11" }, ""},
		{"bad attendee", func(d *EventDraft) { d.Attendees = []string{"not-an-email"} }, "attendees"},
		{"good attendees", func(d *EventDraft) { d.Attendees = []string{"a@example.com", "b@example.com"} }, ""},
		{"dst gap", func(d *EventDraft) { d.Start = wall(t, "2025-03-30 01:30") }, "start"},
		{"dst overlap", func(d *EventDraft) { d.Start = wall(t, "2025-10-26 01:30") }, "start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			err := d.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidFieldError
			require.True(t, errors.As(err, &invalid), "want InvalidFieldError, got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestResolveLocalIgnoresWallLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	w := time.Date(2025, 3, 10, 9, 0, 0, 0, ny)
	got, err := ResolveLocal(w, london)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), got.UTC())
}

func TestNewDayRangeIncludesLastDay(t *testing.T) {
	day, err := ParseDate("2025-01-01")
	require.NoError(t, err)

	r, err := NewDayRange(day, day, "Europe/Paris")
	require.NoError(t, err)

	paris, _ := time.LoadLocation("Europe/Paris")
	assert.True(t, r.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, paris)))
	assert.True(t, r.End.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, paris)))
	assert.Equal(t, "2025-01-02T00:00:00+01:00", r.End.Format(time.RFC3339))
}

func TestNewDayRangeRejectsReversedDates(t *testing.T) {
	first, _ := ParseDate("2025-01-05")
	last, _ := ParseDate("2025-01-01")

	_, err := NewDayRange(first, last, "UTC")
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "end date", invalid.Field)
}

func TestParseHelpers(t *testing.T) {
	_, err := ParseDate("01/02/2025")
	assert.Error(t, err)

	day, err := ParseDate("2025-03-10")
	require.NoError(t, err)

	w, err := ParseClock(day, "09:05")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10 09:05", w.Format("2006-01-02 15:04"))

	_, err = ParseClock(day, "9am")
	var invalid *InvalidFieldError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "time", invalid.Field)
}

func TestEventDateLabel(t *testing.T) {
	london, _ := time.LoadLocation("Europe/London")

	timed := Event{
		Start: time.Date(2025, 3, 10, 9, 0, 0, 0, london),
		End:   time.Date(2025, 3, 10, 9, 30, 0, 0, london),
	}
	assert.Equal(t, "2025-03-10 09:00 - 2025-03-10 09:30", timed.DateLabel())

	oneDay := Event{
		AllDay: true,
		Start:  time.Date(2025, 3, 10, 0, 0, 0, 0, london),
		End:    time.Date(2025, 3, 11, 0, 0, 0, 0, london),
	}
	assert.Equal(t, "2025-03-10", oneDay.DateLabel())

	threeDays := oneDay
	threeDays.End = time.Date(2025, 3, 13, 0, 0, 0, 0, london)
	assert.Equal(t, "2025-03-10 - 2025-03-12", threeDays.DateLabel())
}

func TestEventPatchValidate(t *testing.T) {
	assert.Error(t, EventPatch{}.Validate())

	blank := ""
	assert.Error(t, EventPatch{Title: &blank}.Validate())

	clearColor := ""
	assert.NoError(t, EventPatch{ColorID: &clearColor}.Validate())

	bad := "13"
	assert.Error(t, EventPatch{ColorID: &bad}.Validate())

	dur := 45
	p := EventPatch{DurationMinutes: &dur}
	assert.NoError(t, p.Validate())
	assert.True(t, p.ChangesTiming())
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "invalid color: out of range", (&InvalidFieldError{Field: "color", Reason: "out of range"}).Error())
	assert.Equal(t, "calendar service error (status 403): forbidden", (&RemoteError{Status: 403, Message: "forbidden"}).Error())
	assert.Equal(t, "calendar service error: timeout", (&RemoteError{Message: "timeout"}).Error())

	inner := errors.New("dial tcp: timeout")
	wrapped := &AuthUnavailableError{Op: "refresh", Err: inner}
	assert.ErrorIs(t, wrapped, inner)
}
