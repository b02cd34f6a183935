package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gcalauto/internal/models"
)

var stamp = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEvents(t *testing.T) []models.Event {
	t.Helper()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return []models.Event{
		{
			ID:          "walk",
			Title:       "Walk",
			Start:       time.Date(2025, 3, 10, 10, 0, 0, 0, paris),
			End:         time.Date(2025, 3, 10, 11, 0, 0, 0, paris),
			TimeZone:    "Europe/Paris",
			Location:    "Park",
			Description: "Bring water",
			Attendees:   []string{"a@example.com"},
		},
		{
			ID:     "holiday",
			Title:  "Holiday",
			Start:  time.Date(2025, 3, 14, 0, 0, 0, 0, paris),
			End:    time.Date(2025, 3, 16, 0, 0, 0, 0, paris),
			AllDay: true,
		},
	}
}

func decodeCalendar(t *testing.T, r io.Reader) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(r).Decode()
	require.NoError(t, err)
	return cal
}

func TestEncodeWritesEvents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleEvents(t), stamp))

	cal := decodeCalendar(t, &buf)
	assert.Equal(t, productID, cal.Props.Get(ical.PropProductID).Value)
	require.Len(t, cal.Children, 2)

	walk := cal.Children[0]
	assert.Equal(t, ical.CompEvent, walk.Name)
	assert.Equal(t, "walk", walk.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "Walk", walk.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, "Park", walk.Props.Get(ical.PropLocation).Value)
	assert.Equal(t, "Bring water", walk.Props.Get(ical.PropDescription).Value)
	assert.Equal(t, "20250310T090000Z", walk.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "20250310T100000Z", walk.Props.Get(ical.PropDateTimeEnd).Value)
	attendee := walk.Props.Get(ical.PropAttendee)
	require.NotNil(t, attendee)
	assert.Equal(t, "mailto:a@example.com", attendee.Value)

	holiday := cal.Children[1]
	assert.Equal(t, "20250314", holiday.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "20250316", holiday.Props.Get(ical.PropDateTimeEnd).Value)
	assert.Nil(t, holiday.Props.Get(ical.PropLocation))
}

func TestEncodeGeneratesMissingUID(t *testing.T) {
	events := sampleEvents(t)
	events[0].ID = ""

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, events[:1], stamp))

	cal := decodeCalendar(t, &buf)
	require.Len(t, cal.Children, 1)
	assert.True(t, strings.HasSuffix(cal.Children[0].Props.Get(ical.PropUID).Value, "@gcalauto"))
}

func TestPublisherUploadsCalendar(t *testing.T) {
	var (
		mu       sync.Mutex
		path     string
		body     []byte
		user     string
		password string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		path = r.URL.Path
		user, password, _ = r.BasicAuth()
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	publisher, err := NewPublisher(PublisherOptions{
		Endpoint: srv.URL + "/calendars/me/",
		Username: "me",
		Password: "app-password",
		Timeout:  5 * time.Second,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(context.Background(), "week", sampleEvents(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/calendars/me/week.ics", path)
	assert.Equal(t, "me", user)
	assert.Equal(t, "app-password", password)
	cal := decodeCalendar(t, bytes.NewReader(body))
	assert.Len(t, cal.Children, 2)
}

func TestPublisherReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	publisher, err := NewPublisher(PublisherOptions{Endpoint: srv.URL + "/"})
	require.NoError(t, err)

	err = publisher.Publish(context.Background(), "week.ics", sampleEvents(t))
	assert.Error(t, err)
}

func TestPublisherValidation(t *testing.T) {
	_, err := NewPublisher(PublisherOptions{})
	assert.Error(t, err)

	publisher, err := NewPublisher(PublisherOptions{Endpoint: "http://127.0.0.1:1/"})
	require.NoError(t, err)
	assert.Error(t, publisher.Publish(context.Background(), " ", nil))
}
