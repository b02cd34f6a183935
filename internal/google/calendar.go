package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gcalauto/internal/credentials"
	"gcalauto/internal/models"
)

const primaryCalendar = "primary"

// TokenStore hands out currently valid credentials.
type TokenStore interface {
	GetValid(ctx context.Context, auth credentials.Authenticator) (*models.TokenBundle, error)
}

// ClientOptions configures a CalendarClient.
type ClientOptions struct {
	Store TokenStore
	Auth  credentials.Authenticator
	Codec Codec
	// HTTPClient supplies the base transport and request timeout. Credentials are
	// layered on top of it.
	HTTPClient *http.Client
	// Endpoint overrides the Calendar API base URL.
	Endpoint string
	Logger   *slog.Logger
}

// CalendarClient creates, lists, updates and deletes events on the user's primary
// Google Calendar.
type CalendarClient struct {
	store    TokenStore
	auth     credentials.Authenticator
	codec    Codec
	base     *http.Client
	endpoint string
	logger   *slog.Logger
}

// NewClient creates a new Google Calendar client.
func NewClient(opts ClientOptions) (*CalendarClient, error) {
	if opts.Store == nil || opts.Auth == nil {
		return nil, errors.New("calendar client needs a token store and an authenticator")
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	codec := opts.Codec
	if codec.Default == nil {
		codec = NewCodec(time.UTC)
	}
	return &CalendarClient{
		store:    opts.Store,
		auth:     opts.Auth,
		codec:    codec,
		base:     base,
		endpoint: opts.Endpoint,
		logger:   logger,
	}, nil
}

// service obtains a valid token and builds an authenticated Calendar service.
func (c *CalendarClient) service(ctx context.Context) (*calendar.Service, error) {
	bundle, err := c.store.GetValid(ctx, c.auth)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(bundle.OAuth2Token()),
			Base:   c.base.Transport,
		},
		Timeout: c.base.Timeout,
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return service, nil
}

// Create inserts a new event. Failed inserts are not retried.
func (c *CalendarClient) Create(ctx context.Context, draft models.EventDraft) (models.Event, error) {
	body, err := c.codec.Encode(draft)
	if err != nil {
		return models.Event{}, err
	}

	service, err := c.service(ctx)
	if err != nil {
		return models.Event{}, err
	}

	created, err := service.Events.Insert(primaryCalendar, body).Context(ctx).Do()
	if err != nil {
		return models.Event{}, remoteError(err)
	}

	c.logger.Info("Created event in Google Calendar", "id", created.Id, "title", created.Summary)
	return c.decode(created)
}

// List returns the events that overlap the range, recurring events expanded to
// single instances, in the ascending start order reported by the service.
func (c *CalendarClient) List(ctx context.Context, r models.DateRange) ([]models.Event, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	service, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetching events", "timeMin", r.Start.Format(time.RFC3339), "timeMax", r.End.Format(time.RFC3339))
	var items []*calendar.Event
	err = service.Events.List(primaryCalendar).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(r.Start.Format(time.RFC3339)).
		TimeMax(r.End.Format(time.RFC3339)).
		TimeZone(r.TimeZone).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, remoteError(err)
	}

	events := make([]models.Event, 0, len(items))
	for _, item := range items {
		ev, err := c.decode(item)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	c.logger.Info("Successfully fetched events from Google Calendar", "count", len(events))
	return events, nil
}

// Update applies a partial patch to an existing event.
func (c *CalendarClient) Update(ctx context.Context, id string, patch models.EventPatch) (models.Event, error) {
	if strings.TrimSpace(id) == "" {
		return models.Event{}, models.NewInvalidField("id", "must not be empty")
	}
	if err := patch.Validate(); err != nil {
		return models.Event{}, err
	}

	service, err := c.service(ctx)
	if err != nil {
		return models.Event{}, err
	}

	var current *models.Event
	if patch.ChangesTiming() {
		existing, err := service.Events.Get(primaryCalendar, id).Context(ctx).Do()
		if err != nil {
			return models.Event{}, remoteError(err)
		}
		ev, err := c.decode(existing)
		if err != nil {
			return models.Event{}, err
		}
		current = &ev
	}

	body, err := c.codec.EncodePatch(patch, current)
	if err != nil {
		return models.Event{}, err
	}

	updated, err := service.Events.Patch(primaryCalendar, id, body).Context(ctx).Do()
	if err != nil {
		return models.Event{}, remoteError(err)
	}

	c.logger.Info("Updated event in Google Calendar", "id", updated.Id)
	return c.decode(updated)
}

// Delete removes an event. Deleting an event that does not exist, or was already
// deleted, succeeds.
func (c *CalendarClient) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewInvalidField("id", "must not be empty")
	}

	service, err := c.service(ctx)
	if err != nil {
		return err
	}

	err = service.Events.Delete(primaryCalendar, id).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			c.logger.Info("Event already absent, nothing to delete", "id", id, "status", gerr.Code)
			return nil
		}
		return remoteError(err)
	}

	c.logger.Info("Deleted event from Google Calendar", "id", id)
	return nil
}

func (c *CalendarClient) decode(w *calendar.Event) (models.Event, error) {
	ev, err := c.codec.Decode(w)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to decode event from calendar service: %w", err)
	}
	return ev, nil
}

// remoteError maps a failed RPC to a RemoteError. Transport failures and timeouts
// have status 0.
func remoteError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &models.RemoteError{Status: gerr.Code, Message: msg}
	}
	return &models.RemoteError{Message: err.Error()}
}
