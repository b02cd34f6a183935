package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"

	"gcalauto/internal/models"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username != "" || t.Password != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "gcalauto/1.0")
	return t.Transport.RoundTrip(req)
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	// Endpoint is the WebDAV collection the file is written into.
	Endpoint string
	Username string
	Password string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Publisher uploads iCalendar files to a WebDAV collection.
type Publisher struct {
	webdavClient *webdav.Client
	logger       *slog.Logger
}

// NewPublisher creates a Publisher for the collection at opts.Endpoint.
func NewPublisher(opts PublisherOptions) (*Publisher, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("webdav endpoint is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{
		Transport: &customTransport{
			Username:  opts.Username,
			Password:  opts.Password,
			Transport: http.DefaultTransport,
		},
		Timeout: opts.Timeout,
	}

	webdavClient, err := webdav.NewClient(httpClient, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &Publisher{webdavClient: webdavClient, logger: logger}, nil
}

// Publish writes the events to name, relative to the endpoint, replacing any
// existing file.
func (p *Publisher) Publish(ctx context.Context, name string, events []models.Event) error {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return errors.New("file name is required")
	}
	if !strings.HasSuffix(name, ".ics") {
		name += ".ics"
	}
	p.logger.Debug("Publishing events", "file", name, "count", len(events))

	writer, err := p.webdavClient.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create file on WebDAV server: %w", err)
	}

	if err := ical.NewEncoder(writer).Encode(Calendar(events, time.Now())); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	// The upload completes, and reports its status, on Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	p.logger.Info("Successfully published events", "file", name, "count", len(events))
	return nil
}
