package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gcalauto/internal/models"
)

// ErrClosed is returned when the input ends before a prompt is answered.
var ErrClosed = errors.New("input closed")

// EventService is the part of the calendar client the interactive session uses.
type EventService interface {
	Create(ctx context.Context, draft models.EventDraft) (models.Event, error)
	List(ctx context.Context, r models.DateRange) ([]models.Event, error)
}

// Session runs the interactive menu on a pair of streams.
type Session struct {
	in          *bufio.Reader
	out         io.Writer
	service     EventService
	defaultZone string
	logger      *slog.Logger
	now         func() time.Time
}

// NewSession creates a Session. in may be a *bufio.Reader shared with other
// readers of the same stream.
func NewSession(in io.Reader, out io.Writer, service EventService, defaultZone string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		in:          bufio.NewReader(in),
		out:         out,
		service:     service,
		defaultZone: defaultZone,
		logger:      logger,
		now:         time.Now,
	}
}

// Run shows the menu until the user exits or the input ends. Failed operations are
// reported and the menu is shown again.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Google Calendar Automation")
	for {
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Select an option:")
		fmt.Fprintln(s.out, "0. Exit")
		fmt.Fprintln(s.out, "1. Create Event")
		fmt.Fprintln(s.out, "2. List Events")

		line, err := s.ask("Enter your choice (0/1/2): ")
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}

		switch line {
		case "0":
			fmt.Fprintln(s.out, "Exiting. Goodbye!")
			return nil
		case "1":
			err = s.CreateEvent(ctx)
		case "2":
			err = s.ListEvents(ctx)
		default:
			fmt.Fprintln(s.out, "Invalid choice. Please enter a number (0. Exit, 1. Create Event, 2. List Events).")
			continue
		}

		switch {
		case errors.Is(err, ErrClosed):
			return nil
		case err != nil:
			s.logger.Debug("Menu operation failed", "choice", line, "error", err)
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// CreateEvent collects a draft, creates it and prints the event link.
func (s *Session) CreateEvent(ctx context.Context) error {
	draft, err := s.ReadDraft()
	if err != nil {
		return err
	}
	ev, err := s.service.Create(ctx, draft)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	fmt.Fprintf(s.out, "Event created: %s\n", ev.HTMLLink)
	return nil
}

// ListEvents collects a date range and prints the events in it as a table.
func (s *Session) ListEvents(ctx context.Context) error {
	r, err := s.ReadRange()
	if err != nil {
		return err
	}
	events, err := s.service.List(ctx, r)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(s.out, "No events found.")
		return nil
	}
	fmt.Fprintln(s.out, "\nEvents List:")
	fmt.Fprintln(s.out, RenderEvents(events))
	return nil
}

// ReadDraft prompts for every event field. Invalid answers are reported and asked
// again.
func (s *Session) ReadDraft() (models.EventDraft, error) {
	var d models.EventDraft
	var err error

	if d.Title, err = s.askUntil("Enter event title: ", func(v string) (string, error) {
		if strings.TrimSpace(v) == "" {
			return "", models.NewInvalidField("title", "must not be empty")
		}
		return strings.TrimSpace(v), nil
	}); err != nil {
		return d, err
	}

	for {
		if d.Start, d.DurationMinutes, d.TimeZone, err = s.readTiming(); err != nil {
			return d, err
		}
		if _, err := d.Resolve(); err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			continue
		}
		break
	}

	if d.Location, err = s.ask("Enter location (optional, press Enter to skip): "); err != nil {
		return d, err
	}
	if d.Description, err = s.ask("Enter description (optional, press Enter to skip): "); err != nil {
		return d, err
	}

	fmt.Fprint(s.out, colorMenu())
	if d.ColorID, err = s.askUntil("Enter color number (1-11, press Enter to skip): ", func(v string) (string, error) {
		return v, models.ValidateColorID(v)
	}); err != nil {
		return d, err
	}

	if d.Attendees, err = askUntil(s, "Enter attendee emails (comma-separated, press Enter to skip): ", parseAttendees); err != nil {
		return d, err
	}
	return d, nil
}

func (s *Session) readTiming() (time.Time, int, string, error) {
	today := s.now().Format("2006-01-02")
	date, err := askUntil(s, fmt.Sprintf("Enter date (YYYY-MM-DD) [default: %s]: ", today), func(v string) (time.Time, error) {
		if v == "" {
			v = today
		}
		return models.ParseDate(v)
	})
	if err != nil {
		return time.Time{}, 0, "", err
	}

	start, err := askUntil(s, "Enter start time (HH:MM): ", func(v string) (time.Time, error) {
		return models.ParseClock(date, v)
	})
	if err != nil {
		return time.Time{}, 0, "", err
	}

	duration, err := askUntil(s, "Enter duration in minutes (default: 60): ", func(v string) (int, error) {
		if v == "" {
			return 60, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, models.NewInvalidField("duration", "must be a positive number of minutes, got %q", v)
		}
		return n, nil
	})
	if err != nil {
		return time.Time{}, 0, "", err
	}

	zone, err := s.askZone()
	if err != nil {
		return time.Time{}, 0, "", err
	}
	return start, duration, zone, nil
}

// ReadRange prompts for an inclusive date range, today through a week from today
// by default.
func (s *Session) ReadRange() (models.DateRange, error) {
	fmt.Fprintln(s.out, "\nEnter date range for events:")
	for {
		today := s.now()
		first, err := askUntil(s, fmt.Sprintf("Start date (YYYY-MM-DD) [default: %s]: ", today.Format("2006-01-02")), dateOr(today))
		if err != nil {
			return models.DateRange{}, err
		}
		week := today.AddDate(0, 0, 7)
		last, err := askUntil(s, fmt.Sprintf("End date (YYYY-MM-DD) [default: %s]: ", week.Format("2006-01-02")), dateOr(week))
		if err != nil {
			return models.DateRange{}, err
		}
		zone, err := s.askZone()
		if err != nil {
			return models.DateRange{}, err
		}

		r, err := models.NewDayRange(first, last, zone)
		if err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			continue
		}
		return r, nil
	}
}

func (s *Session) askZone() (string, error) {
	return s.askUntil(fmt.Sprintf("Enter timezone (press Enter for %s): ", s.defaultZone), func(v string) (string, error) {
		if v == "" {
			v = s.defaultZone
		}
		_, err := models.LoadZone(v)
		return v, err
	})
}

// ask prints label and returns the trimmed answer.
func (s *Session) ask(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return "", ErrClosed
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) askUntil(label string, parse func(string) (string, error)) (string, error) {
	return askUntil(s, label, parse)
}

// askUntil repeats the prompt until parse accepts the answer.
func askUntil[T any](s *Session, label string, parse func(string) (T, error)) (T, error) {
	for {
		line, err := s.ask(label)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(line)
		if err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
			continue
		}
		return v, nil
	}
}

func dateOr(def time.Time) func(string) (time.Time, error) {
	return func(v string) (time.Time, error) {
		if v == "" {
			return time.Date(def.Year(), def.Month(), def.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		return models.ParseDate(v)
	}
}

func parseAttendees(v string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if email := strings.TrimSpace(part); email != "" {
			out = append(out, email)
		}
	}
	return out, models.ValidateAttendees(out)
}

func colorMenu() string {
	var b strings.Builder
	b.WriteString("\nAvailable colors:\n")
	for i := 1; i <= 11; i++ {
		id := strconv.Itoa(i)
		fmt.Fprintf(&b, "%-13s", id+": "+models.ColorNames[id])
		if i%3 == 0 || i == 11 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
