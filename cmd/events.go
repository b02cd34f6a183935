package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"gcalauto/internal/export"
	"gcalauto/internal/models"
	"gcalauto/internal/prompt"
)

func eventFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Event title."},
		&cli.StringFlag{Name: "date", Usage: "Date as YYYY-MM-DD."},
		&cli.StringFlag{Name: "time", Usage: "Start time as HH:MM."},
		&cli.IntFlag{Name: "duration", Usage: "Duration in minutes."},
		&cli.StringFlag{Name: "timezone", Usage: "IANA time zone, e.g. Europe/London."},
		&cli.StringFlag{Name: "location", Usage: "Event location."},
		&cli.StringFlag{Name: "description", Usage: "Event description."},
		&cli.StringFlag{Name: "color", Usage: "Colour id, 1-11."},
		&cli.StringSliceFlag{Name: "attendee", Usage: "Attendee email; repeat for several."},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an event.",
		Flags: eventFlags(),
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}

			date := time.Now()
			if c.IsSet("date") {
				if date, err = models.ParseDate(c.String("date")); err != nil {
					return err
				}
			}
			if !c.IsSet("time") {
				return models.NewInvalidField("time", "--time is required")
			}
			start, err := models.ParseClock(date, c.String("time"))
			if err != nil {
				return err
			}
			duration := 60
			if c.IsSet("duration") {
				duration = c.Int("duration")
			}
			zone := c.String("timezone")
			if zone == "" {
				zone = s.cfg.DefaultTimezone
			}

			ev, err := s.client.Create(c.Context, models.EventDraft{
				Title:           c.String("title"),
				Start:           start,
				DurationMinutes: duration,
				TimeZone:        zone,
				Location:        c.String("location"),
				Description:     c.String("description"),
				ColorID:         c.String("color"),
				Attendees:       c.StringSlice("attendee"),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Event created: %s\nID: %s\n", ev.HTMLLink, ev.ID)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List events in a date range, optionally exporting them as iCalendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day as YYYY-MM-DD (default today)."},
			&cli.StringFlag{Name: "to", Usage: "Last day as YYYY-MM-DD, inclusive (default a week after --from)."},
			&cli.StringFlag{Name: "timezone", Usage: "IANA time zone the days are interpreted in."},
			&cli.StringFlag{Name: "ics", Usage: "Also write the events to this .ics file."},
			&cli.StringFlag{Name: "webdav-url", EnvVars: []string{"WEBDAV_URL"}, Usage: "Also publish the events to this WebDAV collection."},
			&cli.StringFlag{Name: "webdav-file", Value: "gcalauto.ics", Usage: "File name within the WebDAV collection."},
			&cli.StringFlag{Name: "webdav-username", EnvVars: []string{"WEBDAV_USERNAME"}},
			&cli.StringFlag{Name: "webdav-password", EnvVars: []string{"WEBDAV_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}

			first := time.Now()
			if c.IsSet("from") {
				if first, err = models.ParseDate(c.String("from")); err != nil {
					return err
				}
			}
			last := first.AddDate(0, 0, 7)
			if c.IsSet("to") {
				if last, err = models.ParseDate(c.String("to")); err != nil {
					return err
				}
			}
			zone := c.String("timezone")
			if zone == "" {
				zone = s.cfg.DefaultTimezone
			}
			r, err := models.NewDayRange(first, last, zone)
			if err != nil {
				return err
			}

			events, err := s.client.List(c.Context, r)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No events found.")
			} else {
				fmt.Println(prompt.RenderEvents(events))
			}

			if path := c.String("ics"); path != "" {
				if err := writeICS(path, events); err != nil {
					return err
				}
				s.logger.Info("Wrote iCalendar file.", "file", path, "count", len(events))
			}

			if endpoint := c.String("webdav-url"); endpoint != "" {
				publisher, err := export.NewPublisher(export.PublisherOptions{
					Endpoint: endpoint,
					Username: c.String("webdav-username"),
					Password: c.String("webdav-password"),
					Timeout:  s.cfg.RequestTimeout,
					Logger:   s.logger,
				})
				if err != nil {
					return err
				}
				if err := publisher.Publish(c.Context, c.String("webdav-file"), events); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func writeICS(path string, events []models.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.Encode(f, events, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func updateCommand() *cli.Command {
	flags := append(eventFlags(),
		&cli.BoolFlag{Name: "clear-attendees", Usage: "Remove every attendee."},
	)
	return &cli.Command{
		Name:      "update",
		Usage:     "Change some fields of an existing event. Fields not given are left as they are.",
		ArgsUsage: "ID",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			patch, err := patchFromFlags(c)
			if err != nil {
				return err
			}

			s, err := newSession(c)
			if err != nil {
				return err
			}
			ev, err := s.client.Update(c.Context, id, patch)
			if err != nil {
				return err
			}
			fmt.Printf("Event updated: %s (%s)\n", ev.Title, ev.DateLabel())
			return nil
		},
	}
}

// patchFromFlags builds a patch from the flags that were given. An explicitly
// empty string clears an optional field.
func patchFromFlags(c *cli.Context) (models.EventPatch, error) {
	var p models.EventPatch
	str := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}

	p.Title = str("title")
	p.TimeZone = str("timezone")
	p.Location = str("location")
	p.Description = str("description")
	p.ColorID = str("color")

	if c.IsSet("duration") {
		d := c.Int("duration")
		p.DurationMinutes = &d
	}

	switch {
	case c.IsSet("date") && c.IsSet("time"):
		date, err := models.ParseDate(c.String("date"))
		if err != nil {
			return p, err
		}
		start, err := models.ParseClock(date, c.String("time"))
		if err != nil {
			return p, err
		}
		p.Start = &start
	case c.IsSet("date") || c.IsSet("time"):
		return p, errors.New("--date and --time must be given together")
	}

	switch {
	case c.Bool("clear-attendees") && c.IsSet("attendee"):
		return p, errors.New("--clear-attendees cannot be combined with --attendee")
	case c.Bool("clear-attendees"):
		none := []string{}
		p.Attendees = &none
	case c.IsSet("attendee"):
		attendees := c.StringSlice("attendee")
		p.Attendees = &attendees
	}
	return p, nil
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an event. Deleting an event that no longer exists succeeds.",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}
			if err := s.client.Delete(c.Context, id); err != nil {
				return err
			}
			fmt.Printf("Event %s deleted.\n", id)
			return nil
		},
	}
}
