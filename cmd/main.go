package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"gcalauto/internal/config"
	"gcalauto/internal/credentials"
	"gcalauto/internal/google"
	"gcalauto/internal/prompt"
)

const (
	configKey = "config"
	loggerKey = "logger"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "gcalauto",
		Usage:  "Create, list, update and delete events on your Google Calendar.",
		Flags:  globalFlags(),
		Before: setup,
		Action: runMenu,
		Commands: []*cli.Command{
			menuCommand(),
			authCommand(),
			createCommand(),
			listCommand(),
			updateCommand(),
			deleteCommand(),
			papersCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	d := config.Default()
	return []cli.Flag{
		&cli.StringFlag{Name: "token-path", Value: d.TokenPath, EnvVars: []string{"GCALAUTO_TOKEN_PATH"}, Usage: "Where the OAuth credentials are cached."},
		&cli.StringFlag{Name: "client-config", Value: d.ClientConfigPath, EnvVars: []string{"GOOGLE_CLIENT_CONFIG"}, Usage: "OAuth client file downloaded from Google Cloud Console."},
		&cli.StringFlag{Name: "timezone", Value: d.DefaultTimezone, EnvVars: []string{"GCALAUTO_TIMEZONE", "PRIMARY_TIMEZONE"}, Usage: "Default IANA time zone for new events and listings."},
		&cli.DurationFlag{Name: "timeout", Value: d.RequestTimeout, EnvVars: []string{"GCALAUTO_TIMEOUT"}, Usage: "Timeout for each call to Google."},
		&cli.DurationFlag{Name: "callback-timeout", Value: d.CallbackTimeout, EnvVars: []string{"GCALAUTO_CALLBACK_TIMEOUT"}, Usage: "How long to wait for the browser login to finish."},
		&cli.IntFlag{Name: "callback-port", EnvVars: []string{"GCALAUTO_CALLBACK_PORT"}, Usage: "Local port for the OAuth redirect (0 picks a free port)."},
		&cli.BoolFlag{Name: "no-browser", EnvVars: []string{"GCALAUTO_NO_BROWSER"}, Usage: "Print the login URL and read the code from stdin instead of using a local redirect."},
		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error."},
	}
}

// setup reads the global flags once, before any command runs.
func setup(c *cli.Context) error {
	logger := setupLogger(c.String("log-level"))
	slog.SetDefault(logger)

	cfg := config.Config{
		TokenPath:        c.String("token-path"),
		ClientConfigPath: c.String("client-config"),
		DefaultTimezone:  c.String("timezone"),
		RequestTimeout:   c.Duration("timeout"),
		CallbackTimeout:  c.Duration("callback-timeout"),
		CallbackPort:     c.Int("callback-port"),
		NoBrowser:        c.Bool("no-browser"),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[configKey] = cfg
	c.App.Metadata[loggerKey] = logger
	return nil
}

// session is everything a calendar command needs, built from the configuration.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	in     *bufio.Reader
	store  *credentials.FileStore
	auth   *google.Authenticator
	client *google.CalendarClient
}

func newSession(c *cli.Context) (*session, error) {
	cfg := c.App.Metadata[configKey].(config.Config)
	logger := c.App.Metadata[loggerKey].(*slog.Logger)

	oauthConfig, err := google.OAuthConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), cfg.ClientConfigPath, cfg.Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get google oauth config: %w", err)
	}

	in := bufio.NewReader(os.Stdin)
	var consent google.ConsentCompleter
	if cfg.NoBrowser {
		consent = &google.ManualCompleter{In: in, Out: os.Stdout}
	} else {
		consent = &google.LoopbackCompleter{
			Port:        cfg.CallbackPort,
			Timeout:     cfg.CallbackTimeout,
			OpenBrowser: true,
			Out:         os.Stdout,
			Logger:      logger,
		}
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	auth := google.NewAuthenticator(oauthConfig, consent, httpClient, logger)
	store := credentials.NewFileStore(cfg.TokenPath, logger)

	client, err := google.NewClient(google.ClientOptions{
		Store:      store,
		Auth:       auth,
		Codec:      google.NewCodec(cfg.Location()),
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &session{cfg: cfg, logger: logger, in: in, store: store, auth: auth, client: client}, nil
}

func menuCommand() *cli.Command {
	return &cli.Command{
		Name:   "menu",
		Usage:  "Run the interactive menu (the default when no command is given).",
		Action: runMenu,
	}
}

func runMenu(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	// Log in before the first prompt is shown.
	if _, err := s.store.GetValid(c.Context, s.auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return prompt.NewSession(s.in, os.Stdout, s.client, s.cfg.DefaultTimezone, s.logger).Run(c.Context)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and cache the credentials.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Discard cached credentials and log in again."},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			if c.Bool("force") {
				if err := s.store.Clear(); err != nil {
					return err
				}
				s.logger.Info("Cleared cached credentials.", "file", s.store.Path())
			}

			bundle, err := s.store.GetValid(c.Context, s.auth)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			s.logger.Info("Successfully authenticated.", "file", s.store.Path(), "expiry", bundle.Expiry.Format(time.RFC3339))
			fmt.Printf("Authenticated. Credentials saved to %s\n", s.store.Path())
			return nil
		},
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// requireID returns the event id given as the first argument.
func requireID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("an event id is required")
	}
	return id, nil
}
