package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"google.golang.org/api/calendar/v3"

	"gcalauto/internal/models"
)

const (
	appName                = "gcalauto"
	DefaultClientConfig    = "credentials.json"
	DefaultTimezone        = "Europe/London"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultCallbackTimeout = 5 * time.Minute
)

// Config holds everything the credential and calendar layers need at construction.
type Config struct {
	TokenPath        string
	ClientConfigPath string
	Scopes           []string
	DefaultTimezone  string
	RequestTimeout   time.Duration
	CallbackTimeout  time.Duration
	// CallbackPort is the loopback port for the OAuth redirect. 0 picks a free port.
	CallbackPort int
	NoBrowser    bool
}

// DefaultTokenPath returns the XDG data location of the credential file.
func DefaultTokenPath() string {
	return filepath.Join(xdg.DataHome, appName, "token.json")
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		TokenPath:        DefaultTokenPath(),
		ClientConfigPath: DefaultClientConfig,
		Scopes:           []string{calendar.CalendarScope},
		DefaultTimezone:  DefaultTimezone,
		RequestTimeout:   DefaultRequestTimeout,
		CallbackTimeout:  DefaultCallbackTimeout,
	}
}

// Validate fills zero values with defaults and rejects unusable settings.
func (c *Config) Validate() error {
	d := Default()
	if c.TokenPath == "" {
		c.TokenPath = d.TokenPath
	}
	if c.ClientConfigPath == "" {
		c.ClientConfigPath = d.ClientConfigPath
	}
	if len(c.Scopes) == 0 {
		c.Scopes = d.Scopes
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = d.DefaultTimezone
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.CallbackTimeout == 0 {
		c.CallbackTimeout = d.CallbackTimeout
	}

	if _, err := models.LoadZone(c.DefaultTimezone); err != nil {
		return fmt.Errorf("default timezone: %w", err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.CallbackTimeout < 0 {
		return fmt.Errorf("callback timeout must be positive, got %s", c.CallbackTimeout)
	}
	if c.CallbackPort < 0 || c.CallbackPort > 65535 {
		return fmt.Errorf("callback port must be between 0 and 65535, got %d", c.CallbackPort)
	}
	return nil
}

// Location returns the default time zone as a *time.Location.
func (c Config) Location() *time.Location {
	loc, err := models.LoadZone(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
