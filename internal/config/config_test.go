package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAppliesDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultTokenPath(), cfg.TokenPath)
	assert.Equal(t, DefaultClientConfig, cfg.ClientConfigPath)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/calendar"}, cfg.Scopes)
	assert.Equal(t, DefaultTimezone, cfg.DefaultTimezone)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CallbackTimeout)
	assert.Equal(t, "Europe/London", cfg.Location().String())
}

func TestValidateKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		TokenPath:        "/tmp/token.json",
		ClientConfigPath: "/tmp/client.json",
		Scopes:           []string{"scope-a"},
		DefaultTimezone:  "Asia/Tokyo",
		RequestTimeout:   time.Second,
		CallbackTimeout:  time.Minute,
		CallbackPort:     8080,
	}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/tmp/token.json", cfg.TokenPath)
	assert.Equal(t, []string{"scope-a"}, cfg.Scopes)
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())
	assert.Equal(t, 8080, cfg.CallbackPort)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown zone", Config{DefaultTimezone: "Nowhere/City"}},
		{"negative timeout", Config{RequestTimeout: -time.Second}},
		{"negative callback timeout", Config{CallbackTimeout: -time.Second}},
		{"port too large", Config{CallbackPort: 70000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultTokenPathXDG(t *testing.T) {
	path := DefaultTokenPath()
	assert.True(t, strings.HasPrefix(path, filepath.Join(xdg.DataHome, "gcalauto")))
	assert.Equal(t, "token.json", filepath.Base(path))
}
