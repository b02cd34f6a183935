package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gcalauto/internal/models"
)

// OAuthConfig builds the OAuth2 client configuration.
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET take priority over the client config file.
func OAuthConfig(clientID, clientSecret, clientConfigPath string, scopes []string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(clientConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or download the OAuth client file from Google Cloud Console", clientConfigPath)
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return config, nil
}

// AuthCodeURL returns the consent URL for conf, asking for a refresh token.
func AuthCodeURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Authenticator performs the authorization-code and refresh-token exchanges.
type Authenticator struct {
	conf       *oauth2.Config
	consent    ConsentCompleter
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthenticator creates an Authenticator. httpClient carries the timeout used
// for calls to the token endpoint.
func NewAuthenticator(conf *oauth2.Config, consent ConsentCompleter, httpClient *http.Client, logger *slog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{conf: conf, consent: consent, httpClient: httpClient, logger: logger}
}

func (a *Authenticator) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// Login runs the interactive consent flow and exchanges the resulting code.
func (a *Authenticator) Login(ctx context.Context) (*models.TokenBundle, error) {
	state := uuid.NewString()

	code, err := a.consent.AuthorizationCode(ctx, a.conf, state)
	if err != nil {
		var cancelled *models.UserCancelledError
		if errors.As(err, &cancelled) {
			return nil, err
		}
		return nil, &models.AuthUnavailableError{Op: "login", Err: err}
	}

	token, err := a.conf.Exchange(a.tokenContext(ctx), code)
	if err != nil {
		return nil, &models.AuthUnavailableError{Op: "code exchange", Err: err}
	}

	a.logger.Info("Google authentication succeeded.", "expiry", token.Expiry)
	return models.BundleFromOAuth2(token, a.conf.Scopes), nil
}

// Refresh exchanges the bundle's refresh token for a new access token. The refresh
// token and scopes are kept unless the provider returns new ones.
func (a *Authenticator) Refresh(ctx context.Context, bundle *models.TokenBundle) (*models.TokenBundle, error) {
	if !bundle.Refreshable() {
		return nil, &models.RefreshRejectedError{Err: errors.New("no refresh token")}
	}

	// An expiry in the past forces the token source to hit the token endpoint.
	src := a.conf.TokenSource(a.tokenContext(ctx), &oauth2.Token{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		TokenType:    bundle.TokenType,
		Expiry:       time.Unix(1, 0),
	})

	token, err := src.Token()
	if err != nil {
		if refreshRejected(err) {
			return nil, &models.RefreshRejectedError{Err: err}
		}
		return nil, &models.AuthUnavailableError{Op: "refresh", Err: err}
	}

	refreshed := models.BundleFromOAuth2(token, bundle.Scopes)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = bundle.RefreshToken
	}
	a.logger.Debug("Refreshed access token.", "expiry", refreshed.Expiry)
	return refreshed, nil
}

// refreshRejected reports whether the token endpoint refused the refresh token
// itself, as opposed to being unreachable.
func refreshRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	switch re.ErrorCode {
	case "invalid_grant", "unauthorized_client":
		return true
	}
	if re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return true
		}
	}
	return false
}
