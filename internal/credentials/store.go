package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gcalauto/internal/models"
)

// Authenticator obtains fresh credentials from the identity provider.
type Authenticator interface {
	Login(ctx context.Context) (*models.TokenBundle, error)
	Refresh(ctx context.Context, bundle *models.TokenBundle) (*models.TokenBundle, error)
}

// FileStore persists a single TokenBundle as JSON and decides when it must be
// refreshed or replaced.
type FileStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger, now: time.Now}
}

// Path returns the location of the credential file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted bundle. It returns nil, nil when nothing has been saved
// and a *models.CorruptStoreError when the file cannot be decoded.
func (s *FileStore) Load() (*models.TokenBundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var bundle models.TokenBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, &models.CorruptStoreError{Path: s.path, Err: err}
	}
	if bundle.AccessToken == "" {
		return nil, &models.CorruptStoreError{Path: s.path, Err: errors.New("no access token")}
	}
	return &bundle, nil
}

// Save atomically replaces the persisted bundle. The data is written to a temporary
// file in the same directory and renamed over the target, so a crash never leaves a
// partially written credential file.
func (s *FileStore) Save(bundle *models.TokenBundle) error {
	if bundle == nil {
		return errors.New("refusing to save nil token bundle")
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Clear removes the persisted bundle. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// GetValid returns a bundle that is valid right now. A cached valid bundle is
// returned without touching the network; an expired one is refreshed when
// possible; otherwise the user is taken through a full login.
func (s *FileStore) GetValid(ctx context.Context, auth Authenticator) (*models.TokenBundle, error) {
	bundle, err := s.Load()
	if err != nil {
		var corrupt *models.CorruptStoreError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		s.logger.Warn("Ignoring unreadable credential file, re-authenticating.", "path", s.path, "error", err)
		bundle = nil
	}

	if bundle == nil {
		s.logger.Info("No stored credentials, starting login.")
		return s.login(ctx, auth)
	}

	if bundle.Valid(s.now()) {
		s.logger.Debug("Using cached credentials.", "expiry", bundle.Expiry)
		return bundle, nil
	}

	if bundle.Refreshable() {
		s.logger.Debug("Access token expired, refreshing.", "expiry", bundle.Expiry)
		refreshed, err := auth.Refresh(ctx, bundle)
		if err == nil {
			if err := s.Save(refreshed); err != nil {
				return nil, fmt.Errorf("failed to save refreshed token: %w", err)
			}
			return refreshed, nil
		}
		var rejected *models.RefreshRejectedError
		if !errors.As(err, &rejected) {
			return nil, err
		}
		s.logger.Warn("Refresh token rejected, falling back to login.", "error", err)
	}

	return s.login(ctx, auth)
}

func (s *FileStore) login(ctx context.Context, auth Authenticator) (*models.TokenBundle, error) {
	bundle, err := auth.Login(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Save(bundle); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	s.logger.Info("Stored new credentials.", "path", s.path)
	return bundle, nil
}
