// Package session resolves the bank access token for the signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"trackify/internal/core"
	applog "trackify/internal/log"
	"trackify/internal/mirror"
)

// LocalCache is the on-device token store.
type LocalCache interface {
	GetAccessToken(ctx context.Context, userID string) (string, error)
	SetAccessToken(ctx context.Context, userID, token string) error
	DeleteAccessToken(ctx context.Context, userID string) error
}

// Manager checks the local cache first, then the remote store, and
// backfills the cache on a remote hit. The remote store is optional.
type Manager struct {
	userID string
	local  LocalCache
	remote mirror.TokenStore
	group  singleflight.Group
	logger *slog.Logger
}

func NewManager(userID string, local LocalCache, remote mirror.TokenStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		userID: userID,
		local:  local,
		remote: remote,
		logger: logger.With(applog.FieldComponent, applog.ComponentSession),
	}
}

// GetAccessToken returns core.ErrNoAccessToken when neither store has a token.
// Concurrent callers share one lookup.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do(m.userID, func() (any, error) {
		return m.lookup(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) lookup(ctx context.Context) (string, error) {
	token, err := m.local.GetAccessToken(ctx, m.userID)
	switch {
	case err == nil && token != "":
		return token, nil
	case err != nil && !errors.Is(err, core.ErrNotFound):
		m.logger.WarnContext(ctx, "Local token cache read failed", applog.FieldError, err)
	}

	if m.remote == nil {
		return "", core.ErrNoAccessToken
	}
	token, err = m.remote.GetAccessToken(ctx, m.userID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			m.logger.WarnContext(ctx, "Remote token lookup failed",
				applog.FieldUserID, m.userID, applog.FieldError, err)
		}
		return "", core.ErrNoAccessToken
	}
	if strings.TrimSpace(token) == "" {
		return "", core.ErrNoAccessToken
	}

	if err := m.local.SetAccessToken(ctx, m.userID, token); err != nil {
		m.logger.WarnContext(ctx, "Failed to backfill local token cache", applog.FieldError, err)
	}
	return token, nil
}

// SetAccessToken stores the token locally and, best-effort, remotely.
func (m *Manager) SetAccessToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.ErrNoAccessToken
	}
	if err := m.local.SetAccessToken(ctx, m.userID, token); err != nil {
		return fmt.Errorf("cache access token: %w", err)
	}
	if m.remote != nil {
		if err := m.remote.SetAccessToken(ctx, m.userID, token); err != nil {
			m.logger.WarnContext(ctx, "Failed to store access token remotely",
				applog.FieldUserID, m.userID, applog.FieldError, err)
		}
	}
	return nil
}

// ClearAccessToken forgets the token in both stores. Missing tokens are fine.
func (m *Manager) ClearAccessToken(ctx context.Context) error {
	if err := m.local.DeleteAccessToken(ctx, m.userID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("clear cached access token: %w", err)
	}
	if m.remote != nil {
		if err := m.remote.DeleteAccessToken(ctx, m.userID); err != nil && !errors.Is(err, core.ErrNotFound) {
			m.logger.WarnContext(ctx, "Failed to clear remote access token",
				applog.FieldUserID, m.userID, applog.FieldError, err)
		}
	}
	return nil
}
