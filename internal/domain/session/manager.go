package session

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"papla-server-go/internal/domain/session/model"
	"papla-server-go/internal/domain/session/store"
	platformerrors "papla-server-go/internal/platform/errors"
	"papla-server-go/internal/platform/logging"
)

// Manager owns the session lifecycle: issuing sessions with their token
// and workspace directories, resolving tokens back to sessions, and
// tearing everything down on close.
type Manager struct {
	store   store.Store
	token   *SessionToken
	dataDir string
	ttl     time.Duration
	logger  *logging.Logger
}

func NewManager(st store.Store, token *SessionToken, dataDir string, ttl time.Duration, logger *logging.Logger) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:   st,
		token:   token,
		dataDir: dataDir,
		ttl:     ttl,
		logger:  logger,
	}
}

// Create provisions a new session and its workspace. The returned token
// is what the client presents on subsequent requests.
func (m *Manager) Create(ctx context.Context, apiKey, provider string) (model.Info, string, error) {
	id := uuid.NewString()
	clipDir := filepath.Join(m.dataDir, "sessions", id, "clips")
	if err := os.MkdirAll(clipDir, 0755); err != nil {
		return model.Info{}, "", platformerrors.Wrap(platformerrors.KindSession,
			"session.Create", "create clip directory", err)
	}
	if err := os.MkdirAll(m.MixDir(id), 0755); err != nil {
		return model.Info{}, "", platformerrors.Wrap(platformerrors.KindSession,
			"session.Create", "create mix directory", err)
	}

	now := time.Now()
	expiresAt := now.Add(m.ttl)
	info := model.Info{
		ID:        id,
		APIKey:    apiKey,
		Provider:  provider,
		ClipDir:   clipDir,
		CreatedAt: now,
		ExpiresAt: &expiresAt,
	}
	if err := m.store.Save(ctx, info); err != nil {
		return model.Info{}, "", platformerrors.Wrap(platformerrors.KindSession,
			"session.Create", "persist session", err)
	}

	tokenString, err := m.token.GenerateToken(id)
	if err != nil {
		_ = m.store.Remove(ctx, id)
		return model.Info{}, "", platformerrors.Wrap(platformerrors.KindSession,
			"session.Create", "sign session token", err)
	}

	m.logger.InfoTag("SESSION", "session created", map[string]interface{}{
		"session_id": id,
		"provider":   provider,
	})
	return info, tokenString, nil
}

// Resolve verifies a token and loads the session behind it.
func (m *Manager) Resolve(ctx context.Context, tokenString string) (model.Info, error) {
	ok, id, err := m.token.VerifyToken(tokenString)
	if err != nil {
		return model.Info{}, platformerrors.Wrap(platformerrors.KindSession,
			"session.Resolve", "verify session token", err)
	}
	if !ok {
		return model.Info{}, platformerrors.New(platformerrors.KindSession,
			"session.Resolve", "invalid session token")
	}
	info, err := m.store.Get(ctx, id)
	if err != nil {
		return model.Info{}, platformerrors.Wrap(platformerrors.KindSession,
			"session.Resolve", "load session", err)
	}
	return info, nil
}

// Close removes the session and wipes its workspace from disk.
func (m *Manager) Close(ctx context.Context, id string) error {
	if err := m.store.Remove(ctx, id); err != nil {
		return platformerrors.Wrap(platformerrors.KindSession,
			"session.Close", "remove session", err)
	}
	sessionDir := filepath.Join(m.dataDir, "sessions", id)
	if err := os.RemoveAll(sessionDir); err != nil {
		return platformerrors.Wrap(platformerrors.KindFilesystem,
			"session.Close", "remove session directory", err)
	}
	m.logger.InfoTag("SESSION", "session closed", map[string]interface{}{
		"session_id": id,
	})
	return nil
}

// MixDir is where the sequencer writes a session's combined files.
func (m *Manager) MixDir(id string) string {
	return filepath.Join(m.dataDir, "sessions", id, "mixes")
}

// Stats reports store statistics for the system info endpoint.
func (m *Manager) Stats(ctx context.Context) (map[string]any, error) {
	return m.store.Stats(ctx)
}

// Shutdown closes the backing store.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.store.Close(ctx)
}
