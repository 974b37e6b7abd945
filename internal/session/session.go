// Package session tracks signed-in marketplace users. A session is carried
// explicitly through context.Context by the HTTP API and the bot.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusconnect/campusconnect/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrMissingUserID = errors.New("user id is required")
)

// Session is an open user session.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	University string    `json:"university,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
}

// Store persists sessions. storage.SQLiteStore implements it.
type Store interface {
	SaveSession(session *storage.StoredSession) error
	GetSession(id string) (*storage.StoredSession, error)
	EndSession(id string, at time.Time) error
	ActiveSessions() ([]storage.StoredSession, error)
}

// Manager starts, resolves and ends sessions.
type Manager struct {
	store Store
	now   func() time.Time
}

// NewManager creates a session manager backed by store.
func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Start opens a new session for userID.
func (m *Manager) Start(userID, university string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUserID
	}

	s := &storage.StoredSession{
		ID:         uuid.New().String(),
		UserID:     userID,
		University: strings.TrimSpace(university),
		StartedAt:  m.now(),
	}
	if err := m.store.SaveSession(s); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	log.Info().Str("sessionId", s.ID).Str("userId", userID).Msg("session started")
	return fromStored(s), nil
}

// Get returns the open session with id. Ended and unknown sessions yield
// ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	s, err := m.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil || !s.Active() {
		return nil, ErrNotFound
	}
	return fromStored(s), nil
}

// End closes the session with id.
func (m *Manager) End(id string) error {
	if _, err := m.Get(id); err != nil {
		return err
	}
	if err := m.store.EndSession(id, m.now()); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	log.Info().Str("sessionId", id).Msg("session ended")
	return nil
}

// EndAll closes every open session and returns how many were closed. It is
// called on shutdown.
func (m *Manager) EndAll() (int, error) {
	active, err := m.store.ActiveSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := m.now()
	ended := 0
	for _, s := range active {
		if err := m.store.EndSession(s.ID, now); err != nil {
			return ended, fmt.Errorf("failed to end session %s: %w", s.ID, err)
		}
		ended++
	}
	return ended, nil
}

func fromStored(s *storage.StoredSession) *Session {
	return &Session{
		ID:         s.ID,
		UserID:     s.UserID,
		University: s.University,
		StartedAt:  s.StartedAt,
	}
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}
