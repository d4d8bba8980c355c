package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"main/internal/model"
)

// SessionStore persists opaque login sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	FindSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

type sessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) SessionStore {
	return &sessionStore{db: db}
}

func (s *sessionStore) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)",
		session.ID, session.UserID, session.ExpiresAt)
	return err
}

func (s *sessionStore) FindSession(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at FROM sessions WHERE id = $1", id).
		Scan(&session.ID, &session.UserID, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

func (s *sessionStore) UpdateSessionExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = $1 WHERE id = $2", expiresAt, id)
	return err
}

// DeleteSession is idempotent; deleting an absent session is not an error.
func (s *sessionStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id)
	return err
}
