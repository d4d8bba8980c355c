package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"main/internal/database"
	"main/internal/model"
)

const (
	SessionCookieName = "todo_session"

	// SessionTTL is the absolute lifetime of a session. A session
	// validated past half the TTL gets its expiry extended ("fresh"),
	// so active users are never logged out.
	SessionTTL = 24 * time.Hour
)

// SessionManager issues, validates, rotates, and revokes opaque session
// identifiers backed by the relational store.
type SessionManager struct {
	sessions database.SessionStore
	users    database.UserStore
	secure   bool
	now      func() time.Time
}

func NewSessionManager(sessions database.SessionStore, users database.UserStore, secure bool) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		users:    users,
		secure:   secure,
		now:      time.Now,
	}
}

// CreateSession generates a cryptographically random opaque id and
// persists it with a full TTL.
func (m *SessionManager) CreateSession(ctx context.Context, userID int64) (*model.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(SessionTTL),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession looks up a session and its user. An expired session is
// deleted and reported as absent (nil, nil, false, nil). When validation
// happens past half the TTL the expiry is extended and fresh is true, so
// the caller re-issues the session cookie.
func (m *SessionManager) ValidateSession(ctx context.Context, id string) (*model.Session, *model.User, bool, error) {
	session, err := m.sessions.FindSession(ctx, id)
	if err != nil {
		return nil, nil, false, err
	}
	if session == nil {
		return nil, nil, false, nil
	}

	now := m.now()
	if now.After(session.ExpiresAt) {
		if err := m.sessions.DeleteSession(ctx, id); err != nil {
			return nil, nil, false, err
		}
		return nil, nil, false, nil
	}

	fresh := false
	if now.After(session.ExpiresAt.Add(-SessionTTL / 2)) {
		session.ExpiresAt = now.Add(SessionTTL)
		if err := m.sessions.UpdateSessionExpiry(ctx, id, session.ExpiresAt); err != nil {
			return nil, nil, false, err
		}
		fresh = true
	}

	user, err := m.users.FindUserByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, false, err
	}
	if user == nil {
		// Owner vanished; the session is worthless.
		if err := m.sessions.DeleteSession(ctx, id); err != nil {
			return nil, nil, false, err
		}
		return nil, nil, false, nil
	}

	return session, user, fresh, nil
}

// InvalidateSession deletes the session; safe to call repeatedly.
func (m *SessionManager) InvalidateSession(ctx context.Context, id string) error {
	return m.sessions.DeleteSession(ctx, id)
}

// SessionCookie builds the cookie carrying the session id.
func (m *SessionManager) SessionCookie(session *model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// BlankSessionCookie expires immediately; it clears client state after
// signout or when an invalid session id was presented.
func (m *SessionManager) BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ReadSessionID extracts the session id from the request, trying the
// bearer header before the cookie.
func (m *SessionManager) ReadSessionID(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
