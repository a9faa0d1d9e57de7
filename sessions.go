package main

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "session_id"

var errNoSession = errors.New("NO_SESSION")

// createSession starts an authenticated session. The cookie only carries the
// opaque session id; everything else is re-read from the store per request.
func createSession(db *sql.DB, userID int64, ttl time.Duration) (string, time.Time, error) {
	sessionID := uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := db.Exec(`
		INSERT INTO sessions (session_id, user_id, is_guest, expires_at)
		VALUES ($1, $2, FALSE, $3)
	`, sessionID, userID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return sessionID, expiresAt, nil
}

// createGuestSession marks the caller as a guest. Guest sessions have no
// user row behind them; guest play never persists anything.
func createGuestSession(db *sql.DB, ttl time.Duration) (string, time.Time, error) {
	sessionID := uuid.NewString()
	expiresAt := time.Now().UTC().Add(ttl)

	_, err := db.Exec(`
		INSERT INTO sessions (session_id, user_id, is_guest, expires_at)
		VALUES ($1, NULL, TRUE, $2)
	`, sessionID, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return sessionID, expiresAt, nil
}

func clearSession(db *sql.DB, sessionID string) {
	_, _ = db.Exec(`
		DELETE FROM sessions
		WHERE session_id = $1
	`, sessionID)
}

type sessionIdentity struct {
	SessionID string
	IsGuest   bool
	User      *User
}

// resolveSession maps the request cookie to an identity. The user record is
// the current database row, never a cached copy. Expired sessions are
// deleted on read.
func resolveSession(db *sql.DB, r *http.Request) (*sessionIdentity, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, errNoSession
	}

	var userID sql.NullInt64
	var isGuest bool
	var expiresAt time.Time
	err = db.QueryRow(`
		SELECT user_id, is_guest, expires_at
		FROM sessions
		WHERE session_id = $1
	`, cookie.Value).Scan(&userID, &isGuest, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, errNoSession
	}
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().After(expiresAt) {
		clearSession(db, cookie.Value)
		return nil, errNoSession
	}

	identity := &sessionIdentity{SessionID: cookie.Value, IsGuest: isGuest}
	if isGuest || !userID.Valid {
		identity.IsGuest = true
		return identity, nil
	}

	user, err := getUserByID(db, userID.Int64)
	if err != nil {
		return nil, err
	}
	if user == nil {
		clearSession(db, cookie.Value)
		return nil, errNoSession
	}
	identity.User = user
	return identity, nil
}

func writeSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
