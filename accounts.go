package main

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
)

type User struct {
	ID       int64
	Email    string
	Username string
	Coins    int64
	Verified bool
}

var (
	errDuplicateEmail     = errors.New("DUPLICATE_EMAIL")
	errDuplicateUsername  = errors.New("DUPLICATE_USERNAME")
	errDuplicateAccount   = errors.New("DUPLICATE_ACCOUNT")
	errInvalidCredentials = errors.New("INVALID_CREDENTIALS")
)

// createUser inserts a new unverified account and returns its id together
// with the verification token. Duplicate email/username map to distinct
// sentinel errors when Postgres reports which constraint fired.
func createUser(db *sql.DB, email string, username string, password string, startingCoins int) (int64, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	hash, err := hashPassword(password)
	if err != nil {
		return 0, "", err
	}
	token, err := generateToken()
	if err != nil {
		return 0, "", err
	}

	var userID int64
	err = db.QueryRow(`
		INSERT INTO users (email, username, password_hash, verification_token, coins)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, email, username, hash, token, startingCoins).Scan(&userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return 0, "", errDuplicateEmail
			case "users_username_key":
				return 0, "", errDuplicateUsername
			default:
				return 0, "", errDuplicateAccount
			}
		}
		return 0, "", err
	}

	return userID, token, nil
}

// verifyUserByToken consumes a verification token. Unknown tokens are a
// normal miss, not an error.
func verifyUserByToken(db *sql.DB, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	result, err := db.Exec(`
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL
		WHERE verification_token = $1
	`, token)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// verifyUserByID is the auto-verify path used when signup does not require
// an email round trip. Idempotent.
func verifyUserByID(db *sql.DB, userID int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL
		WHERE id = $1
	`, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// authenticateUser succeeds only for verified accounts with a matching
// password. Bad password and unverified account are deliberately
// indistinguishable to the caller.
func authenticateUser(db *sql.DB, email string, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var u User
	var hash string
	err := db.QueryRow(`
		SELECT id, email, username, coins, is_verified, password_hash
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Username, &u.Coins, &u.Verified, &hash)
	if err == sql.ErrNoRows {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !verifyPassword(hash, password) {
		return nil, errInvalidCredentials
	}
	if !u.Verified {
		return nil, errInvalidCredentials
	}

	return &u, nil
}

// requestPasswordReset issues a reset token for a verified account, replacing
// any outstanding one. Returns "" when the email is unknown or unverified.
func requestPasswordReset(db *sql.DB, email string, ttl time.Duration) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	result, err := db.Exec(`
		UPDATE users
		SET reset_token = $1,
			reset_token_expires = NOW() + ($2 * INTERVAL '1 second')
		WHERE email = $3 AND is_verified = TRUE
	`, token, int(ttl.Seconds()), email)
	if err != nil {
		return "", err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", nil
	}
	return token, nil
}

// resetPassword replaces the password hash if the token is live. The expiry
// check happens inside the UPDATE so there is no check-then-use window, and
// a consumed or expired token simply reports false.
func resetPassword(db *sql.DB, token string, newPassword string) (bool, error) {
	if token == "" {
		return false, nil
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return false, err
	}

	result, err := db.Exec(`
		UPDATE users
		SET password_hash = $1,
			reset_token = NULL,
			reset_token_expires = NULL
		WHERE reset_token = $2 AND reset_token_expires > NOW()
	`, hash, token)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// getUserByID re-reads the authoritative user row. Session state is never
// trusted for coins or verification.
func getUserByID(db *sql.DB, userID int64) (*User, error) {
	var u User
	err := db.QueryRow(`
		SELECT id, email, username, coins, is_verified
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.Username, &u.Coins, &u.Verified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
