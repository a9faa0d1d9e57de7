package main

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowAuthAttemptFirstAttempt(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO auth_rate_limits`).
		WillReturnRows(sqlmock.NewRows([]string{"attempt_count", "window_start"}).
			AddRow(1, time.Now().UTC()))

	allowed, retryAfter, err := allowAuthAttempt(db, "203.0.113.7", "login", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowAuthAttemptBelowLimit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO auth_rate_limits`).
		WillReturnRows(sqlmock.NewRows([]string{"attempt_count", "window_start"}).
			AddRow(5, time.Now().UTC().Add(-time.Minute)))

	allowed, _, err := allowAuthAttempt(db, "203.0.113.7", "login", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowAuthAttemptDeniesOverLimit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO auth_rate_limits`).
		WillReturnRows(sqlmock.NewRows([]string{"attempt_count", "window_start"}).
			AddRow(6, time.Now().UTC().Add(-time.Minute)))

	allowed, retryAfter, err := allowAuthAttempt(db, "203.0.113.7", "login", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 600)
}

func TestAllowAuthAttemptSkipsBlankIP(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	allowed, _, err := allowAuthAttempt(db, "  ", "login", 5, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowAuthAttemptDisabledByZeroLimit(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	allowed, _, err := allowAuthAttempt(db, "203.0.113.7", "login", 0, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
