package main

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGameScoreCreditsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO game_history`).
		WithArgs(int64(3), int64(12), int64(45)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(3), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow(int64(37)))
	mock.ExpectCommit()

	coins, err := saveGameScore(db, 3, 12, 45)
	require.NoError(t, err)
	assert.Equal(t, int64(37), coins)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveGameScoreRollsBackWhenCreditFails(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO game_history`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}))
	mock.ExpectRollback()

	_, err := saveGameScore(db, 3, 12, 45)
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserCoinsUnknownUserReadsZero(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT coins`).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}))

	coins, err := getUserCoins(db, 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), coins)
}

func TestUnlockCharacterAlreadyOwnedSkipsDebit(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(int64(3), 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT coins FROM users`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow(int64(120)))
	mock.ExpectCommit()

	coins, owned, err := unlockCharacter(db, 3, 2, 50)
	require.NoError(t, err)
	assert.True(t, owned)
	assert.Equal(t, int64(120), coins)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockCharacterDebitsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(int64(3), int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}).AddRow(int64(70)))
	mock.ExpectExec(`INSERT INTO user_unlocks`).
		WithArgs(int64(3), 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	coins, owned, err := unlockCharacter(db, 3, 2, 50)
	require.NoError(t, err)
	assert.False(t, owned)
	assert.Equal(t, int64(70), coins)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockCharacterInsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	// Conditional debit matches no row when the balance does not cover it.
	mock.ExpectQuery(`UPDATE users`).
		WillReturnRows(sqlmock.NewRows([]string{"coins"}))
	mock.ExpectRollback()

	_, _, err := unlockCharacter(db, 3, 2, 9999)
	assert.ErrorIs(t, err, errNotEnoughCoins)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserHistory(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT score, play_time, played_at`).
		WithArgs(int64(3), 50).
		WillReturnRows(sqlmock.NewRows([]string{"score", "play_time", "played_at"}).
			AddRow(int64(20), int64(80), now).
			AddRow(int64(5), int64(30), now.Add(-time.Hour)))

	history, err := getUserHistory(db, 3, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(20), history[0].Score)
	assert.Equal(t, int64(5), history[1].Score)
}

func TestGetUserUnlocks(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT item_id`).
		WillReturnRows(sqlmock.NewRows([]string{"item_id"}).
			AddRow(1).
			AddRow(3))

	unlocks, err := getUserUnlocks(db, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, unlocks)
}
