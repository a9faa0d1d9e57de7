package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLeaderboardOrdersBestScores(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT u.username, MAX\(gh.score\)`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"username", "best_score"}).
			AddRow("bella", int64(20)).
			AddRow("alex", int64(15)))

	entries, err := getLeaderboard(db, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bella", entries[0].Username)
	assert.Equal(t, int64(20), entries[0].BestScore)
	assert.Equal(t, "alex", entries[1].Username)
}

func TestGetLeaderboardEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT u.username, MAX\(gh.score\)`).
		WillReturnRows(sqlmock.NewRows([]string{"username", "best_score"}))

	entries, err := getLeaderboard(db, 100)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestGetUserRank(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	// Best scores 20 (user 2) and 15 (user 1): user 1 ranks second.
	mock.ExpectQuery(`ROW_NUMBER\(\)`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"rank"}).AddRow(int64(2)))

	rank, err := getUserRank(db, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)
}

func TestGetUserRankNoHistory(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`ROW_NUMBER\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"rank"}))

	rank, err := getUserRank(db, 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rank)
}
