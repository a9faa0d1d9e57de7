package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmtpForAddress(t *testing.T) {
	host, port := smtpForAddress("game@gmail.com")
	assert.Equal(t, "smtp.gmail.com", host)
	assert.Equal(t, 587, port)

	host, _ = smtpForAddress("game@outlook.com")
	assert.Equal(t, "smtp-mail.outlook.com", host)

	host, _ = smtpForAddress("game@hotmail.com")
	assert.Equal(t, "smtp-mail.outlook.com", host)

	host, _ = smtpForAddress("game@yahoo.com")
	assert.Equal(t, "smtp.mail.yahoo.com", host)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "1", "YES", " on "} {
		v, err := parseBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "0", "no", "OFF"} {
		v, err := parseBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := parseBool("maybe")
	assert.Error(t, err)
}

func TestLoadSettingsDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STARTING_COINS", "LEADERBOARD_LIMIT",
		"HISTORY_LIMIT", "REQUIRE_EMAIL_VERIFICATION",
	} {
		t.Setenv(key, "")
	}

	s := loadSettings()
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, 25, s.StartingCoins)
	assert.Equal(t, 100, s.LeaderboardLimit)
	assert.Equal(t, 50, s.HistoryLimit)
	assert.False(t, s.RequireEmailVerification)
}
