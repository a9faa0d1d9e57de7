package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"player@example.com",
		"first.last@mail.co.uk",
		"user+tag@gmail.com",
	}
	for _, email := range valid {
		assert.True(t, isValidEmail(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@localhost",
		"user @example.com",
	}
	for _, email := range invalid {
		assert.False(t, isValidEmail(email), email)
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "203.0.113.7", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	assert.Equal(t, "198.51.100.9", getClientIP(r))
}
