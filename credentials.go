package main

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

// hashPassword produces a bcrypt digest. Earlier deployments stored bare
// SHA-256 hex; verifyPassword still accepts those so existing accounts keep
// working, but every new or reset password is written as bcrypt.
func hashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func verifyPassword(stored string, password string) bool {
	if isLegacyDigest(stored) {
		sum := sha256.Sum256([]byte(password))
		computed := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// isLegacyDigest recognizes the unsalted SHA-256 hex format: 64 hex chars.
func isLegacyDigest(stored string) bool {
	if len(stored) != 64 {
		return false
	}
	_, err := hex.DecodeString(stored)
	return err == nil
}

// generateToken returns a URL-safe random string used for verification and
// password-reset tokens.
func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
