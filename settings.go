package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Settings struct {
	Env         string
	Port        string
	DatabaseURL string

	StartingCoins    int
	ResetTokenTTL    time.Duration
	SessionTTL       time.Duration
	LeaderboardLimit int
	HistoryLimit     int

	RequireEmailVerification bool

	SignupRateLimit int
	LoginRateLimit  int
	AuthRateWindow  time.Duration

	SMTPHost     string
	SMTPPort     int
	EmailAddress string
	EmailPass    string
	BaseURL      string
}

func loadSettings() Settings {
	s := Settings{
		Env:                      envOr("APP_ENV", "local"),
		Port:                     envOr("PORT", "8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		StartingCoins:            parseEnvInt("STARTING_COINS", 25),
		ResetTokenTTL:            time.Duration(parseEnvInt("RESET_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		SessionTTL:               time.Duration(parseEnvInt("SESSION_TTL_HOURS", 7*24)) * time.Hour,
		LeaderboardLimit:         parseEnvInt("LEADERBOARD_LIMIT", 100),
		HistoryLimit:             parseEnvInt("HISTORY_LIMIT", 50),
		RequireEmailVerification: parseEnvBool("REQUIRE_EMAIL_VERIFICATION", false),
		SignupRateLimit:          parseEnvInt("SIGNUP_RATE_LIMIT", 5),
		LoginRateLimit:           parseEnvInt("LOGIN_RATE_LIMIT", 12),
		AuthRateWindow:           time.Duration(parseEnvInt("AUTH_RATE_WINDOW_SECONDS", 600)) * time.Second,
		EmailAddress:             os.Getenv("EMAIL_ADDRESS"),
		EmailPass:                os.Getenv("EMAIL_PASSWORD"),
		BaseURL:                  envOr("BASE_URL", "http://localhost:8080"),
	}

	host, port := smtpForAddress(s.EmailAddress)
	s.SMTPHost = envOr("SMTP_HOST", host)
	s.SMTPPort = parseEnvInt("SMTP_PORT", port)

	return s
}

// smtpForAddress picks SMTP settings from the sender's mail provider.
// Env vars still win; this is only the default.
func smtpForAddress(address string) (string, int) {
	switch {
	case strings.HasSuffix(address, "@gmail.com"):
		return "smtp.gmail.com", 587
	case strings.HasSuffix(address, "@outlook.com"), strings.HasSuffix(address, "@hotmail.com"):
		return "smtp-mail.outlook.com", 587
	case strings.HasSuffix(address, "@yahoo.com"):
		return "smtp.mail.yahoo.com", 587
	default:
		return "smtp.gmail.com", 587
	}
}

func envOr(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func parseEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := parseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
