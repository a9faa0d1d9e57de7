package main

import (
	"database/sql"
	"strings"
	"time"
)

// allowAuthAttempt enforces a fixed per-IP window on an auth action. The
// whole read-modify-write rides one upsert, so concurrent attempts from the
// same address count correctly without an explicit lock: an elapsed window
// restarts the counter, otherwise the attempt increments it. Returns whether
// the attempt is allowed and, if not, seconds until the window resets.
func allowAuthAttempt(db *sql.DB, ip string, action string, limit int, window time.Duration) (bool, int, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" || limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	now := time.Now().UTC()
	cutoff := now.Add(-window)

	var attempts int
	var windowStart time.Time
	err := db.QueryRow(`
		INSERT INTO auth_rate_limits (ip, action, window_start, attempt_count, updated_at)
		VALUES ($1, $2, $3, 1, $3)
		ON CONFLICT (ip, action) DO UPDATE
		SET attempt_count = CASE
				WHEN auth_rate_limits.window_start <= $4 THEN 1
				ELSE auth_rate_limits.attempt_count + 1
			END,
			window_start = CASE
				WHEN auth_rate_limits.window_start <= $4 THEN $3
				ELSE auth_rate_limits.window_start
			END,
			updated_at = $3
		RETURNING attempt_count, window_start
	`, ip, action, now, cutoff).Scan(&attempts, &windowStart)
	if err != nil {
		return false, 0, err
	}

	if attempts > limit {
		retryAfter := int(window.Seconds() - now.Sub(windowStart).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}
