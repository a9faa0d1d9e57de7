package main

import "database/sql"

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token TEXT,
			reset_token TEXT,
			reset_token_expires TIMESTAMPTZ,
			coins BIGINT NOT NULL DEFAULT 25 CHECK (coins >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS game_history (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			score BIGINT NOT NULL CHECK (score >= 0),
			play_time BIGINT NOT NULL DEFAULT 0,
			played_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_game_history_user_id
		ON game_history (user_id, played_at DESC);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS user_unlocks (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			item_type TEXT NOT NULL,
			item_id BIGINT NOT NULL,
			UNIQUE (user_id, item_type, item_id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id BIGINT REFERENCES users (id) ON DELETE CASCADE,
			is_guest BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id
		ON sessions (user_id);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS auth_rate_limits (
			ip TEXT NOT NULL,
			action TEXT NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			attempt_count INT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (ip, action)
		);
	`)
	if err != nil {
		return err
	}

	// Older deployments predate the created_at column.
	_, err = db.Exec(`
		ALTER TABLE users
		ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT NOW();
	`)
	return err
}
