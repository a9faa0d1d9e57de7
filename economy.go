package main

import (
	"database/sql"
	"errors"
	"time"
)

var errNotEnoughCoins = errors.New("NOT_ENOUGH_COINS")

type GameRecord struct {
	Score    int64
	PlayTime int64
	PlayedAt time.Time
}

// saveGameScore appends an immutable game record and credits the balance by
// exactly the score, 1 point = 1 coin. Both writes ride one transaction so a
// crash cannot leave a record without its credit. The increment happens in
// SQL, not read-then-write, so concurrent submissions never lose an update.
// Returns the new balance.
func saveGameScore(db *sql.DB, userID int64, score int64, playTime int64) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO game_history (user_id, score, play_time, played_at)
		VALUES ($1, $2, $3, NOW())
	`, userID, score, playTime); err != nil {
		return 0, err
	}

	var newCoins int64
	if err := tx.QueryRow(`
		UPDATE users
		SET coins = coins + $2
		WHERE id = $1
		RETURNING coins
	`, userID, score).Scan(&newCoins); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCoins, nil
}

// getUserCoins reads the authoritative balance. Unknown users read as 0.
func getUserCoins(db *sql.DB, userID int64) (int64, error) {
	var coins int64
	err := db.QueryRow(`
		SELECT coins
		FROM users
		WHERE id = $1
	`, userID).Scan(&coins)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return coins, nil
}

// updateUserCoins overwrites the balance. Callers validate non-negativity;
// the schema check constraint is the last line of defense.
func updateUserCoins(db *sql.DB, userID int64, coins int64) error {
	_, err := db.Exec(`
		UPDATE users
		SET coins = $2
		WHERE id = $1
	`, userID, coins)
	return err
}

// unlockCharacter grants permanent ownership of a character. Ownership is
// checked before any debit, so repeating a purchase never charges twice. The
// debit is a conditional UPDATE that only fires when the balance covers the
// cost. Returns the resulting balance and whether the item was already owned.
func unlockCharacter(db *sql.DB, userID int64, characterID int, cost int64) (int64, bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var owned bool
	if err := tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1
			FROM user_unlocks
			WHERE user_id = $1 AND item_type = 'character' AND item_id = $2
		)
	`, userID, characterID).Scan(&owned); err != nil {
		return 0, false, err
	}

	if owned {
		var coins int64
		if err := tx.QueryRow(`
			SELECT coins FROM users WHERE id = $1
		`, userID).Scan(&coins); err != nil {
			return 0, false, err
		}
		if err := tx.Commit(); err != nil {
			return 0, false, err
		}
		return coins, true, nil
	}

	var newCoins int64
	err = tx.QueryRow(`
		UPDATE users
		SET coins = coins - $2
		WHERE id = $1 AND coins >= $2
		RETURNING coins
	`, userID, cost).Scan(&newCoins)
	if err == sql.ErrNoRows {
		return 0, false, errNotEnoughCoins
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := tx.Exec(`
		INSERT INTO user_unlocks (user_id, item_type, item_id)
		VALUES ($1, 'character', $2)
		ON CONFLICT (user_id, item_type, item_id) DO NOTHING
	`, userID, characterID); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return newCoins, false, nil
}

func getUserUnlocks(db *sql.DB, userID int64) ([]int, error) {
	rows, err := db.Query(`
		SELECT item_id
		FROM user_unlocks
		WHERE user_id = $1 AND item_type = 'character'
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unlocks := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		unlocks = append(unlocks, id)
	}
	return unlocks, rows.Err()
}

func getUserHistory(db *sql.DB, userID int64, limit int) ([]GameRecord, error) {
	rows, err := db.Query(`
		SELECT score, play_time, played_at
		FROM game_history
		WHERE user_id = $1
		ORDER BY played_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []GameRecord{}
	for rows.Next() {
		var rec GameRecord
		if err := rows.Scan(&rec.Score, &rec.PlayTime, &rec.PlayedAt); err != nil {
			return nil, err
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}
