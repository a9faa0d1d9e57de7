package main

import "database/sql"

type LeaderboardEntry struct {
	Username  string `json:"username"`
	BestScore int64  `json:"best_score"`
}

// getLeaderboard returns each user's best score, highest first. Users with no
// recorded game are absent. The user-id tiebreak keeps ordering deterministic
// for equal scores.
func getLeaderboard(db *sql.DB, limit int) ([]LeaderboardEntry, error) {
	rows, err := db.Query(`
		SELECT u.username, MAX(gh.score) AS best_score
		FROM users u
		JOIN game_history gh ON gh.user_id = u.id
		GROUP BY u.id, u.username
		ORDER BY best_score DESC, u.id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []LeaderboardEntry{}
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.Username, &entry.BestScore); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// getUserRank returns the 1-based row-number rank of the user's best score,
// or 0 when the user has no game history. Row-number ranking: tied scores get
// distinct ranks, lower user id first.
func getUserRank(db *sql.DB, userID int64) (int64, error) {
	var rank int64
	err := db.QueryRow(`
		WITH user_scores AS (
			SELECT u.id, MAX(gh.score) AS best_score
			FROM users u
			JOIN game_history gh ON gh.user_id = u.id
			GROUP BY u.id
		),
		ranked_scores AS (
			SELECT id, ROW_NUMBER() OVER (ORDER BY best_score DESC, id ASC) AS rank
			FROM user_scores
		)
		SELECT rank FROM ranked_scores WHERE id = $1
	`, userID).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rank, nil
}
