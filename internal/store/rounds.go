package store

import (
	"fmt"
	"time"

	"tankarena/internal/arena"
)

// RoundRow is a persisted round outcome
type RoundRow struct {
	ID            int64
	Room          string
	Round         int
	Won           bool
	LocalScore    int
	OpponentScore int
	Opponent      string
	CreatedAt     time.Time
}

// RecordRound stores a finished round
func (db *DB) RecordRound(r arena.RoundResult) error {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	won := 0
	if r.Won {
		won = 1
	}
	_, err := db.conn.Exec(`
		INSERT INTO rounds (room, round, won, local_score, opponent_score, opponent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Room, r.Round, won, r.LocalScore, r.OpponentScore, r.Opponent, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record round: %w", err)
	}
	return nil
}

// RecentRounds returns the newest rounds first
func (db *DB) RecentRounds(limit int) ([]RoundRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, room, round, won, local_score, opponent_score, opponent, created_at
		FROM rounds ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRow
	for rows.Next() {
		var r RoundRow
		var won int
		var created string
		if err := rows.Scan(&r.ID, &r.Room, &r.Round, &won, &r.LocalScore, &r.OpponentScore, &r.Opponent, &created); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.Won = won != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Record returns wins and losses over all stored rounds
func (db *DB) Record() (wins, losses int, err error) {
	err = db.conn.QueryRow(`
		SELECT COALESCE(SUM(won), 0), COALESCE(SUM(1 - won), 0) FROM rounds
	`).Scan(&wins, &losses)
	if err != nil {
		return 0, 0, fmt.Errorf("record: %w", err)
	}
	return wins, losses, nil
}
