// Package store persists peer settings, round history and relay analytics
// in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Setting keys
const (
	KeyNickname  = "nickname"
	KeyJWTSecret = "jwt_secret"
)

const defaultNickname = "Player"

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room TEXT NOT NULL DEFAULT '',
		round INTEGER NOT NULL,
		won INTEGER NOT NULL,
		local_score INTEGER NOT NULL,
		opponent_score INTEGER NOT NULL,
		opponent TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room_id TEXT,
		actor INTEGER,
		data TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_rounds_created ON rounds(created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		log.WithError(err).Error("db migration")
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns a stored value, or "" when unset
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

// SetSetting stores a value, replacing any previous one
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Nickname returns the saved player name, "Player" when none was saved
func (db *DB) Nickname() (string, error) {
	v, err := db.GetSetting(KeyNickname)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return defaultNickname, nil
	}
	return v, nil
}

// SetNickname saves the player name
func (db *DB) SetNickname(name string) error {
	return db.SetSetting(KeyNickname, strings.TrimSpace(name))
}
