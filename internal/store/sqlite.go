// Package store provides storage backends for the conversation log.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/ezoncs/salonbot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens an SQLite store at the DSN file path, creating the
// parent directory when needed, and applies migrations.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddMessage(m models.MessageRecord) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, session_id, direction, body, time) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.Direction, m.Body, m.Time)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "sessionID", m.SessionID)
		return fmt.Errorf("failed to insert message for %s: %w", m.SessionID, err)
	}
	slog.Debug("SQLiteStore AddMessage succeeded", "sessionID", m.SessionID, "direction", m.Direction)
	return nil
}

// ListMessages returns the most recent messages for a session in
// chronological order. limit <= 0 means no limit.
func (s *SQLiteStore) ListMessages(sessionID string, limit int) ([]models.MessageRecord, error) {
	query := `SELECT id, session_id, direction, body, time FROM messages WHERE session_id = ? ORDER BY time, id`
	args := []interface{}{sessionID}
	if limit > 0 {
		query = `SELECT id, session_id, direction, body, time FROM (
			SELECT id, session_id, direction, body, time FROM messages
			WHERE session_id = ? ORDER BY time DESC, id DESC LIMIT ?
		) ORDER BY time, id`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.MessageRecord
	for rows.Next() {
		var m models.MessageRecord
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Direction, &m.Body, &m.Time); err != nil {
			slog.Error("SQLiteStore ListMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("SQLiteStore ListMessages succeeded", "sessionID", sessionID, "count", len(messages))
	return messages, nil
}

func (s *SQLiteStore) SaveSubscription(sub models.Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO subscriptions (session_id, preference, created_at) VALUES (?, ?, ?)`,
		sub.SessionID, string(sub.Preference), sub.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSubscription failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to save subscription for %s: %w", sub.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveSubscription succeeded", "sessionID", sub.SessionID, "preference", sub.Preference)
	return nil
}

func (s *SQLiteStore) DeleteSubscription(sessionID string, pref models.PreferenceCode) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE session_id = ? AND preference = ?`,
		sessionID, string(pref))
	if err != nil {
		slog.Error("SQLiteStore DeleteSubscription failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete subscription for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore DeleteSubscription succeeded", "sessionID", sessionID, "preference", pref)
	return nil
}

func (s *SQLiteStore) ListSubscribers(pref models.PreferenceCode) ([]models.Subscription, error) {
	rows, err := s.db.Query(`SELECT session_id, preference, created_at FROM subscriptions WHERE preference = ? ORDER BY session_id`,
		string(pref))
	if err != nil {
		slog.Error("SQLiteStore ListSubscribers query failed", "error", err)
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		var prefStr string
		if err := rows.Scan(&sub.SessionID, &prefStr, &sub.CreatedAt); err != nil {
			slog.Error("SQLiteStore ListSubscribers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		sub.Preference = models.PreferenceCode(prefStr)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore ListSubscribers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate subscription rows: %w", err)
	}
	slog.Debug("SQLiteStore ListSubscribers succeeded", "preference", pref, "count", len(subs))
	return subs, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
