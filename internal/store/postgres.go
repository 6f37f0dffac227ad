// Package store provides storage backends for the conversation log.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/ezoncs/salonbot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a Postgres store at the configured DSN and applies
// migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddMessage(m models.MessageRecord) error {
	_, err := s.db.Exec(`INSERT INTO messages (id, session_id, direction, body, time) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.SessionID, m.Direction, m.Body, m.Time)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "sessionID", m.SessionID)
		return fmt.Errorf("failed to insert message for %s: %w", m.SessionID, err)
	}
	slog.Debug("PostgresStore AddMessage succeeded", "sessionID", m.SessionID, "direction", m.Direction)
	return nil
}

// ListMessages returns the most recent messages for a session in
// chronological order. limit <= 0 means no limit.
func (s *PostgresStore) ListMessages(sessionID string, limit int) ([]models.MessageRecord, error) {
	query := `SELECT id, session_id, direction, body, time FROM messages WHERE session_id = $1 ORDER BY time, id`
	args := []interface{}{sessionID}
	if limit > 0 {
		query = `SELECT id, session_id, direction, body, time FROM (
			SELECT id, session_id, direction, body, time FROM messages
			WHERE session_id = $1 ORDER BY time DESC, id DESC LIMIT $2
		) recent ORDER BY time, id`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.MessageRecord
	for rows.Next() {
		var m models.MessageRecord
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Direction, &m.Body, &m.Time); err != nil {
			slog.Error("PostgresStore ListMessages scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListMessages rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	slog.Debug("PostgresStore ListMessages succeeded", "sessionID", sessionID, "count", len(messages))
	return messages, nil
}

func (s *PostgresStore) SaveSubscription(sub models.Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO subscriptions (session_id, preference, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (session_id, preference) DO UPDATE SET created_at = EXCLUDED.created_at`,
		sub.SessionID, string(sub.Preference), sub.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSubscription failed", "error", err, "sessionID", sub.SessionID)
		return fmt.Errorf("failed to save subscription for %s: %w", sub.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSubscription succeeded", "sessionID", sub.SessionID, "preference", sub.Preference)
	return nil
}

func (s *PostgresStore) DeleteSubscription(sessionID string, pref models.PreferenceCode) error {
	_, err := s.db.Exec(`DELETE FROM subscriptions WHERE session_id = $1 AND preference = $2`,
		sessionID, string(pref))
	if err != nil {
		slog.Error("PostgresStore DeleteSubscription failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete subscription for %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore DeleteSubscription succeeded", "sessionID", sessionID, "preference", pref)
	return nil
}

func (s *PostgresStore) ListSubscribers(pref models.PreferenceCode) ([]models.Subscription, error) {
	rows, err := s.db.Query(`SELECT session_id, preference, created_at FROM subscriptions WHERE preference = $1 ORDER BY session_id`,
		string(pref))
	if err != nil {
		slog.Error("PostgresStore ListSubscribers query failed", "error", err)
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		var prefStr string
		if err := rows.Scan(&sub.SessionID, &prefStr, &sub.CreatedAt); err != nil {
			slog.Error("PostgresStore ListSubscribers scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		sub.Preference = models.PreferenceCode(prefStr)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSubscribers rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate subscription rows: %w", err)
	}
	slog.Debug("PostgresStore ListSubscribers succeeded", "preference", pref, "count", len(subs))
	return subs, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
