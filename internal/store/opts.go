package store

import "strings"

// Opts holds configuration for constructing a store backend.
type Opts struct {
	// DSN is the database connection string. Postgres URLs and key=value
	// strings select the Postgres backend; anything else is treated as an
	// SQLite file path.
	DSN string
}

// Option defines a functional option for store construction.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns the database driver name for a DSN, "postgres" or
// "sqlite3".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	// key=value connection strings (host=... user=...) are Postgres too.
	if strings.Contains(dsn, "=") && !strings.HasSuffix(dsn, ".db") && !strings.HasSuffix(dsn, ".sqlite") {
		return "postgres"
	}
	return "sqlite3"
}
