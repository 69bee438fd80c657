package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT    NOT NULL,
	url               TEXT    NOT NULL,
	keyword           TEXT    NOT NULL DEFAULT '',
	interval_seconds  INTEGER NOT NULL DEFAULT 300,
	enabled           INTEGER NOT NULL DEFAULT 1,
	last_checked      INTEGER NOT NULL DEFAULT 0,
	last_status       TEXT    NOT NULL DEFAULT 'unknown',
	last_response_ms  INTEGER NOT NULL DEFAULT 0,
	last_content_hash TEXT    NOT NULL DEFAULT '',
	keyword_found     INTEGER NOT NULL DEFAULT 0,
	alert_sent        INTEGER NOT NULL DEFAULT 0,
	first_run         INTEGER NOT NULL DEFAULT 1,
	created_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS site_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	site_id    INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	event_type TEXT    NOT NULL,
	message    TEXT    NOT NULL,
	old_hash   TEXT    NOT NULL DEFAULT '',
	new_hash   TEXT    NOT NULL DEFAULT '',
	timestamp  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_site_logs_site_ts ON site_logs (site_id, timestamp DESC, id DESC);
`

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// One connection: SQLite serializes writers, and an in-memory database
	// lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("sqlite database ready", zap.String("path", path))
	return db, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
