package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT        NOT NULL,
	url               TEXT        NOT NULL,
	keyword           TEXT        NOT NULL DEFAULT '',
	interval_seconds  INTEGER     NOT NULL DEFAULT 300,
	enabled           BOOLEAN     NOT NULL DEFAULT TRUE,
	last_checked      TIMESTAMPTZ,
	last_status       TEXT        NOT NULL DEFAULT 'unknown',
	last_response_ms  BIGINT      NOT NULL DEFAULT 0,
	last_content_hash TEXT        NOT NULL DEFAULT '',
	keyword_found     BOOLEAN     NOT NULL DEFAULT FALSE,
	alert_sent        BOOLEAN     NOT NULL DEFAULT FALSE,
	first_run         BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS site_logs (
	id         BIGSERIAL PRIMARY KEY,
	site_id    BIGINT      NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
	event_type TEXT        NOT NULL,
	message    TEXT        NOT NULL,
	old_hash   TEXT        NOT NULL DEFAULT '',
	new_hash   TEXT        NOT NULL DEFAULT '',
	timestamp  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_site_logs_site_ts ON site_logs (site_id, timestamp DESC, id DESC);
`

// Connect opens a connection pool and ensures the schema exists.
func Connect(ctx context.Context, connStr string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("postgres database ready")
	return pool, nil
}
