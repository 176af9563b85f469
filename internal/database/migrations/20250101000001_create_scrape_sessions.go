package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateScrapeSessions, downCreateScrapeSessions)
}

func upCreateScrapeSessions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS scrape_sessions (
		session_id       VARCHAR(32) PRIMARY KEY,
		created_at       TIMESTAMP WITH TIME ZONE NOT NULL,
		profiles_scraped JSONB NOT NULL DEFAULT '[]',
		total_posts      INTEGER NOT NULL DEFAULT 0,
		archived_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	`)
	return err
}

func downCreateScrapeSessions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS scrape_sessions;`)
	return err
}
