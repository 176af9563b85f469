package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreatePosts, downCreatePosts)
}

func upCreatePosts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS posts (
		id                SERIAL PRIMARY KEY,
		session_id        VARCHAR(32) NOT NULL REFERENCES scrape_sessions(session_id) ON DELETE CASCADE,
		post_number       INTEGER NOT NULL,
		profile_url       TEXT NOT NULL,
		author_name       TEXT,
		author_avatar     TEXT,
		content           TEXT NOT NULL DEFAULT '',
		timestamp         TEXT NOT NULL DEFAULT '',
		post_type         VARCHAR(16) NOT NULL,
		post_url          TEXT,
		permalink_source  VARCHAR(16) NOT NULL DEFAULT '',
		engagement        JSONB NOT NULL DEFAULT '{}',
		media_urls        JSONB NOT NULL DEFAULT '[]',
		local_media_paths JSONB NOT NULL DEFAULT '[]',
		created_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (session_id, profile_url, post_number)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_profile_url ON posts (profile_url);
	CREATE INDEX IF NOT EXISTS idx_posts_post_type ON posts (post_type);
	`)
	return err
}

func downCreatePosts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS posts;`)
	return err
}
