package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddEngagementCounts, downAddEngagementCounts)
}

func upAddEngagementCounts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	ALTER TABLE posts
		ADD COLUMN IF NOT EXISTS reaction_count INTEGER NOT NULL DEFAULT 0,
		ADD COLUMN IF NOT EXISTS comment_count INTEGER NOT NULL DEFAULT 0;
	CREATE INDEX IF NOT EXISTS idx_posts_reaction_count ON posts (reaction_count DESC);
	`)
	return err
}

func downAddEngagementCounts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	DROP INDEX IF EXISTS idx_posts_reaction_count;
	ALTER TABLE posts DROP COLUMN IF EXISTS reaction_count, DROP COLUMN IF EXISTS comment_count;
	`)
	return err
}
