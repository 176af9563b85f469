package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"linkedin-scraper/internal/database/models"
	"linkedin-scraper/internal/utils"
	"linkedin-scraper/pkg/types"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var postColumns = []string{
	"session_id", "post_number", "profile_url", "author_name", "author_avatar",
	"content", "timestamp", "post_type", "post_url", "permalink_source",
	"engagement", "media_urls", "local_media_paths", "reaction_count", "comment_count",
}

// SaveSession upserts a session and its posts in one transaction.
func (db *DB) SaveSession(ctx context.Context, session *types.ScrapeSession) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sessionUpsert(session).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build session query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.SessionID, err)
	}

	if len(session.Posts) > 0 {
		query, args, err = postsUpsert(session.SessionID, session.Posts).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build posts query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to save posts for session %s: %w", session.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", session.SessionID, err)
	}

	db.logger.Infof("Archived session %s with %d posts", session.SessionID, len(session.Posts))
	return nil
}

func sessionUpsert(session *types.ScrapeSession) squirrel.InsertBuilder {
	createdAt, ok := utils.ParseTimestamp(session.Timestamp)
	if !ok {
		createdAt = time.Now()
	}

	return psql.Insert("scrape_sessions").
		Columns("session_id", "created_at", "profiles_scraped", "total_posts").
		Values(session.SessionID, createdAt, models.StringArray(session.ProfilesScraped), session.TotalPosts).
		Suffix(`ON CONFLICT (session_id) DO UPDATE SET
			profiles_scraped = EXCLUDED.profiles_scraped,
			total_posts = EXCLUDED.total_posts,
			archived_at = NOW()`)
}

func postsUpsert(sessionID string, posts []types.Post) squirrel.InsertBuilder {
	insert := psql.Insert("posts").Columns(postColumns...)
	for _, post := range posts {
		insert = insert.Values(
			sessionID,
			post.PostNumber,
			post.ProfileURL,
			post.AuthorName,
			post.AuthorAvatar,
			post.Content,
			post.Timestamp,
			string(post.PostType),
			post.PostURL,
			string(post.PermalinkSource),
			models.StringMap(post.Engagement),
			models.StringArray(post.MediaURLs),
			models.StringArray(post.LocalMediaPaths),
			utils.ParseCount(post.Engagement["reactions"]),
			utils.ParseCount(post.Engagement["comments"]),
		)
	}

	return insert.Suffix(`ON CONFLICT (session_id, profile_url, post_number) DO UPDATE SET
		content = EXCLUDED.content,
		engagement = EXCLUDED.engagement,
		reaction_count = EXCLUDED.reaction_count,
		comment_count = EXCLUDED.comment_count,
		media_urls = EXCLUDED.media_urls,
		local_media_paths = EXCLUDED.local_media_paths,
		post_url = EXCLUDED.post_url`)
}

func postsBySession(sessionID string, limit int) squirrel.SelectBuilder {
	query := psql.Select(append([]string{"id"}, append(postColumns, "created_at")...)...).
		From("posts").
		Where(squirrel.Eq{"session_id": sessionID}).
		OrderBy("post_number ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return query
}

func (db *DB) GetPostsBySession(ctx context.Context, sessionID string, limit int) ([]*models.Post, error) {
	query, args, err := postsBySession(sessionID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build posts query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post := &models.Post{}
		err := rows.Scan(
			&post.ID, &post.SessionID, &post.PostNumber, &post.ProfileURL,
			&post.AuthorName, &post.AuthorAvatar, &post.Content, &post.Timestamp,
			&post.PostType, &post.PostURL, &post.PermalinkSource, &post.Engagement,
			&post.MediaURLs, &post.LocalMediaPaths, &post.ReactionCount, &post.CommentCount,
			&post.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// GetArchiveStats summarizes the archive for the monitor.
func (db *DB) GetArchiveStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var sessions, posts int
	if err := db.queryRow(ctx, psql.Select("COUNT(*)").From("scrape_sessions"), &sessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	stats["total_sessions"] = sessions

	if err := db.queryRow(ctx, psql.Select("COUNT(*)").From("posts"), &posts); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	stats["total_posts"] = posts

	var profiles int
	if err := db.queryRow(ctx, psql.Select("COUNT(DISTINCT profile_url)").From("posts"), &profiles); err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	stats["profiles_scraped"] = profiles

	var avgReactions float64
	if err := db.queryRow(ctx, psql.Select("COALESCE(AVG(reaction_count), 0)").From("posts"), &avgReactions); err != nil {
		return nil, fmt.Errorf("failed to get average reactions: %w", err)
	}
	stats["average_reactions"] = avgReactions

	var lastArchived sql.NullString
	if err := db.queryRow(ctx, psql.Select("MAX(archived_at)::text").From("scrape_sessions"), &lastArchived); err != nil {
		return nil, fmt.Errorf("failed to get last archive time: %w", err)
	}
	if lastArchived.Valid {
		stats["last_archived_at"] = lastArchived.String
	} else {
		stats["last_archived_at"] = "Never"
	}

	query, args, err := psql.Select("post_type", "COUNT(*)").From("posts").GroupBy("post_type").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts by type: %w", err)
	}
	defer rows.Close()

	postsByType := make(map[string]int)
	for rows.Next() {
		var postType string
		var count int
		if err := rows.Scan(&postType, &count); err != nil {
			continue
		}
		postsByType[postType] = count
	}
	stats["posts_by_type"] = postsByType

	return stats, rows.Err()
}

func (db *DB) queryRow(ctx context.Context, builder squirrel.SelectBuilder, dest interface{}) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return err
	}
	return db.conn.QueryRowContext(ctx, query, args...).Scan(dest)
}
