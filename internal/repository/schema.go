package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Migrate creates the tables the scheduler needs if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	slog.Info("creating database tables")

	accountsTable := `
	CREATE TABLE IF NOT EXISTS social_accounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		platform VARCHAR(32) NOT NULL,
		account_id TEXT NOT NULL,
		account_name TEXT NOT NULL DEFAULT '',
		account_username TEXT NOT NULL DEFAULT '',
		profile_picture_url TEXT NOT NULL DEFAULT '',
		default_board_id TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		token_expires_at TIMESTAMPTZ,
		account_status VARCHAR(32) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, platform, account_id)
	);
	CREATE INDEX IF NOT EXISTS idx_social_accounts_expiry ON social_accounts(token_expires_at);
	`

	postsTable := `
	CREATE TABLE IF NOT EXISTS posts (
		id VARCHAR(32) PRIMARY KEY,
		user_id BIGINT NOT NULL,
		platform VARCHAR(32) NOT NULL,
		post_type VARCHAR(32) NOT NULL DEFAULT '',
		account_id BIGINT NOT NULL REFERENCES social_accounts(id) ON DELETE CASCADE,
		caption TEXT NOT NULL DEFAULT '',
		first_comment TEXT NOT NULL DEFAULT '',
		board_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL DEFAULT '',
		alt_text TEXT NOT NULL DEFAULT '',
		cover_type VARCHAR(16) NOT NULL DEFAULT '',
		cover_path TEXT NOT NULL DEFAULT '',
		cover_timestamp_ms BIGINT,
		scheduled_time TIMESTAMPTZ NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'scheduled',
		platform_post_id TEXT NOT NULL DEFAULT '',
		permalink TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		publishing_at TIMESTAMPTZ,
		published_at TIMESTAMPTZ,
		failed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_posts_due ON posts(status, scheduled_time);
	CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id, scheduled_time DESC);
	`

	mediaTable := `
	CREATE TABLE IF NOT EXISTS post_media (
		id VARCHAR(32) PRIMARY KEY,
		post_id VARCHAR(32) NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		storage_path TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		media_type VARCHAR(16) NOT NULL,
		display_order INT NOT NULL,
		thumbnail_path TEXT NOT NULL DEFAULT '',
		UNIQUE (post_id, display_order)
	);
	`

	assetsTable := `
	CREATE TABLE IF NOT EXISTS media_assets (
		id VARCHAR(32) PRIMARY KEY,
		user_id BIGINT NOT NULL,
		storage_path TEXT NOT NULL UNIQUE,
		content_type VARCHAR(64) NOT NULL,
		media_type VARCHAR(16) NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_media_assets_user ON media_assets(user_id);
	`

	historyTable := `
	CREATE TABLE IF NOT EXISTS posting_history (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		post_id VARCHAR(32) NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		account_id BIGINT NOT NULL,
		outcome VARCHAR(32) NOT NULL,
		platform_post_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_posting_history_post ON posting_history(post_id);
	`

	tables := []struct {
		name  string
		query string
	}{
		{"social_accounts", accountsTable},
		{"posts", postsTable},
		{"post_media", mediaTable},
		{"media_assets", assetsTable},
		{"posting_history", historyTable},
	}

	for _, t := range tables {
		if _, err := db.ExecContext(ctx, t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}

	slog.Info("database tables ready")
	return nil
}
