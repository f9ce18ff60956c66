package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

// ErrStatusChanged is returned when a post left the state a transition
// expects while an attempt was running.
var ErrStatusChanged = errors.New("post status changed during publish")

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error
	Update(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (bool, error)
	GetByID(ctx context.Context, id string) (*models.ScheduledPost, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	MarkPublished(ctx context.Context, id, platformPostID, permalink string, now time.Time) error
	MarkFailed(ctx context.Context, id, message string, now time.Time) error
	ResetToScheduled(ctx context.Context, id string, now time.Time) (bool, error)
	ReclaimStale(ctx context.Context, olderThan time.Time, message string, now time.Time) ([]string, error)
	CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error)
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, platform, post_type, account_id, caption, first_comment,
	board_id, title, link, alt_text, cover_type, cover_path, cover_timestamp_ms,
	scheduled_time, status, platform_post_id, permalink, error_message,
	publishing_at, published_at, failed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.ScheduledPost, error) {
	var (
		post                                models.ScheduledPost
		coverType, coverPath                string
		coverTimestamp                      sql.NullInt64
		publishingAt, publishedAt, failedAt sql.NullTime
	)
	err := row.Scan(&post.ID, &post.UserID, &post.Platform, &post.PostType, &post.AccountID,
		&post.Caption, &post.FirstComment, &post.BoardID, &post.Title, &post.Link, &post.AltText,
		&coverType, &coverPath, &coverTimestamp,
		&post.ScheduledTime, &post.Status, &post.PlatformPostID, &post.Permalink, &post.ErrorMessage,
		&publishingAt, &publishedAt, &failedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if coverType != "" {
		post.ReelCover = &models.ReelCover{Type: coverType, StoragePath: coverPath}
		if coverTimestamp.Valid {
			ts := coverTimestamp.Int64
			post.ReelCover.TimestampMs = &ts
		}
	}
	post.PublishingAt = nullTime(publishingAt)
	post.PublishedAt = nullTime(publishedAt)
	post.FailedAt = nullTime(failedAt)
	return &post, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func coverArgs(c *models.ReelCover) (string, string, sql.NullInt64) {
	if c == nil {
		return "", "", sql.NullInt64{}
	}
	var ts sql.NullInt64
	if c.TimestampMs != nil {
		ts = sql.NullInt64{Int64: *c.TimestampMs, Valid: true}
	}
	return c.Type, c.StoragePath, ts
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error {
	query := `
		INSERT INTO posts (id, user_id, platform, post_type, account_id, caption, first_comment,
			board_id, title, link, alt_text, cover_type, cover_path, cover_timestamp_ms,
			scheduled_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	coverType, coverPath, coverTimestamp := coverArgs(post.ReelCover)
	args := []any{post.ID, post.UserID, post.Platform, post.PostType, post.AccountID,
		post.Caption, post.FirstComment, post.BoardID, post.Title, post.Link, post.AltText,
		coverType, coverPath, coverTimestamp, post.ScheduledTime, post.Status}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Update rewrites the editable content of a post that has not gone live. It
// reports false when the post is missing or not in scheduled/failed.
func (r *postRepository) Update(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (bool, error) {
	query := `
		UPDATE posts
		SET post_type = $2, account_id = $3, caption = $4, first_comment = $5,
			board_id = $6, title = $7, link = $8, alt_text = $9,
			cover_type = $10, cover_path = $11, cover_timestamp_ms = $12,
			scheduled_time = $13, updated_at = $14
		WHERE id = $1 AND status IN ('scheduled', 'failed')
	`
	coverType, coverPath, coverTimestamp := coverArgs(post.ReelCover)
	args := []any{post.ID, post.PostType, post.AccountID, post.Caption, post.FirstComment,
		post.BoardID, post.Title, post.Link, post.AltText,
		coverType, coverPath, coverTimestamp, post.ScheduledTime, time.Now()}

	var (
		res sql.Result
		err error
	)
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, args...)
	} else {
		res, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY scheduled_time DESC`
	return r.list(ctx, query, userID)
}

// ListDue returns scheduled posts whose time has come, earliest first.
func (r *postRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time ASC
		LIMIT $2`
	return r.list(ctx, query, now, limit)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// Claim moves a post from scheduled to publishing. Only one caller can win: a
// false result means the post was no longer scheduled.
func (r *postRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'publishing', publishing_at = $2, error_message = '', updated_at = $2
		WHERE id = $1 AND status = 'scheduled'
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

// MarkPublished also accepts a post the stale reclaim already failed, since
// the platform post exists either way.
func (r *postRepository) MarkPublished(ctx context.Context, id, platformPostID, permalink string, now time.Time) error {
	query := `
		UPDATE posts
		SET status = 'published', platform_post_id = $2, permalink = $3,
			error_message = '', published_at = $4, updated_at = $4
		WHERE id = $1 AND status IN ('publishing', 'failed')
	`
	res, err := r.db.ExecContext(ctx, query, id, platformPostID, permalink, now)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if ok, err := affectedOne(res); err != nil {
		return err
	} else if !ok {
		return ErrStatusChanged
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id, message string, now time.Time) error {
	query := `
		UPDATE posts
		SET status = 'failed', error_message = $2, failed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'publishing'
	`
	res, err := r.db.ExecContext(ctx, query, id, message, now)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if ok, err := affectedOne(res); err != nil {
		return err
	} else if !ok {
		slog.Warn("failed post was not in publishing state", "post_id", id)
	}
	return nil
}

func (r *postRepository) ResetToScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'scheduled', error_message = '', failed_at = NULL, publishing_at = NULL, updated_at = $2
		WHERE id = $1 AND status = 'failed'
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

// ReclaimStale fails every post that has been publishing since before
// olderThan and returns their ids.
func (r *postRepository) ReclaimStale(ctx context.Context, olderThan time.Time, message string, now time.Time) ([]string, error) {
	query := `
		UPDATE posts
		SET status = 'failed', error_message = $2, failed_at = $3, updated_at = $3
		WHERE status = 'publishing' AND publishing_at < $1
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, query, olderThan, message, now)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID string, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return n == 1, nil
}
