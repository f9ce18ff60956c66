package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

type PostMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, media *models.MediaRef) error
	ListByPostID(ctx context.Context, postID string) ([]models.MediaRef, error)
	RemoveByPostID(ctx context.Context, tx *sql.Tx, postID string) error
}

type postMediaRepository struct {
	db *sql.DB
}

func NewPostMediaRepository(db *sql.DB) PostMediaRepository {
	return &postMediaRepository{db: db}
}

func (r *postMediaRepository) Create(ctx context.Context, tx *sql.Tx, m *models.MediaRef) error {
	var err error

	query := `
		INSERT INTO post_media (id, post_id, storage_path, url, media_type, display_order, thumbnail_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	args := []any{m.ID, m.PostID, m.StoragePath, m.URL, m.MediaType, m.DisplayOrder, m.ThumbnailPath}
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}

	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *postMediaRepository) ListByPostID(ctx context.Context, postID string) ([]models.MediaRef, error) {
	query := `
		SELECT id, post_id, storage_path, url, media_type, display_order, thumbnail_path
		FROM post_media
		WHERE post_id = $1
		ORDER BY display_order
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []models.MediaRef
	for rows.Next() {
		var m models.MediaRef
		if err := rows.Scan(&m.ID, &m.PostID, &m.StoragePath, &m.URL, &m.MediaType, &m.DisplayOrder, &m.ThumbnailPath); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, m)
	}

	if err = rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return media, nil
}

func (r *postMediaRepository) RemoveByPostID(ctx context.Context, tx *sql.Tx, postID string) error {
	var err error

	query := `DELETE FROM post_media WHERE post_id = $1`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID)
	}

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
