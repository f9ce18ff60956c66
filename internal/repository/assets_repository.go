package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, ma *models.MediaAsset) error
	GetByPath(ctx context.Context, path string) (*models.MediaAsset, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, ma *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (id, user_id, storage_path, content_type, media_type, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ma.ID, ma.UserID, ma.StoragePath, ma.ContentType, ma.MediaType, ma.FileSize,
	).Scan(&ma.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAssetRepository) GetByPath(ctx context.Context, path string) (*models.MediaAsset, error) {
	query := `
		SELECT id, user_id, storage_path, content_type, media_type, file_size, created_at
		FROM media_assets
		WHERE storage_path = $1
	`

	var ma models.MediaAsset
	err := r.db.QueryRowContext(ctx, query, path).Scan(
		&ma.ID,
		&ma.UserID,
		&ma.StoragePath,
		&ma.ContentType,
		&ma.MediaType,
		&ma.FileSize,
		&ma.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ma, nil
}

func (r *mediaAssetRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	query := `
		SELECT id, user_id, storage_path, content_type, media_type, file_size, created_at
		FROM media_assets
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var assets []*models.MediaAsset
	for rows.Next() {
		var ma models.MediaAsset
		if err := rows.Scan(
			&ma.ID,
			&ma.UserID,
			&ma.StoragePath,
			&ma.ContentType,
			&ma.MediaType,
			&ma.FileSize,
			&ma.CreatedAt,
		); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		assets = append(assets, &ma)
	}
	return assets, rows.Err()
}
