package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

type ObjectUploader interface {
	UploadToR2(ctx context.Context, key string, file []byte, filetype string) error
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, file []byte) (*transfer.MediaUploadResult, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
}

type mediaService struct {
	storage ObjectUploader
	assets  repository.MediaAssetRepository
	cdnBase string
}

func NewMediaService(storage ObjectUploader, assets repository.MediaAssetRepository, cdnBase string) MediaService {
	return &mediaService{storage: storage, assets: assets, cdnBase: cdnBase}
}

var allowedMediaTypes = map[string]string{
	"jpg": models.MediaTypeImage,
	"png": models.MediaTypeImage,
	"mp4": models.MediaTypeVideo,
	"mov": models.MediaTypeVideo,
}

// Upload sniffs the file, stores it under a fresh key and records the asset.
func (s *mediaService) Upload(ctx context.Context, userID int64, file []byte) (*transfer.MediaUploadResult, error) {
	if len(file) == 0 {
		return nil, invalid("file is empty")
	}

	kind, err := filetype.Match(file)
	if err != nil || kind == types.Unknown {
		return nil, invalid("unsupported file type")
	}
	mediaType, ok := allowedMediaTypes[kind.Extension]
	if !ok {
		return nil, invalid(fmt.Sprintf("file type %s is not allowed", kind.Extension))
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating media id: %w", err)
	}
	key := fmt.Sprintf("media/%d/%s.%s", userID, id, kind.Extension)

	if err := s.storage.UploadToR2(ctx, key, file, kind.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset := &models.MediaAsset{
		ID:          id,
		UserID:      userID,
		StoragePath: key,
		ContentType: kind.MIME.Value,
		MediaType:   mediaType,
		FileSize:    int64(len(file)),
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}
	slog.Info("media uploaded", "user_id", userID, "path", key, "content_type", kind.MIME.Value)

	result := &transfer.MediaUploadResult{StoragePath: key, MediaType: mediaType}
	if s.cdnBase != "" {
		result.URL = CDNURL(s.cdnBase, key)
	}
	return result, nil
}

func (s *mediaService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	assets, err := s.assets.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing media: %w", err)
	}
	return assets, nil
}
