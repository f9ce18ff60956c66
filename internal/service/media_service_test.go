package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

type memUploader struct {
	objects map[string]string
}

func (u *memUploader) UploadToR2(ctx context.Context, key string, file []byte, filetype string) error {
	u.objects[key] = filetype
	return nil
}

type memAssets struct {
	assets []*models.MediaAsset
}

func (m *memAssets) Create(ctx context.Context, ma *models.MediaAsset) error {
	m.assets = append(m.assets, ma)
	return nil
}

func (m *memAssets) GetByPath(ctx context.Context, path string) (*models.MediaAsset, error) {
	for _, a := range m.assets {
		if a.StoragePath == path {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memAssets) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	var out []*models.MediaAsset
	for _, a := range m.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

var (
	pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}
	mp4Header = []byte{0, 0, 0, 0x10, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0}
)

func TestMediaServiceUpload(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	t.Run("image", func(t *testing.T) {
		uploader := &memUploader{objects: map[string]string{}}
		assets := &memAssets{}
		svc := NewMediaService(uploader, assets, "https://cdn.example")

		got, err := svc.Upload(ctx, testUserID, pngHeader)
		require.NoError(t, err)

		assert.Equal(models.MediaTypeImage, got.MediaType)
		assert.True(strings.HasPrefix(got.StoragePath, "media/7/"))
		assert.True(strings.HasSuffix(got.StoragePath, ".png"))
		assert.Equal("image/png", uploader.objects[got.StoragePath])
		assert.Equal("https://cdn.example/"+got.StoragePath, got.URL)

		listed, err := svc.List(ctx, testUserID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(int64(len(pngHeader)), listed[0].FileSize)
	})

	t.Run("video without cdn", func(t *testing.T) {
		svc := NewMediaService(&memUploader{objects: map[string]string{}}, &memAssets{}, "")

		got, err := svc.Upload(ctx, testUserID, mp4Header)
		require.NoError(t, err)
		assert.Equal(models.MediaTypeVideo, got.MediaType)
		assert.Empty(got.URL)
	})

	t.Run("unknown bytes", func(t *testing.T) {
		svc := NewMediaService(&memUploader{objects: map[string]string{}}, &memAssets{}, "")
		_, err := svc.Upload(ctx, testUserID, []byte("plain text"))
		assert.Equal("unsupported file type", validationMessage(t, err))
	})

	t.Run("empty", func(t *testing.T) {
		svc := NewMediaService(&memUploader{objects: map[string]string{}}, &memAssets{}, "")
		_, err := svc.Upload(ctx, testUserID, nil)
		assert.Equal("file is empty", validationMessage(t, err))
	})
}
