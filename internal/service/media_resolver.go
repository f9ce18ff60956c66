package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

type URLSigner interface {
	PresignBatch(ctx context.Context, paths []string, ttl time.Duration) (map[string]string, error)
}

type ResolvedMedia struct {
	models.MediaRef
	FetchURL     string
	ThumbnailURL string
}

// ResolvedPost carries fetchable URLs for one publish attempt. CoverURL is
// empty when the post has no custom reel cover or it could not be resolved.
type ResolvedPost struct {
	Media    []ResolvedMedia
	CoverURL string
}

// MediaResolver turns storage paths into URLs right before a publish. With a
// CDN base configured it derives public URLs and never signs; otherwise every
// path the post references is signed in one batch.
type MediaResolver struct {
	signer  URLSigner
	cdnBase string
	ttl     time.Duration
}

func NewMediaResolver(signer URLSigner, cdnBase string, ttl time.Duration) *MediaResolver {
	return &MediaResolver{signer: signer, cdnBase: cdnBase, ttl: ttl}
}

func CDNURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func (r *MediaResolver) Resolve(ctx context.Context, media []models.MediaRef, cover *models.ReelCover) (*ResolvedPost, error) {
	var paths []string
	for _, m := range media {
		if m.StoragePath == "" && m.URL == "" {
			return nil, invalid(fmt.Sprintf("media item %d has neither a storage path nor a url", m.DisplayOrder))
		}
		if m.StoragePath != "" {
			paths = append(paths, m.StoragePath)
		}
		if m.ThumbnailPath != "" {
			paths = append(paths, m.ThumbnailPath)
		}
	}
	coverPath := ""
	if cover != nil && cover.Type == models.ReelCoverCustom && cover.StoragePath != "" {
		coverPath = cover.StoragePath
		paths = append(paths, coverPath)
	}

	urls, err := r.urlsFor(ctx, paths)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedPost{Media: make([]ResolvedMedia, 0, len(media))}
	for _, m := range media {
		item := ResolvedMedia{MediaRef: m, FetchURL: m.URL}
		if m.StoragePath != "" {
			item.FetchURL = urls[m.StoragePath]
		}
		if m.ThumbnailPath != "" {
			item.ThumbnailURL = urls[m.ThumbnailPath]
		}
		if item.FetchURL == "" {
			return nil, fmt.Errorf("no url resolved for %s", m.StoragePath)
		}
		resolved.Media = append(resolved.Media, item)
	}

	if coverPath != "" {
		resolved.CoverURL = urls[coverPath]
		if resolved.CoverURL == "" {
			slog.Warn("reel cover could not be resolved, publishing without it", "path", coverPath)
		}
	}
	return resolved, nil
}

func (r *MediaResolver) urlsFor(ctx context.Context, paths []string) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	if len(paths) == 0 {
		return urls, nil
	}
	if r.cdnBase != "" {
		for _, p := range paths {
			urls[p] = CDNURL(r.cdnBase, p)
		}
		return urls, nil
	}

	signed, err := r.signer.PresignBatch(ctx, paths, r.ttl)
	if err != nil {
		return nil, fmt.Errorf("signing media urls: %w", err)
	}
	return signed, nil
}
