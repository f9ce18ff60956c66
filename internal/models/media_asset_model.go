package models

import "time"

// MediaAsset is an uploaded object in the media bucket. StoragePath is what a
// post's media item references.
type MediaAsset struct {
	ID          string    `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	ContentType string    `db:"content_type" json:"content_type"`
	MediaType   string    `db:"media_type" json:"media_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
