package transfer

import "time"

// PostCreation is the composer payload for creating or updating a scheduled post.
type PostCreation struct {
	Platform      string          `json:"platform"`
	PostType      string          `json:"post_type"`
	AccountID     int64           `json:"account_id"`
	Caption       string          `json:"caption"`
	FirstComment  string          `json:"first_comment"`
	BoardID       string          `json:"board_id"`
	Title         string          `json:"title"`
	Link          string          `json:"link"`
	AltText       string          `json:"alt_text"`
	ReelCover     *ReelCoverInput `json:"reel_cover"`
	Media         []MediaInput    `json:"media"`
	ScheduledTime time.Time       `json:"scheduled_time"`
}

type MediaInput struct {
	StoragePath   string `json:"storage_path"`
	URL           string `json:"url"`
	MediaType     string `json:"media_type"`
	Order         int    `json:"order"`
	ThumbnailPath string `json:"thumbnail_path"`
}

type ReelCoverInput struct {
	Type        string `json:"type"`
	StoragePath string `json:"storage_path"`
	TimestampMs *int64 `json:"timestamp_ms"`
}

type PublishRequest struct {
	PostID string `json:"post_id"`
}

type MediaUploadResult struct {
	StoragePath string `json:"storage_path"`
	MediaType   string `json:"media_type"`
	URL         string `json:"url"`
}
