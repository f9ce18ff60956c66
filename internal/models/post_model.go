package models

import "time"

const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformPinterest = "pinterest"
)

const (
	PostTypeFeed     = "feed"
	PostTypeStory    = "story"
	PostTypeReel     = "reel"
	PostTypeCarousel = "carousel"
	PostTypePin      = "pin"
	PostTypeVideoPin = "video_pin"

	// Facebook sub-types. An empty or feed type on Facebook is inferred from the media.
	PostTypePhoto = "photo"
	PostTypeVideo = "video"
	PostTypeLink  = "link"
	PostTypeAlbum = "album"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

const (
	ReelCoverFrame  = "frame"
	ReelCoverCustom = "custom"
)

const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

type ScheduledPost struct {
	ID        string `db:"id" json:"id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Platform  string `db:"platform" json:"platform"`
	PostType  string `db:"post_type" json:"post_type"`
	AccountID int64  `db:"account_id" json:"account_id"`

	Caption      string `db:"caption" json:"caption"`
	FirstComment string `db:"first_comment" json:"first_comment,omitempty"`

	// Pinterest pin fields. Link doubles as the Facebook link-post target.
	BoardID string `db:"board_id" json:"board_id,omitempty"`
	Title   string `db:"title" json:"title,omitempty"`
	Link    string `db:"link" json:"link,omitempty"`
	AltText string `db:"alt_text" json:"alt_text,omitempty"`

	ReelCover *ReelCover `json:"reel_cover,omitempty"`
	Media     []MediaRef `json:"media"`

	ScheduledTime time.Time `db:"scheduled_time" json:"scheduled_time"`
	Status        string    `db:"status" json:"status"`

	PlatformPostID string `db:"platform_post_id" json:"platform_post_id,omitempty"`
	Permalink      string `db:"permalink" json:"permalink,omitempty"`
	ErrorMessage   string `db:"error_message" json:"error_message,omitempty"`

	PublishingAt *time.Time `db:"publishing_at" json:"publishing_at,omitempty"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at,omitempty"`
	FailedAt     *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type ReelCover struct {
	Type        string `db:"cover_type" json:"type"`
	StoragePath string `db:"cover_path" json:"storage_path,omitempty"`
	TimestampMs *int64 `db:"cover_timestamp_ms" json:"timestamp_ms,omitempty"`
}

type MediaRef struct {
	ID            string `db:"id" json:"id"`
	PostID        string `db:"post_id" json:"-"`
	StoragePath   string `db:"storage_path" json:"storage_path,omitempty"`
	URL           string `db:"url" json:"url,omitempty"`
	MediaType     string `db:"media_type" json:"media_type"`
	DisplayOrder  int    `db:"display_order" json:"order"`
	ThumbnailPath string `db:"thumbnail_path" json:"thumbnail_path,omitempty"`
}

func (m MediaRef) IsVideo() bool {
	return m.MediaType == MediaTypeVideo
}
