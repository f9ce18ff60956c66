package models

import "time"

// PostingHistory is one finished publish attempt. A post that was retried has
// one row per attempt.
type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         string    `db:"post_id" json:"post_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	Outcome        string    `db:"outcome" json:"outcome"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
