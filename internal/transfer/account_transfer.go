package transfer

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountConnection links a platform account whose tokens were already obtained.
type AccountConnection struct {
	Platform        string    `json:"platform"`
	AccountID       string    `json:"account_id"`
	AccountName     string    `json:"account_name"`
	AccountUsername string    `json:"account_username"`
	ProfilePicture  string    `json:"profile_picture"`
	DefaultBoardID  string    `json:"default_board_id"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	TokenExpiresAt  time.Time `json:"token_expires_at"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
