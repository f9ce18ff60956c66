package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
	"github.com/jhonny218/social-media-scheduler-sub001/pkg/utils"
)

type AccountService interface {
	Connect(ctx context.Context, userID int64, ac *transfer.AccountConnection) (*models.SocialAccount, error)
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
	Validate(ctx context.Context, userID, accountID int64) error
	Refresh(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error)
	RefreshAccount(ctx context.Context, sa *models.SocialAccount) error
}

type accountService struct {
	sa        repository.SocialAccountRepository
	tokens    *utils.TokenCipher
	instagram InstagramClient
	facebook  FacebookClient
	pinterest PinterestClient
}

func NewAccountService(
	sa repository.SocialAccountRepository,
	tokens *utils.TokenCipher,
	ig InstagramClient,
	fb FacebookClient,
	pin PinterestClient) AccountService {
	return &accountService{
		sa:        sa,
		tokens:    tokens,
		instagram: ig,
		facebook:  fb,
		pinterest: pin,
	}
}

func (s *accountService) Connect(ctx context.Context, userID int64, ac *transfer.AccountConnection) (*models.SocialAccount, error) {
	if ac == nil {
		return nil, invalid("account connection data is missing")
	}
	switch ac.Platform {
	case models.PlatformInstagram, models.PlatformFacebook, models.PlatformPinterest:
	default:
		return nil, invalid(fmt.Sprintf("unsupported platform %q", ac.Platform))
	}
	if ac.AccountID == "" {
		return nil, invalid("account_id is required")
	}
	if ac.AccessToken == "" {
		return nil, invalid("access_token is required")
	}

	accessToken, err := s.tokens.Encrypt(ac.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}
	refreshToken, err := s.tokens.Encrypt(ac.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting refresh token: %w", err)
	}

	account := &models.SocialAccount{
		UserID:          userID,
		Platform:        ac.Platform,
		AccountID:       ac.AccountID,
		AccountName:     ac.AccountName,
		AccountUsername: ac.AccountUsername,
		ProfilePicture:  ac.ProfilePicture,
		DefaultBoardID:  ac.DefaultBoardID,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenExpiresAt:  ac.TokenExpiresAt,
		AccountStatus:   models.AccountStatusActive,
	}

	id, err := s.sa.Create(ctx, nil, account)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAccountAlreadyLinked
		}
		return nil, fmt.Errorf("saving social account: %w", err)
	}
	account.ID = id

	slog.Info("social account connected", "user_id", userID, "platform", ac.Platform, "account_id", id)
	return account, nil
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing social accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) owned(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrAccountNotFound
	}

	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (s *accountService) Delete(ctx context.Context, userID, accountID int64) error {
	if _, err := s.owned(ctx, userID, accountID); err != nil {
		return err
	}
	if err := s.sa.Remove(ctx, accountID); err != nil {
		return fmt.Errorf("removing social account: %w", err)
	}
	return nil
}

func (s *accountService) credentials(account *models.SocialAccount) (platform.Credentials, error) {
	token, err := s.tokens.Decrypt(account.AccessToken)
	if err != nil {
		return platform.Credentials{}, fmt.Errorf("decrypting access token: %w", err)
	}
	return platform.Credentials{AccessToken: token, AccountID: account.AccountID}, nil
}

// Validate makes a cheap identity call with the stored token. An account whose
// token is rejected is marked expired.
func (s *accountService) Validate(ctx context.Context, userID, accountID int64) error {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return err
	}
	creds, err := s.credentials(account)
	if err != nil {
		return err
	}

	switch account.Platform {
	case models.PlatformInstagram:
		err = s.instagram.Validate(ctx, creds)
	case models.PlatformFacebook:
		err = s.facebook.Validate(ctx, creds)
	case models.PlatformPinterest:
		err = s.pinterest.Validate(ctx, creds)
	default:
		return invalid(fmt.Sprintf("unsupported platform %q", account.Platform))
	}
	if err != nil {
		s.markExpired(ctx, account, err)
		return err
	}
	return nil
}

func (s *accountService) Refresh(ctx context.Context, userID, accountID int64) (*models.SocialAccount, error) {
	account, err := s.owned(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.RefreshAccount(ctx, account); err != nil {
		return nil, err
	}
	return s.sa.GetByID(ctx, accountID)
}

// RefreshAccount renews the account's access token in place. Facebook page
// tokens do not expire through this flow and are only validated.
func (s *accountService) RefreshAccount(ctx context.Context, account *models.SocialAccount) error {
	creds, err := s.credentials(account)
	if err != nil {
		return err
	}

	var (
		newAccess, newRefresh string
		expiresAt             time.Time
	)
	switch account.Platform {
	case models.PlatformInstagram:
		newAccess, expiresAt, err = s.instagram.RefreshToken(ctx, creds.AccessToken)
	case models.PlatformPinterest:
		refreshToken, derr := s.tokens.Decrypt(account.RefreshToken)
		if derr != nil {
			return fmt.Errorf("decrypting refresh token: %w", derr)
		}
		if refreshToken == "" {
			return invalid("account has no refresh token")
		}
		token, rerr := s.pinterest.RefreshToken(ctx, refreshToken)
		if rerr == nil {
			newAccess, expiresAt = token.AccessToken, token.Expiry
			if token.RefreshToken != refreshToken {
				newRefresh = token.RefreshToken
			}
		}
		err = rerr
	case models.PlatformFacebook:
		err = s.facebook.Validate(ctx, creds)
		if err == nil {
			return nil
		}
	default:
		return invalid(fmt.Sprintf("unsupported platform %q", account.Platform))
	}
	if err != nil {
		s.markExpired(ctx, account, err)
		return fmt.Errorf("refreshing %s token: %w", account.Platform, err)
	}

	update := &models.SocialAccount{TokenExpiresAt: expiresAt}
	if update.AccessToken, err = s.tokens.Encrypt(newAccess); err != nil {
		return err
	}
	if update.RefreshToken, err = s.tokens.Encrypt(newRefresh); err != nil {
		return err
	}
	if err := s.sa.SetToken(ctx, account.ID, account.AccessToken, update); err != nil {
		return fmt.Errorf("saving refreshed token: %w", err)
	}

	slog.Info("token refreshed", "account_id", account.ID, "platform", account.Platform, "expires_at", expiresAt)
	return nil
}

func (s *accountService) markExpired(ctx context.Context, account *models.SocialAccount, cause error) {
	if !platform.IsAuthRejected(cause) {
		slog.Warn("token check failed, keeping account status", "account_id", account.ID, "error", platform.Message(cause))
		return
	}
	if err := s.sa.SetStatus(ctx, account.ID, models.AccountStatusExpired); err != nil {
		slog.Warn("could not mark account expired", "account_id", account.ID, "error", err)
	}
}
