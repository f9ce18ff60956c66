package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
)

var ErrTokenChanged = errors.New("account token changed concurrently")

type SocialAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
	SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error
	SetStatus(ctx context.Context, id int64, status string) error
	Remove(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const accountColumns = `id, user_id, platform, account_id, account_name, account_username,
	profile_picture_url, default_board_id, access_token, refresh_token, token_expires_at,
	account_status, created_at, updated_at`

func scanAccount(row rowScanner) (*models.SocialAccount, error) {
	var (
		sa      models.SocialAccount
		expires sql.NullTime
	)
	err := row.Scan(&sa.ID, &sa.UserID, &sa.Platform, &sa.AccountID, &sa.AccountName,
		&sa.AccountUsername, &sa.ProfilePicture, &sa.DefaultBoardID, &sa.AccessToken, &sa.RefreshToken,
		&expires, &sa.AccountStatus, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		sa.TokenExpiresAt = expires.Time
	}
	return &sa, nil
}

func expiryArg(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func (r *socialAccountRepository) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	var err error
	var id int64

	var insertQuery = `
			INSERT INTO social_accounts(
				user_id,
				platform,
				account_id,
				account_name,
				account_username,
				profile_picture_url,
				default_board_id,
				access_token,
				refresh_token,
				token_expires_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
	args := []any{
		sa.UserID,
		sa.Platform,
		sa.AccountID,
		sa.AccountName,
		sa.AccountUsername,
		sa.ProfilePicture,
		sa.DefaultBoardID,
		sa.AccessToken,
		sa.RefreshToken,
		expiryArg(sa.TokenExpiresAt),
	}

	if tx != nil {
		err = tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, insertQuery, args...).Scan(&id)
	}

	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE id = $1`
	sa, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return sa, nil
}

func (r *socialAccountRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, userID)
}

// ListByTimeInterval returns accounts whose token expires inside the window or
// has already expired.
func (r *socialAccountRepository) ListByTimeInterval(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM social_accounts
			WHERE (token_expires_at BETWEEN $1 AND $2)
			OR (token_expires_at < $1)`
	return r.list(ctx, query, initialTime, finalTime)
}

func (r *socialAccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.SocialAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.SocialAccount
	for rows.Next() {
		sa, err := scanAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, sa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return accounts, nil
}

func (r *socialAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := "SELECT 1 FROM social_accounts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// SetToken swaps in refreshed tokens, guarded by the token that was refreshed
// so two concurrent refreshes cannot overwrite each other.
func (r *socialAccountRepository) SetToken(ctx context.Context, id int64, oldAccessToken string, sa *models.SocialAccount) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	updateTokenQuery := `
		UPDATE social_accounts
		SET
			access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = COALESCE($5, token_expires_at),
			account_status = 'active',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND access_token = $2;
	`
	result, err := tx.ExecContext(ctx, updateTokenQuery, id, oldAccessToken, sa.AccessToken, sa.RefreshToken, expiryArg(sa.TokenExpiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; token may have been refreshed already", "account_id", id)
		return ErrTokenChanged
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE social_accounts SET account_status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM social_accounts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
