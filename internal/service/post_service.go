package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

type PostService interface {
	Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error)
	Update(ctx context.Context, userID int64, postID string, pc *transfer.PostCreation) (*models.ScheduledPost, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	Get(ctx context.Context, userID int64, postID string) (*models.ScheduledPost, error)
	Remove(ctx context.Context, userID int64, postID string) error
}

type postService struct {
	db  *sql.DB
	pr  repository.PostRepository
	pm  repository.PostMediaRepository
	ac  repository.SocialAccountRepository
	now func() time.Time
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pm repository.PostMediaRepository,
	ac repository.SocialAccountRepository) PostService {
	return &postService{
		db:  db,
		pr:  pr,
		pm:  pm,
		ac:  ac,
		now: time.Now,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	if pc == nil {
		return nil, invalid("post creation data is missing")
	}
	if !pc.ScheduledTime.After(s.now()) {
		return nil, invalid("scheduled_time must be in the future")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating post id: %w", err)
	}

	post, err := s.build(ctx, userID, id, pc)
	if err != nil {
		return nil, err
	}
	post.Status = models.PostStatusScheduled

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.pr.Create(ctx, tx, post); err != nil {
			return fmt.Errorf("error creating post: %w", err)
		}
		return s.saveMedia(ctx, tx, post)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post scheduled", "post_id", post.ID, "platform", post.Platform, "scheduled_time", post.ScheduledTime)
	return post, nil
}

// Update replaces the content and media list of a post that has not gone live.
func (s *postService) Update(ctx context.Context, userID int64, postID string, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	if pc == nil {
		return nil, invalid("post data is missing")
	}
	existing, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if err := editable(existing.Status); err != nil {
		return nil, err
	}
	if pc.Platform != existing.Platform {
		return nil, invalid("platform cannot be changed")
	}

	post, err := s.build(ctx, userID, postID, pc)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		updated, err := s.pr.Update(ctx, tx, post)
		if err != nil {
			return fmt.Errorf("error updating post: %w", err)
		}
		if !updated {
			return ErrNotSchedulable
		}
		if err := s.pm.RemoveByPostID(ctx, tx, postID); err != nil {
			return fmt.Errorf("error clearing media: %w", err)
		}
		return s.saveMedia(ctx, tx, post)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, postID)
}

func editable(status string) error {
	switch status {
	case models.PostStatusScheduled, models.PostStatusFailed:
		return nil
	case models.PostStatusPublished:
		return ErrAlreadyPublished
	default:
		return ErrNotSchedulable
	}
}

func (s *postService) build(ctx context.Context, userID int64, postID string, pc *transfer.PostCreation) (*models.ScheduledPost, error) {
	account, err := s.ac.GetByID(ctx, pc.AccountID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	if account == nil || account.UserID != userID {
		return nil, ErrAccountNotFound
	}
	if account.Platform != pc.Platform {
		return nil, invalid(fmt.Sprintf("account %d belongs to %s, not %s", pc.AccountID, account.Platform, pc.Platform))
	}

	post := &models.ScheduledPost{
		ID:            postID,
		UserID:        userID,
		Platform:      pc.Platform,
		PostType:      pc.PostType,
		AccountID:     pc.AccountID,
		Caption:       pc.Caption,
		FirstComment:  pc.FirstComment,
		BoardID:       pc.BoardID,
		Title:         pc.Title,
		Link:          pc.Link,
		AltText:       pc.AltText,
		ScheduledTime: pc.ScheduledTime,
	}

	if post.FirstComment != "" && post.Platform != models.PlatformInstagram {
		return nil, invalid("first_comment is only supported on instagram")
	}

	media, err := buildMedia(postID, pc.Media)
	if err != nil {
		return nil, err
	}
	post.Media = media

	if pc.ReelCover != nil {
		cover, err := buildCover(post, pc.ReelCover)
		if err != nil {
			return nil, err
		}
		post.ReelCover = cover
	}

	if post.Platform == models.PlatformPinterest && post.BoardID == "" && account.DefaultBoardID == "" {
		return nil, invalid("pins require a board")
	}

	if _, err := SelectPlan(post); err != nil {
		return nil, err
	}
	return post, nil
}

// buildMedia requires order values to be unique and dense from zero.
func buildMedia(postID string, inputs []transfer.MediaInput) ([]models.MediaRef, error) {
	sorted := make([]transfer.MediaInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	media := make([]models.MediaRef, 0, len(sorted))
	for i, in := range sorted {
		if in.Order != i {
			return nil, invalid("media order values must be unique and start at 0 without gaps")
		}
		if in.MediaType != models.MediaTypeImage && in.MediaType != models.MediaTypeVideo {
			return nil, invalid(fmt.Sprintf("media item %d has unsupported type %q", i, in.MediaType))
		}
		if in.StoragePath == "" && in.URL == "" {
			return nil, invalid(fmt.Sprintf("media item %d needs a storage_path or url", i))
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generating media id: %w", err)
		}
		media = append(media, models.MediaRef{
			ID:            id,
			PostID:        postID,
			StoragePath:   in.StoragePath,
			URL:           in.URL,
			MediaType:     in.MediaType,
			DisplayOrder:  in.Order,
			ThumbnailPath: in.ThumbnailPath,
		})
	}
	return media, nil
}

func buildCover(post *models.ScheduledPost, in *transfer.ReelCoverInput) (*models.ReelCover, error) {
	if post.Platform != models.PlatformInstagram || post.PostType != models.PostTypeReel {
		return nil, invalid("reel_cover is only supported on instagram reels")
	}
	switch in.Type {
	case models.ReelCoverFrame:
		if in.TimestampMs != nil && *in.TimestampMs < 0 {
			return nil, invalid("reel_cover timestamp must not be negative")
		}
		return &models.ReelCover{Type: in.Type, TimestampMs: in.TimestampMs}, nil
	case models.ReelCoverCustom:
		if in.StoragePath == "" {
			return nil, invalid("custom reel_cover requires a storage_path")
		}
		return &models.ReelCover{Type: in.Type, StoragePath: in.StoragePath}, nil
	default:
		return nil, invalid(fmt.Sprintf("unsupported reel_cover type %q", in.Type))
	}
}

func (s *postService) saveMedia(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) error {
	for i := range post.Media {
		if err := s.pm.Create(ctx, tx, &post.Media[i]); err != nil {
			return fmt.Errorf("error saving media item %d: %w", i, err)
		}
	}
	return nil
}

func (s *postService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *postService) owned(ctx context.Context, userID int64, postID string) (*models.ScheduledPost, error) {
	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrPostNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, userID int64, postID string) (*models.ScheduledPost, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	media, err := s.pm.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error loading media: %w", err)
	}
	post.Media = media
	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID int64, postID string) error {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing {
		return ErrAlreadyClaimed
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}
