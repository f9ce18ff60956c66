package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/repository"
	"github.com/jhonny218/social-media-scheduler-sub001/pkg/utils"
)

type PublishConfig struct {
	// WriteRetry governs re-attempts of the published write after the
	// platform call succeeded.
	WriteRetry platform.RetryPolicy
	StaleAfter time.Duration
}

// PublishService owns every status transition of a scheduled post.
type PublishService interface {
	// PublishPost runs one attempt. A nil error means the attempt finished and
	// the returned post is published or failed; errors are returned for posts
	// that could not be claimed or when the result could not be recorded.
	PublishPost(ctx context.Context, postID string) (*models.ScheduledPost, error)
	ResetForRetry(ctx context.Context, userID int64, postID string) error
	ReclaimStale(ctx context.Context) ([]string, error)
	History(ctx context.Context, userID int64, postID string) ([]*models.PostingHistory, error)
}

type publishService struct {
	posts     repository.PostRepository
	media     repository.PostMediaRepository
	accounts  repository.SocialAccountRepository
	history   repository.PostingHistoryRepository
	resolver  *MediaResolver
	publisher *Publisher
	tokens    *utils.TokenCipher
	cfg       PublishConfig

	now   func() time.Time
	sleep platform.SleepFunc
}

func NewPublishService(
	posts repository.PostRepository,
	media repository.PostMediaRepository,
	accounts repository.SocialAccountRepository,
	history repository.PostingHistoryRepository,
	resolver *MediaResolver,
	publisher *Publisher,
	tokens *utils.TokenCipher,
	cfg PublishConfig) PublishService {
	return &publishService{
		posts:     posts,
		media:     media,
		accounts:  accounts,
		history:   history,
		resolver:  resolver,
		publisher: publisher,
		tokens:    tokens,
		cfg:       cfg,
		now:       time.Now,
		sleep:     platform.Sleep,
	}
}

func (s *publishService) PublishPost(ctx context.Context, postID string) (*models.ScheduledPost, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("loading post %s: %w", postID, err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	switch post.Status {
	case models.PostStatusPublished:
		return post, ErrAlreadyPublished
	case models.PostStatusPublishing:
		return post, ErrAlreadyClaimed
	case models.PostStatusFailed:
		return post, ErrNotSchedulable
	}

	claimedAt := s.now()
	claimed, err := s.posts.Claim(ctx, post.ID, claimedAt)
	if err != nil {
		return nil, fmt.Errorf("claiming post %s: %w", post.ID, err)
	}
	if !claimed {
		return post, ErrAlreadyClaimed
	}
	post.Status = models.PostStatusPublishing
	post.PublishingAt = &claimedAt

	// Past the claim the outcome must be recorded even if the caller gives up.
	writeCtx := context.WithoutCancel(ctx)

	log := slog.With("post_id", post.ID, "platform", post.Platform, "post_type", post.PostType)
	account, creds, result, err := s.attempt(ctx, log, post)
	if err != nil {
		return s.fail(writeCtx, log, post, err)
	}

	if err := s.recordPublished(writeCtx, post, result); err != nil {
		log.Error("platform post is live but could not be recorded",
			"platform_post_id", result.PlatformPostID, "permalink", result.Permalink, "error", err)
		return post, fmt.Errorf("recording published post %s: %w", post.ID, err)
	}
	log.Info("post published", "platform_post_id", result.PlatformPostID, "permalink", result.Permalink)
	s.record(writeCtx, log, post)

	if post.FirstComment != "" && account.Platform == models.PlatformInstagram {
		if err := s.publisher.Comment(writeCtx, account.Platform, creds, result.PlatformPostID, post.FirstComment); err != nil {
			log.Warn("first comment failed", "platform_post_id", result.PlatformPostID, "error", err)
		}
	}

	return post, nil
}

func (s *publishService) attempt(ctx context.Context, log *slog.Logger, post *models.ScheduledPost) (*models.SocialAccount, platform.Credentials, *platform.PublishResult, error) {
	var creds platform.Credentials

	media, err := s.media.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, creds, nil, fmt.Errorf("loading media: %w", err)
	}
	post.Media = media

	plan, err := SelectPlan(post)
	if err != nil {
		return nil, creds, nil, err
	}

	account, err := s.accounts.GetByID(ctx, post.AccountID)
	if err != nil {
		return nil, creds, nil, fmt.Errorf("loading account: %w", err)
	}
	if account == nil {
		return nil, creds, nil, ErrAccountNotFound
	}
	if account.UserID != post.UserID {
		return nil, creds, nil, invalid("account does not belong to the post owner")
	}
	if account.Platform != post.Platform {
		return nil, creds, nil, invalid(fmt.Sprintf("account is a %s account, post targets %s", account.Platform, post.Platform))
	}

	token, err := s.tokens.Decrypt(account.AccessToken)
	if err != nil {
		return nil, creds, nil, fmt.Errorf("decrypting access token: %w", err)
	}
	creds = platform.Credentials{AccessToken: token, AccountID: account.AccountID}

	var cover *models.ReelCover
	if plan.Kind == PlanInstagramReel {
		cover = post.ReelCover
	}
	resolved, err := s.resolver.Resolve(ctx, plan.Media, cover)
	if err != nil {
		return nil, creds, nil, err
	}

	log.Info("publishing post", "plan", plan.Kind, "steps", plan.Steps, "media", len(plan.Media))
	result, err := s.publisher.Execute(ctx, plan, post, account, creds, resolved)
	if err != nil {
		return nil, creds, nil, err
	}
	return account, creds, result, nil
}

func (s *publishService) fail(ctx context.Context, log *slog.Logger, post *models.ScheduledPost, cause error) (*models.ScheduledPost, error) {
	msg := failureMessage(cause)
	failedAt := s.now()
	log.Warn("publish failed", "error", cause)

	if err := s.posts.MarkFailed(ctx, post.ID, msg, failedAt); err != nil {
		log.Error("could not record failure", "error", err)
		return post, fmt.Errorf("recording failed post %s: %w", post.ID, err)
	}
	post.Status = models.PostStatusFailed
	post.ErrorMessage = msg
	post.FailedAt = &failedAt
	s.record(ctx, log, post)
	return post, nil
}

// record keeps an attempt row; the post row stays authoritative.
func (s *publishService) record(ctx context.Context, log *slog.Logger, post *models.ScheduledPost) {
	if s.history == nil {
		return
	}
	_, err := s.history.Create(ctx, &models.PostingHistory{
		UserID:         post.UserID,
		PostID:         post.ID,
		AccountID:      post.AccountID,
		Outcome:        post.Status,
		PlatformPostID: post.PlatformPostID,
		ErrorMessage:   post.ErrorMessage,
	})
	if err != nil {
		log.Warn("could not record posting history", "error", err)
	}
}

func (s *publishService) History(ctx context.Context, userID int64, postID string) ([]*models.PostingHistory, error) {
	owned, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrPostNotFound
	}
	if s.history == nil {
		return nil, nil
	}

	entries, err := s.history.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error loading posting history: %w", err)
	}
	return entries, nil
}

func failureMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return platform.Message(err)
}

func (s *publishService) recordPublished(ctx context.Context, post *models.ScheduledPost, result *platform.PublishResult) error {
	publishedAt := s.now()
	var err error
	for attempt := 0; ; attempt++ {
		err = s.posts.MarkPublished(ctx, post.ID, result.PlatformPostID, result.Permalink, publishedAt)
		if err == nil || errors.Is(err, repository.ErrStatusChanged) || attempt >= s.cfg.WriteRetry.Attempts {
			break
		}
		slog.Warn("retrying published write", "post_id", post.ID, "attempt", attempt+1, "error", err)
		if serr := s.sleep(ctx, s.cfg.WriteRetry.Delay); serr != nil {
			return serr
		}
	}
	if err != nil {
		return err
	}

	post.Status = models.PostStatusPublished
	post.PlatformPostID = result.PlatformPostID
	post.Permalink = result.Permalink
	post.ErrorMessage = ""
	post.PublishedAt = &publishedAt
	return nil
}

func (s *publishService) ResetForRetry(ctx context.Context, userID int64, postID string) error {
	owned, err := s.posts.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrPostNotFound
	}

	reset, err := s.posts.ResetToScheduled(ctx, postID, s.now())
	if err != nil {
		return err
	}
	if reset {
		return nil
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post != nil && post.Status == models.PostStatusPublished {
		return ErrAlreadyPublished
	}
	return ErrNotSchedulable
}

func (s *publishService) ReclaimStale(ctx context.Context) ([]string, error) {
	if s.cfg.StaleAfter <= 0 {
		return nil, nil
	}
	now := s.now()
	msg := fmt.Sprintf("publish attempt abandoned after %s; verify on platform before retrying", s.cfg.StaleAfter)

	ids, err := s.posts.ReclaimStale(ctx, now.Add(-s.cfg.StaleAfter), msg, now)
	if err != nil {
		return nil, fmt.Errorf("reclaiming stale posts: %w", err)
	}
	for _, id := range ids {
		slog.Warn("reclaimed post stuck in publishing", "post_id", id, "stale_after", s.cfg.StaleAfter)
	}
	return ids, nil
}
