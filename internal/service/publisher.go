package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/models"
	"github.com/jhonny218/social-media-scheduler-sub001/internal/platform"
)

type InstagramClient interface {
	PublishImage(ctx context.Context, creds platform.Credentials, imageURL, caption string) (*platform.PublishResult, error)
	PublishCarousel(ctx context.Context, creds platform.Credentials, items []platform.CarouselItem, caption string) (*platform.PublishResult, error)
	PublishReel(ctx context.Context, creds platform.Credentials, videoURL, caption string, cover platform.ReelCoverSpec) (*platform.PublishResult, error)
	PublishStory(ctx context.Context, creds platform.Credentials, mediaURL string, isVideo bool) (*platform.PublishResult, error)
	PostComment(ctx context.Context, creds platform.Credentials, mediaID, text string) error
	Validate(ctx context.Context, creds platform.Credentials) error
	RefreshToken(ctx context.Context, accessToken string) (string, time.Time, error)
}

type FacebookClient interface {
	PublishPhoto(ctx context.Context, creds platform.Credentials, imageURL, caption string) (*platform.PublishResult, error)
	PublishVideo(ctx context.Context, creds platform.Credentials, videoURL, caption string) (*platform.PublishResult, error)
	PublishLink(ctx context.Context, creds platform.Credentials, message, link string) (*platform.PublishResult, error)
	PublishAlbum(ctx context.Context, creds platform.Credentials, imageURLs []string, message string) (*platform.PublishResult, error)
	PostComment(ctx context.Context, creds platform.Credentials, objectID, text string) error
	Validate(ctx context.Context, creds platform.Credentials) error
}

type PinterestClient interface {
	PublishImagePin(ctx context.Context, creds platform.Credentials, pin platform.PinSpec, imageURL string) (*platform.PublishResult, error)
	PublishVideoPin(ctx context.Context, creds platform.Credentials, pin platform.PinSpec, video []byte, contentType, coverURL string) (*platform.PublishResult, error)
	PostComment(ctx context.Context, creds platform.Credentials, pinID, text string) error
	Validate(ctx context.Context, creds platform.Credentials) error
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type MediaSource interface {
	Fetch(ctx context.Context, m ResolvedMedia) ([]byte, string, error)
}

// Publisher executes a Plan against the platform adapters.
type Publisher struct {
	instagram InstagramClient
	facebook  FacebookClient
	pinterest PinterestClient
	media     MediaSource
}

func NewPublisher(ig InstagramClient, fb FacebookClient, pin PinterestClient, media MediaSource) *Publisher {
	return &Publisher{instagram: ig, facebook: fb, pinterest: pin, media: media}
}

func (p *Publisher) Execute(ctx context.Context, plan *Plan, post *models.ScheduledPost, account *models.SocialAccount, creds platform.Credentials, resolved *ResolvedPost) (*platform.PublishResult, error) {
	if len(resolved.Media) != len(plan.Media) {
		return nil, fmt.Errorf("resolved %d media items for a plan of %d", len(resolved.Media), len(plan.Media))
	}
	media := resolved.Media

	switch plan.Kind {
	case PlanInstagramImage:
		return p.instagram.PublishImage(ctx, creds, media[0].FetchURL, post.Caption)

	case PlanInstagramCarousel:
		items := make([]platform.CarouselItem, 0, len(media))
		for _, m := range media {
			items = append(items, platform.CarouselItem{URL: m.FetchURL, IsVideo: m.IsVideo()})
		}
		return p.instagram.PublishCarousel(ctx, creds, items, post.Caption)

	case PlanInstagramReel:
		return p.instagram.PublishReel(ctx, creds, media[0].FetchURL, post.Caption, reelCover(post.ReelCover, resolved.CoverURL))

	case PlanInstagramStory:
		return p.instagram.PublishStory(ctx, creds, media[0].FetchURL, media[0].IsVideo())

	case PlanFacebookPhoto:
		return p.facebook.PublishPhoto(ctx, creds, media[0].FetchURL, post.Caption)

	case PlanFacebookVideo:
		return p.facebook.PublishVideo(ctx, creds, media[0].FetchURL, post.Caption)

	case PlanFacebookLink:
		return p.facebook.PublishLink(ctx, creds, post.Caption, post.Link)

	case PlanFacebookAlbum:
		urls := make([]string, 0, len(media))
		for _, m := range media {
			urls = append(urls, m.FetchURL)
		}
		return p.facebook.PublishAlbum(ctx, creds, urls, post.Caption)

	case PlanPinterestImagePin:
		pin, err := pinSpec(post, account)
		if err != nil {
			return nil, err
		}
		return p.pinterest.PublishImagePin(ctx, creds, pin, media[0].FetchURL)

	case PlanPinterestVideoPin:
		pin, err := pinSpec(post, account)
		if err != nil {
			return nil, err
		}
		data, contentType, err := p.media.Fetch(ctx, media[0])
		if err != nil {
			return nil, fmt.Errorf("loading video for upload: %w", err)
		}
		return p.pinterest.PublishVideoPin(ctx, creds, pin, data, contentType, media[0].ThumbnailURL)

	default:
		return nil, fmt.Errorf("no publisher for plan %s", plan.Kind)
	}
}

// Comment posts the first comment where the platform supports it.
func (p *Publisher) Comment(ctx context.Context, platformName string, creds platform.Credentials, postID, text string) error {
	switch platformName {
	case models.PlatformInstagram:
		return p.instagram.PostComment(ctx, creds, postID, text)
	case models.PlatformFacebook:
		return p.facebook.PostComment(ctx, creds, postID, text)
	case models.PlatformPinterest:
		return p.pinterest.PostComment(ctx, creds, postID, text)
	default:
		return platform.ErrUnsupported
	}
}

func reelCover(cover *models.ReelCover, coverURL string) platform.ReelCoverSpec {
	if cover == nil {
		return platform.ReelCoverSpec{}
	}
	switch cover.Type {
	case models.ReelCoverCustom:
		return platform.ReelCoverSpec{CoverURL: coverURL}
	case models.ReelCoverFrame:
		return platform.ReelCoverSpec{ThumbOffsetMs: cover.TimestampMs}
	default:
		return platform.ReelCoverSpec{}
	}
}

func pinSpec(post *models.ScheduledPost, account *models.SocialAccount) (platform.PinSpec, error) {
	board := post.BoardID
	if board == "" {
		board = account.DefaultBoardID
	}
	if board == "" {
		return platform.PinSpec{}, invalid("pins require a board")
	}
	return platform.PinSpec{
		BoardID:     board,
		Title:       post.Title,
		Description: post.Caption,
		Link:        post.Link,
		AltText:     post.AltText,
	}, nil
}
