package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

const instagram = "instagram"

type InstagramConfig struct {
	BaseURL        string
	APIVersion     string
	PollInterval   time.Duration
	MaxWait        time.Duration
	CarouselSettle time.Duration
	Retry          RetryPolicy
	HTTPClient     *http.Client
}

// ContainerSpec describes one media container. Children and IsCarouselItem are
// mutually exclusive: children make a carousel parent, the flag makes a child.
type ContainerSpec struct {
	ImageURL       string
	VideoURL       string
	MediaType      string // REELS, STORIES, CAROUSEL; empty for a feed image
	Caption        string
	IsCarouselItem bool
	Children       []string
	CoverURL       string
	ThumbOffsetMs  *int64
}

type CarouselItem struct {
	URL     string
	IsVideo bool
}

type ReelCoverSpec struct {
	CoverURL      string
	ThumbOffsetMs *int64
}

type Instagram struct {
	api   *apiClient
	cfg   InstagramConfig
	sleep SleepFunc
}

func NewInstagram(cfg InstagramConfig) *Instagram {
	ig := &Instagram{cfg: cfg, sleep: Sleep}
	ig.api = &apiClient{
		platform:  instagram,
		baseURL:   cfg.BaseURL,
		http:      httpClientOrDefault(cfg.HTTPClient),
		retry:     cfg.Retry,
		normalize: normalizeGraph(instagram),
	}
	ig.api.sleep = func(ctx context.Context, d time.Duration) error { return ig.sleep(ctx, d) }
	return ig
}

func (ig *Instagram) path(parts ...string) string {
	return "/" + ig.cfg.APIVersion + "/" + strings.Join(parts, "/")
}

func (ig *Instagram) CreateContainer(ctx context.Context, creds Credentials, spec ContainerSpec) (string, error) {
	payload := map[string]interface{}{
		"access_token": creds.AccessToken,
	}
	if spec.ImageURL != "" {
		payload["image_url"] = spec.ImageURL
	}
	if spec.VideoURL != "" {
		payload["video_url"] = spec.VideoURL
	}
	if spec.MediaType != "" {
		payload["media_type"] = spec.MediaType
	}
	if spec.IsCarouselItem {
		payload["is_carousel_item"] = true
	} else if spec.Caption != "" {
		payload["caption"] = spec.Caption
	}
	if len(spec.Children) > 0 {
		payload["children"] = strings.Join(spec.Children, ",")
	}
	if spec.CoverURL != "" {
		payload["cover_url"] = spec.CoverURL
	}
	if spec.ThumbOffsetMs != nil {
		payload["thumb_offset"] = strconv.FormatInt(*spec.ThumbOffsetMs, 10)
	}

	var result transfer.InstagramIDResponse
	err := ig.api.call(ctx, "create container", request{
		method: http.MethodPost,
		path:   ig.path(creds.AccountID, "media"),
		body:   payload,
	}, &result)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", &Error{Platform: instagram, Message: "no media ID returned from Instagram"}
	}
	return result.ID, nil
}

func (ig *Instagram) CheckReadiness(ctx context.Context, creds Credentials, containerID string) (Readiness, string, error) {
	var status transfer.InstagramContainerStatus
	err := ig.api.call(ctx, "container status", request{
		method: http.MethodGet,
		path:   ig.path(containerID),
		query:  url.Values{"fields": {"status_code,status"}, "access_token": {creds.AccessToken}},
	}, &status)
	if err != nil {
		return Processing, "", err
	}

	switch status.StatusCode {
	case "FINISHED", "PUBLISHED":
		return Ready, status.Status, nil
	case "ERROR", "EXPIRED":
		return Errored, status.Status, nil
	default:
		return Processing, status.Status, nil
	}
}

// WaitUntilReady polls the container until it finishes processing. Both a
// processing error and running out of time are failures.
func (ig *Instagram) WaitUntilReady(ctx context.Context, creds Credentials, containerID string, maxWait time.Duration) error {
	poller := Poller{Interval: ig.cfg.PollInterval, MaxWait: maxWait, Sleep: ig.sleep}
	res, err := poller.Poll(ctx, func(ctx context.Context) (Readiness, string, error) {
		return ig.CheckReadiness(ctx, creds, containerID)
	})
	if err != nil {
		return err
	}

	switch res.Outcome {
	case PollErrored:
		msg := "Media processing failed"
		if res.Detail != "" {
			msg = fmt.Sprintf("Media processing failed: %s", res.Detail)
		}
		return &Error{Platform: instagram, Message: msg, Err: ErrProcessingFailed}
	case PollTimedOut:
		return &Error{
			Platform: instagram,
			Message:  fmt.Sprintf("Media processing timed out after %s", maxWait),
			Err:      ErrProcessingTimeout,
		}
	}
	return nil
}

func (ig *Instagram) Publish(ctx context.Context, creds Credentials, containerID string) (*PublishResult, error) {
	var result transfer.InstagramIDResponse
	err := ig.api.call(ctx, "publish", request{
		method: http.MethodPost,
		path:   ig.path(creds.AccountID, "media_publish"),
		body: map[string]string{
			"creation_id":  containerID,
			"access_token": creds.AccessToken,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &Error{Platform: instagram, Message: "no media ID returned from Instagram publish"}
	}

	published := &PublishResult{PlatformPostID: result.ID}

	// The post is live at this point; a missing permalink is not a failure.
	var link transfer.InstagramPermalink
	err = ig.api.call(ctx, "permalink", request{
		method: http.MethodGet,
		path:   ig.path(result.ID),
		query:  url.Values{"fields": {"permalink"}, "access_token": {creds.AccessToken}},
	}, &link)
	if err != nil {
		slog.Warn("unable to fetch Instagram permalink", "media_id", result.ID, "error", err)
	} else {
		published.Permalink = link.Permalink
	}

	return published, nil
}

func (ig *Instagram) PostComment(ctx context.Context, creds Credentials, mediaID, text string) error {
	return ig.api.call(ctx, "comment", request{
		method: http.MethodPost,
		path:   ig.path(mediaID, "comments"),
		body: map[string]string{
			"message":      text,
			"access_token": creds.AccessToken,
		},
	}, nil)
}

func (ig *Instagram) PublishImage(ctx context.Context, creds Credentials, imageURL, caption string) (*PublishResult, error) {
	containerID, err := ig.CreateContainer(ctx, creds, ContainerSpec{ImageURL: imageURL, Caption: caption})
	if err != nil {
		return nil, err
	}
	return ig.Publish(ctx, creds, containerID)
}

// PublishCarousel creates the children in the given order, then the parent.
// The parent can report ready before it is publishable, so a settle delay
// separates readiness from publish.
func (ig *Instagram) PublishCarousel(ctx context.Context, creds Credentials, items []CarouselItem, caption string) (*PublishResult, error) {
	children := make([]string, 0, len(items))
	for i, item := range items {
		spec := ContainerSpec{IsCarouselItem: true}
		if item.IsVideo {
			spec.VideoURL = item.URL
			spec.MediaType = "VIDEO"
		} else {
			spec.ImageURL = item.URL
		}
		id, err := ig.CreateContainer(ctx, creds, spec)
		if err != nil {
			return nil, fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		children = append(children, id)
	}

	parentID, err := ig.CreateContainer(ctx, creds, ContainerSpec{
		MediaType: "CAROUSEL",
		Caption:   caption,
		Children:  children,
	})
	if err != nil {
		return nil, err
	}

	if err := ig.WaitUntilReady(ctx, creds, parentID, ig.cfg.MaxWait); err != nil {
		return nil, err
	}
	if err := ig.sleep(ctx, ig.cfg.CarouselSettle); err != nil {
		return nil, err
	}

	return ig.Publish(ctx, creds, parentID)
}

func (ig *Instagram) PublishReel(ctx context.Context, creds Credentials, videoURL, caption string, cover ReelCoverSpec) (*PublishResult, error) {
	containerID, err := ig.CreateContainer(ctx, creds, ContainerSpec{
		VideoURL:      videoURL,
		MediaType:     "REELS",
		Caption:       caption,
		CoverURL:      cover.CoverURL,
		ThumbOffsetMs: cover.ThumbOffsetMs,
	})
	if err != nil {
		return nil, err
	}
	if err := ig.WaitUntilReady(ctx, creds, containerID, ig.cfg.MaxWait); err != nil {
		return nil, err
	}
	return ig.Publish(ctx, creds, containerID)
}

func (ig *Instagram) PublishStory(ctx context.Context, creds Credentials, mediaURL string, isVideo bool) (*PublishResult, error) {
	spec := ContainerSpec{MediaType: "STORIES"}
	if isVideo {
		spec.VideoURL = mediaURL
	} else {
		spec.ImageURL = mediaURL
	}
	containerID, err := ig.CreateContainer(ctx, creds, spec)
	if err != nil {
		return nil, err
	}
	if isVideo {
		if err := ig.WaitUntilReady(ctx, creds, containerID, ig.cfg.MaxWait); err != nil {
			return nil, err
		}
	}
	return ig.Publish(ctx, creds, containerID)
}

// Validate confirms the token still resolves to the account.
func (ig *Instagram) Validate(ctx context.Context, creds Credentials) error {
	var me transfer.InstagramUserInfo
	return ig.api.call(ctx, "validate", request{
		method: http.MethodGet,
		path:   ig.path("me"),
		query:  url.Values{"fields": {"id,username"}, "access_token": {creds.AccessToken}},
	}, &me)
}

// RefreshToken extends a long-lived Instagram token.
func (ig *Instagram) RefreshToken(ctx context.Context, accessToken string) (string, time.Time, error) {
	var result transfer.InstagramRefreshResponse
	err := ig.api.call(ctx, "refresh token", request{
		method: http.MethodGet,
		path:   "/refresh_access_token",
		query:  url.Values{"grant_type": {"ig_refresh_token"}, "access_token": {accessToken}},
	}, &result)
	if err != nil {
		return "", time.Time{}, err
	}
	return result.AccessToken, time.Now().Add(time.Duration(result.ExpiresIn) * time.Second), nil
}

func normalizeGraph(platform string) normalizeFunc {
	return func(status int, body []byte) error {
		var envelope transfer.GraphErrorResponse
		if len(body) > 0 && json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
			msg := envelope.Error.Message
			if envelope.Error.ErrorUserMsg != "" && envelope.Error.ErrorUserMsg != msg {
				msg = msg + ": " + envelope.Error.ErrorUserMsg
			}
			return &Error{
				Platform:   platform,
				StatusCode: status,
				Code:       envelope.Error.Code,
				Subcode:    envelope.Error.ErrorSubcode,
				Message:    msg,
			}
		}
		if status < 200 || status >= 300 {
			return &Error{
				Platform:   platform,
				StatusCode: status,
				Message:    fmt.Sprintf("unexpected status code from %s: %d", platform, status),
			}
		}
		return nil
	}
}
