package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	fb "github.com/huandu/facebook/v2"
)

const facebook = "facebook"

type FacebookConfig struct {
	BaseURL      string
	APIVersion   string
	AppID        string
	AppSecret    string
	PollInterval time.Duration
	MaxWait      time.Duration
	Retry        RetryPolicy
	HTTPClient   *http.Client
}

// Facebook publishes to a page. Credentials.AccountID is the page id and the
// access token is the page token.
type Facebook struct {
	app   *fb.App
	cfg   FacebookConfig
	sleep SleepFunc
}

func NewFacebook(cfg FacebookConfig) *Facebook {
	return &Facebook{
		app:   fb.New(cfg.AppID, cfg.AppSecret),
		cfg:   cfg,
		sleep: Sleep,
	}
}

func (f *Facebook) session(ctx context.Context, creds Credentials) *fb.Session {
	session := f.app.Session(creds.AccessToken)
	session.Version = f.cfg.APIVersion
	if f.cfg.BaseURL != "" {
		session.BaseURL = strings.TrimRight(f.cfg.BaseURL, "/") + "/"
	}
	if f.cfg.HTTPClient != nil {
		session.HttpClient = f.cfg.HTTPClient
	}
	return session.WithContext(ctx)
}

func (f *Facebook) call(ctx context.Context, creds Credentials, op, method, path string, params fb.Params) (fb.Result, error) {
	res, err := Retry(ctx, f.cfg.Retry, f.sleep, facebook+"."+op, func(ctx context.Context) (fb.Result, error) {
		session := f.session(ctx, creds)
		var (
			res fb.Result
			err error
		)
		if method == http.MethodGet {
			res, err = session.Get(path, params)
		} else {
			res, err = session.Post(path, params)
		}
		if err != nil {
			return nil, normalizeFacebook(err)
		}
		return res, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", facebook, op, err)
	}
	return res, nil
}

func normalizeFacebook(err error) error {
	var fbErr *fb.Error
	if errors.As(err, &fbErr) {
		return &Error{
			Platform: facebook,
			Code:     fbErr.Code,
			Subcode:  fbErr.ErrorSubcode,
			Message:  fbErr.Message,
			Err:      err,
		}
	}
	return transportError(facebook, err)
}

func decodeID(res fb.Result, field string) (string, error) {
	var id string
	if err := res.DecodeField(field, &id); err != nil || id == "" {
		return "", &Error{Platform: facebook, Message: fmt.Sprintf("no %s returned from Facebook", field)}
	}
	return id, nil
}

// CreateContainer uploads an unpublished photo so it can be attached to a
// later feed post.
func (f *Facebook) CreateContainer(ctx context.Context, creds Credentials, imageURL string) (string, error) {
	res, err := f.call(ctx, creds, "upload photo", http.MethodPost, "/"+creds.AccountID+"/photos", fb.Params{
		"url":       imageURL,
		"published": false,
	})
	if err != nil {
		return "", err
	}
	return decodeID(res, "id")
}

func (f *Facebook) PublishPhoto(ctx context.Context, creds Credentials, imageURL, caption string) (*PublishResult, error) {
	params := fb.Params{"url": imageURL, "published": true}
	if caption != "" {
		params["caption"] = caption
	}
	res, err := f.call(ctx, creds, "publish photo", http.MethodPost, "/"+creds.AccountID+"/photos", params)
	if err != nil {
		return nil, err
	}
	postID, err := decodeID(res, "post_id")
	if err != nil {
		if postID, err = decodeID(res, "id"); err != nil {
			return nil, err
		}
	}
	return f.withPermalink(ctx, creds, postID), nil
}

func (f *Facebook) PublishVideo(ctx context.Context, creds Credentials, videoURL, caption string) (*PublishResult, error) {
	params := fb.Params{"file_url": videoURL}
	if caption != "" {
		params["description"] = caption
	}
	res, err := f.call(ctx, creds, "publish video", http.MethodPost, "/"+creds.AccountID+"/videos", params)
	if err != nil {
		return nil, err
	}
	videoID, err := decodeID(res, "id")
	if err != nil {
		return nil, err
	}
	if err := f.WaitUntilReady(ctx, creds, videoID, f.cfg.MaxWait); err != nil {
		return nil, &Error{
			Platform: facebook,
			Message:  fmt.Sprintf("%s (video %s was already posted to the Page; check it before publishing again)", Message(err), videoID),
			Err:      err,
		}
	}
	return f.withPermalink(ctx, creds, videoID), nil
}

func (f *Facebook) PublishLink(ctx context.Context, creds Credentials, message, link string) (*PublishResult, error) {
	params := fb.Params{"message": message}
	if link != "" {
		params["link"] = link
	}
	res, err := f.call(ctx, creds, "publish feed post", http.MethodPost, "/"+creds.AccountID+"/feed", params)
	if err != nil {
		return nil, err
	}
	postID, err := decodeID(res, "id")
	if err != nil {
		return nil, err
	}
	return f.withPermalink(ctx, creds, postID), nil
}

// PublishAlbum uploads each photo unpublished, in order, then creates one feed
// post attaching all of them.
func (f *Facebook) PublishAlbum(ctx context.Context, creds Credentials, imageURLs []string, message string) (*PublishResult, error) {
	attached := make([]map[string]string, 0, len(imageURLs))
	for i, u := range imageURLs {
		photoID, err := f.CreateContainer(ctx, creds, u)
		if err != nil {
			return nil, fmt.Errorf("album photo %d: %w", i+1, err)
		}
		attached = append(attached, map[string]string{"media_fbid": photoID})
	}

	params := fb.Params{"attached_media": attached}
	if message != "" {
		params["message"] = message
	}
	res, err := f.call(ctx, creds, "publish album", http.MethodPost, "/"+creds.AccountID+"/feed", params)
	if err != nil {
		return nil, err
	}
	postID, err := decodeID(res, "id")
	if err != nil {
		return nil, err
	}
	return f.withPermalink(ctx, creds, postID), nil
}

func (f *Facebook) CheckReadiness(ctx context.Context, creds Credentials, videoID string) (Readiness, string, error) {
	res, err := f.call(ctx, creds, "video status", http.MethodGet, "/"+videoID, fb.Params{"fields": "status"})
	if err != nil {
		return Processing, "", err
	}
	var status string
	if err := res.DecodeField("status.video_status", &status); err != nil {
		return Processing, "", nil
	}
	switch status {
	case "ready":
		return Ready, status, nil
	case "error":
		return Errored, status, nil
	default:
		return Processing, status, nil
	}
}

func (f *Facebook) WaitUntilReady(ctx context.Context, creds Credentials, videoID string, maxWait time.Duration) error {
	poller := Poller{Interval: f.cfg.PollInterval, MaxWait: maxWait, Sleep: f.sleep}
	res, err := poller.Poll(ctx, func(ctx context.Context) (Readiness, string, error) {
		return f.CheckReadiness(ctx, creds, videoID)
	})
	if err != nil {
		return err
	}
	switch res.Outcome {
	case PollErrored:
		return &Error{Platform: facebook, Message: "Video processing failed", Err: ErrProcessingFailed}
	case PollTimedOut:
		return &Error{
			Platform: facebook,
			Message:  fmt.Sprintf("Video processing timed out after %s", maxWait),
			Err:      ErrProcessingTimeout,
		}
	}
	return nil
}

func (f *Facebook) PostComment(ctx context.Context, creds Credentials, objectID, text string) error {
	_, err := f.call(ctx, creds, "comment", http.MethodPost, "/"+objectID+"/comments", fb.Params{"message": text})
	return err
}

func (f *Facebook) Validate(ctx context.Context, creds Credentials) error {
	_, err := f.call(ctx, creds, "validate", http.MethodGet, "/me", fb.Params{"fields": "id,name"})
	return err
}

func (f *Facebook) withPermalink(ctx context.Context, creds Credentials, objectID string) *PublishResult {
	result := &PublishResult{PlatformPostID: objectID}
	res, err := f.call(ctx, creds, "permalink", http.MethodGet, "/"+objectID, fb.Params{"fields": "permalink_url"})
	if err != nil {
		slog.Warn("unable to fetch Facebook permalink", "object_id", objectID, "error", err)
		return result
	}
	var link string
	if err := res.DecodeField("permalink_url", &link); err == nil {
		if strings.HasPrefix(link, "/") {
			link = "https://www.facebook.com" + link
		}
		result.Permalink = link
	}
	return result
}
