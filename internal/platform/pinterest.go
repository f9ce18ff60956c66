package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jhonny218/social-media-scheduler-sub001/internal/transfer"
)

const pinterest = "pinterest"

type PinterestConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PollInterval time.Duration
	MaxWait      time.Duration
	Retry        RetryPolicy
	HTTPClient   *http.Client
}

type PinSpec struct {
	BoardID     string
	Title       string
	Description string
	Link        string
	AltText     string
}

type MediaUpload struct {
	MediaID   string
	UploadURL string
}

type Pinterest struct {
	api   *apiClient
	cfg   PinterestConfig
	sleep SleepFunc
}

func NewPinterest(cfg PinterestConfig) *Pinterest {
	p := &Pinterest{cfg: cfg, sleep: Sleep}
	p.api = &apiClient{
		platform:  pinterest,
		baseURL:   cfg.BaseURL,
		http:      httpClientOrDefault(cfg.HTTPClient),
		retry:     cfg.Retry,
		normalize: normalizePinterest,
	}
	p.api.sleep = func(ctx context.Context, d time.Duration) error { return p.sleep(ctx, d) }
	return p
}

func normalizePinterest(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	var perr transfer.PinterestError
	if len(body) > 0 && json.Unmarshal(body, &perr) == nil && perr.Message != "" {
		return &Error{Platform: pinterest, StatusCode: status, Code: perr.Code, Message: perr.Message}
	}
	return &Error{
		Platform:   pinterest,
		StatusCode: status,
		Message:    fmt.Sprintf("unexpected status code from %s: %d", pinterest, status),
	}
}

func (p *Pinterest) RegisterMediaUpload(ctx context.Context, creds Credentials) (*MediaUpload, error) {
	var result transfer.PinterestMediaUpload
	err := p.api.call(ctx, "register media", request{
		method: http.MethodPost,
		path:   "/media",
		body:   transfer.PinterestMediaUploadRequest{MediaType: "video"},
		bearer: creds.AccessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.MediaID == "" || result.UploadURL == "" {
		return nil, &Error{Platform: pinterest, Message: "Pinterest did not return a media upload target"}
	}
	return &MediaUpload{MediaID: result.MediaID, UploadURL: result.UploadURL}, nil
}

// UploadMedia sends the raw video bytes to the upload URL returned at registration.
func (p *Pinterest) UploadMedia(ctx context.Context, upload *MediaUpload, data []byte, contentType string) error {
	_, err := Retry(ctx, p.cfg.Retry, p.sleep, pinterest+".upload media", func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, upload.UploadURL, bytes.NewReader(data))
		if err != nil {
			return struct{}{}, fmt.Errorf("error creating request: %w", err)
		}
		req.ContentLength = int64(len(data))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := p.api.http.Do(req)
		if err != nil {
			return struct{}{}, transportError(pinterest, err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, &Error{
				Platform:   pinterest,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("video upload failed with status %d", resp.StatusCode),
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("%s upload media: %w", pinterest, err)
	}
	return nil
}

func (p *Pinterest) CheckReadiness(ctx context.Context, creds Credentials, mediaID string) (Readiness, string, error) {
	var status transfer.PinterestMediaStatus
	err := p.api.call(ctx, "media status", request{
		method: http.MethodGet,
		path:   "/media/" + mediaID,
		bearer: creds.AccessToken,
	}, &status)
	if err != nil {
		return Processing, "", err
	}
	switch status.Status {
	case "succeeded":
		return Ready, status.Status, nil
	case "failed":
		return Errored, status.Status, nil
	default:
		return Processing, status.Status, nil
	}
}

func (p *Pinterest) WaitUntilReady(ctx context.Context, creds Credentials, mediaID string, maxWait time.Duration) error {
	poller := Poller{Interval: p.cfg.PollInterval, MaxWait: maxWait, Sleep: p.sleep}
	res, err := poller.Poll(ctx, func(ctx context.Context) (Readiness, string, error) {
		return p.CheckReadiness(ctx, creds, mediaID)
	})
	if err != nil {
		return err
	}
	switch res.Outcome {
	case PollErrored:
		return &Error{Platform: pinterest, Message: "Video processing failed", Err: ErrProcessingFailed}
	case PollTimedOut:
		return &Error{
			Platform: pinterest,
			Message:  fmt.Sprintf("Video processing timed out after %s", maxWait),
			Err:      ErrProcessingTimeout,
		}
	}
	return nil
}

func (p *Pinterest) CreatePin(ctx context.Context, creds Credentials, pin PinSpec, source transfer.PinterestMediaSource) (*PublishResult, error) {
	var result transfer.PinterestPin
	err := p.api.call(ctx, "create pin", request{
		method: http.MethodPost,
		path:   "/pins",
		body: transfer.PinterestPinRequest{
			BoardID:     pin.BoardID,
			Title:       pin.Title,
			Description: pin.Description,
			Link:        pin.Link,
			AltText:     pin.AltText,
			MediaSource: source,
		},
		bearer: creds.AccessToken,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &Error{Platform: pinterest, Message: "no pin ID returned from Pinterest"}
	}
	return &PublishResult{
		PlatformPostID: result.ID,
		Permalink:      fmt.Sprintf("https://www.pinterest.com/pin/%s/", result.ID),
	}, nil
}

func (p *Pinterest) PublishImagePin(ctx context.Context, creds Credentials, pin PinSpec, imageURL string) (*PublishResult, error) {
	return p.CreatePin(ctx, creds, pin, transfer.PinterestMediaSource{SourceType: "image_url", URL: imageURL})
}

// PublishVideoPin registers an upload, sends the bytes, waits for Pinterest to
// finish processing and only then references the media id in a pin.
func (p *Pinterest) PublishVideoPin(ctx context.Context, creds Credentials, pin PinSpec, video []byte, contentType, coverURL string) (*PublishResult, error) {
	upload, err := p.RegisterMediaUpload(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := p.UploadMedia(ctx, upload, video, contentType); err != nil {
		return nil, err
	}
	if err := p.WaitUntilReady(ctx, creds, upload.MediaID, p.cfg.MaxWait); err != nil {
		return nil, err
	}

	source := transfer.PinterestMediaSource{SourceType: "video_id", MediaID: upload.MediaID}
	if coverURL != "" {
		source.CoverImageURL = coverURL
	} else {
		var first int64
		source.KeyFrameTime = &first
	}
	return p.CreatePin(ctx, creds, pin, source)
}

// PostComment is not offered by the Pinterest API.
func (p *Pinterest) PostComment(ctx context.Context, creds Credentials, pinID, text string) error {
	return ErrUnsupported
}

func (p *Pinterest) Validate(ctx context.Context, creds Credentials) error {
	var account transfer.PinterestUserAccount
	return p.api.call(ctx, "validate", request{
		method: http.MethodGet,
		path:   "/user_account",
		bearer: creds.AccessToken,
	}, &account)
}

// RefreshToken exchanges a refresh token for a new access token. Pinterest may
// omit the refresh token in the response; the caller keeps the old one then.
func (p *Pinterest) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimRight(p.cfg.BaseURL, "/") + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	if p.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			return nil, &Error{Platform: pinterest, StatusCode: rerr.Response.StatusCode, Message: err.Error(), Err: err}
		}
		return nil, transportError(pinterest, err)
	}
	return token, nil
}
