package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Credentials are the decrypted values an adapter needs to act for an account.
type Credentials struct {
	AccessToken string
	AccountID   string
}

type PublishResult struct {
	PlatformPostID string
	Permalink      string
}

// normalizeFunc turns a raw response into the platform's Error, or nil on success.
type normalizeFunc func(status int, body []byte) error

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
}

// apiClient is the JSON-over-HTTPS transport shared by the REST adapters.
type apiClient struct {
	platform  string
	baseURL   string
	http      *http.Client
	retry     RetryPolicy
	sleep     SleepFunc
	normalize normalizeFunc
}

func (c *apiClient) url(path string, query url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *apiClient) call(ctx context.Context, op string, req request, out any) error {
	_, err := Retry(ctx, c.retry, c.sleep, c.platform+"."+op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.once(ctx, req, out)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", c.platform, op, err)
	}
	return nil
}

func (c *apiClient) once(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("error marshalling payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path, r.query), body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(c.platform, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Platform: c.platform, StatusCode: resp.StatusCode, Message: "error reading response body: " + err.Error(), Err: err}
	}

	if err := c.normalize(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Platform: c.platform, StatusCode: resp.StatusCode, Message: "error parsing response: " + err.Error(), Err: err}
	}
	return nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
