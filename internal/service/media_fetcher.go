package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/sethgrid/pester"
)

type ObjectDownloader interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// MediaFetcher loads media bytes for flows that upload content instead of
// handing the platform a URL. Stored objects come straight from the bucket;
// anything else is fetched over HTTP with retries.
type MediaFetcher struct {
	storage ObjectDownloader
	client  *pester.Client
}

func NewMediaFetcher(storage ObjectDownloader, hc *http.Client) *MediaFetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	client := pester.NewExtendedClient(hc)
	client.MaxRetries = 3
	client.Backoff = pester.ExponentialJitterBackoff
	client.KeepLog = true

	return &MediaFetcher{storage: storage, client: client}
}

func (f *MediaFetcher) Fetch(ctx context.Context, m ResolvedMedia) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
		err         error
	)
	if f.storage != nil && m.StoragePath != "" {
		data, contentType, err = f.storage.Download(ctx, m.StoragePath)
	} else {
		data, contentType, err = f.get(ctx, m.FetchURL)
	}
	if err != nil {
		return nil, "", err
	}

	if contentType == "" || contentType == "application/octet-stream" || contentType == "binary/octet-stream" {
		kind, err := filetype.Match(data)
		if err != nil || kind == types.Unknown {
			return nil, "", errors.New("unable to detect media type")
		}
		contentType = kind.MIME.Value
	}
	return data, contentType, nil
}

func (f *MediaFetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error creating request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching media: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading media: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
