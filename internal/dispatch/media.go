package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MediaFetcher retrieves remote payload media before upload.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, mimeType string, err error)
}

// maxMediaBytes caps a fetched attachment at 50 MiB.
const maxMediaBytes = 50 << 20

type httpMediaFetcher struct {
	client *http.Client
}

// NewMediaFetcher returns an HTTP media fetcher with the given timeout.
func NewMediaFetcher(timeout time.Duration) MediaFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpMediaFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *httpMediaFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("media fetch: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("media fetch: unexpected status %d for %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("media fetch: read: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("media fetch: %s exceeds %d bytes", url, maxMediaBytes)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
