package downloader

import (
	"context"
	"io"
	"net/http"
	"time"

	errs "gallerygrab/pkg/errors"
)

// Fetcher retrieves a media payload by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// HTTPFetcher fetches payloads over plain HTTP.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with connection reuse across workers.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads a URL within the given timeout. Non-2xx statuses are
// mapped to the error taxonomy so the retry predicate can distinguish
// transient from permanent failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeDownload, "build request for %s: %v", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, errs.New(errs.ErrorTypeNetwork, "fetch %s timed out", url)
		}
		return nil, errs.New(errs.ErrorTypeNetwork, "fetch %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewWithCode(errs.TypeForStatusCode(resp.StatusCode), resp.StatusCode,
			"fetch %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, "read body of %s: %v", url, err)
	}

	return data, nil
}
