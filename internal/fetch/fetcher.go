// Package fetch provides the scoped HTTP client used by the crawler.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent identifies the crawler to target hosts.
const DefaultUserAgent = "migration-kb-bot/0.1 (+https://github.com/bull/migration-kb)"

// Error describes a failed fetch. StatusCode is zero for transport
// failures (DNS, connection, timeout). Callers treat any fetch error
// as non-fatal: skip the URL and continue the crawl.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves raw page bodies over HTTP(S). It performs no
// retries itself; retry policy belongs to the caller.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher with the given timeout and user agent.
// Zero values fall back to the package defaults.
func New(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewWithClient creates a Fetcher around a caller-supplied http.Client,
// allowing tests to inject a transport.
func NewWithClient(client *http.Client, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch retrieves the body of url. Non-2xx responses and transport
// failures return a *Error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: url, Err: err}
	}
	return string(body), nil
}
