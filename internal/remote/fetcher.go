// Package remote reads the launcher's published release layout: version
// manifests, AUL scripts, packages, language files and messages.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for retrieval.
var (
	// ErrConnection covers transport failures, timeouts and unexpected statuses
	ErrConnection = errors.New("connection error")
	// ErrNotFound is matched by *NotFoundError
	ErrNotFound = errors.New("not found")
)

// NotFoundError reports that the endpoint explicitly answered "not found"
type NotFoundError struct {
	URL    string
	Status int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s (HTTP %d)", e.URL, e.Status)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Fetcher retrieves the body at url. Implementations return errors matching
// ErrConnection or ErrNotFound.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher fetches over HTTP
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPFetcher creates a fetcher. A nil client gets a 30 second timeout.
func NewHTTPFetcher(httpClient *http.Client, userAgent string) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &HTTPFetcher{httpClient: httpClient, userAgent: userAgent}
}

// Fetch performs a GET and returns the body of a 2xx response
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{URL: url, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrConnection, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrConnection, err)
	}
	return body, nil
}
