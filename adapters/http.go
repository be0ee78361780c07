package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/brettbedarf/resultfs"
)

type HTTPMethod = string

const HTTPMethodGet HTTPMethod = "GET"

// HTTPDoer is the subset of *http.Client the fetcher needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFetcher implements [resultfs.Fetcher] for http(s) locators
type HTTPFetcher struct {
	client  HTTPDoer
	headers map[string]string
}

// NewHTTPFetcher returns a fetcher using client, or http.DefaultClient when
// nil. headers are added to every request.
func NewHTTPFetcher(client HTTPDoer, headers map[string]string) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, headers: headers}
}

func (h *HTTPFetcher) newRequest(ctx context.Context, method HTTPMethod, locator string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, locator, nil)
	if err != nil {
		return nil, err
	}

	// Add custom headers
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Fetch downloads the whole resource. Non 2xx answers fail.
func (h *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := h.newRequest(ctx, HTTPMethodGet, locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resultfs.ErrFetchFailed, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resultfs.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", resultfs.ErrFetchFailed, locator, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resultfs.ErrFetchFailed, err)
	}
	return data, nil
}

var _ resultfs.Fetcher = (*HTTPFetcher)(nil)
