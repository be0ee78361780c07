package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/brettbedarf/resultfs"
)

// Registry dispatches remote locators to the fetcher registered for their
// URL scheme. It implements [resultfs.Fetcher].
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]resultfs.Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]resultfs.Fetcher)}
}

// Register ties a fetcher to a URL scheme. The first registration of a
// scheme wins.
func (r *Registry) Register(scheme string, f resultfs.Fetcher) {
	scheme = strings.ToLower(scheme)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fetchers[scheme]; exists {
		return
	}
	r.fetchers[scheme] = f
}

// GetFetcher returns the fetcher registered for scheme
func (r *Registry) GetFetcher(scheme string) (resultfs.Fetcher, error) {
	r.mu.RLock()
	f, ok := r.fetchers[strings.ToLower(scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no fetcher for scheme %q", scheme)
	}
	return f, nil
}

func (r *Registry) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resultfs.ErrFetchFailed, err)
	}
	f, err := r.GetFetcher(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", resultfs.ErrFetchFailed, err)
	}
	return f.Fetch(ctx, locator)
}

var _ resultfs.Fetcher = (*Registry)(nil)
