// Package fetcher retrieves carrier pages and exposes them as queryable
// documents. All implementations are used serially: at most one fetch is
// ever outstanding.
package fetcher

import (
	"context"
	"errors"
	"time"

	"iphone-price-catalog/utils"
)

// ErrNavigation is returned when a page could not be retrieved.
var ErrNavigation = errors.New("navigation failed")

// Request describes one page fetch.
type Request struct {
	URL string

	// Settle is how long to wait after navigation for client-side rendering.
	Settle time.Duration

	// TitleReady, when set, is polled against the document title until it
	// reports true or the poll budget is exhausted.
	TitleReady func(title string) bool
}

// Fetcher returns the rendered document for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Document, error)
}

// Throttled enforces a minimum interval between fetches of the wrapped
// Fetcher.
type Throttled struct {
	next     Fetcher
	throttle *utils.Throttle
}

// NewThrottled wraps next so consecutive fetches are at least intervalMs
// apart.
func NewThrottled(next Fetcher, intervalMs int) *Throttled {
	return &Throttled{next: next, throttle: utils.NewThrottle(intervalMs)}
}

func (t *Throttled) Fetch(ctx context.Context, req Request) (*Document, error) {
	t.throttle.Wait()
	return t.next.Fetch(ctx, req)
}
