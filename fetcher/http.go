package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTP fetches pages with plain GET requests. It does not execute scripts,
// so it only suits pages that render their prices server-side.
type HTTP struct {
	client *resty.Client
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(timeout time.Duration, userAgent string) *HTTP {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept-Language", "ja-JP,ja;q=0.9")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &HTTP{client: client}
}

func (h *HTTP) Fetch(ctx context.Context, req Request) (*Document, error) {
	resp, err := h.client.R().SetContext(ctx).Get(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, req.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrNavigation, req.URL, resp.StatusCode())
	}
	return NewDocument(req.URL, "", resp.String())
}
