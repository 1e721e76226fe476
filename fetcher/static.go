package fetcher

import (
	"context"
	"fmt"
)

// Page is a canned response served by Static.
type Page struct {
	Title string
	HTML  string
}

// Static serves pages from memory. It records every request it receives.
type Static struct {
	pages    map[string]Page
	Requests []Request
}

// NewStatic creates a Static fetcher over pages keyed by URL.
func NewStatic(pages map[string]Page) *Static {
	return &Static{pages: pages}
}

func (s *Static) Fetch(ctx context.Context, req Request) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Requests = append(s.Requests, req)

	page, ok := s.pages[req.URL]
	if !ok {
		return nil, fmt.Errorf("%w: %s: not found", ErrNavigation, req.URL)
	}
	return NewDocument(req.URL, page.Title, page.HTML)
}

// Visited returns the requested URLs in order.
func (s *Static) Visited() []string {
	urls := make([]string, len(s.Requests))
	for i, r := range s.Requests {
		urls[i] = r.URL
	}
	return urls
}
