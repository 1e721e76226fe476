package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"iphone-price-catalog/utils"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Recorder writes every successfully fetched page to a directory so live
// markup can be inspected when a selector or pattern stops matching.
type Recorder struct {
	next   Fetcher
	dir    string
	logger *utils.Logger
}

// NewRecorder wraps next, dumping pages into dir.
func NewRecorder(next Fetcher, dir string, logger *utils.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("recorder: create dump dir: %w", err)
	}
	return &Recorder{next: next, dir: dir, logger: logger}, nil
}

func (r *Recorder) Fetch(ctx context.Context, req Request) (*Document, error) {
	doc, err := r.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, DumpFileName(req.URL))
	if werr := os.WriteFile(path, []byte(doc.Content()), 0644); werr != nil {
		r.logger.Warn("[fetcher] Failed to dump %s: %v", req.URL, werr)
	}
	return doc, nil
}

// DumpFileName maps a URL to a flat, filesystem-safe file name.
func DumpFileName(rawURL string) string {
	name := strings.TrimPrefix(rawURL, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = "page"
	}
	return name + ".html"
}
