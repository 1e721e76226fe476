package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"iphone-price-catalog/models"
)

// JSONWriter writes the catalog document consumed by the comparison site.
// Each Write fully replaces the previous file.
type JSONWriter struct {
	path string
}

func NewJSONWriter(path string) *JSONWriter {
	return &JSONWriter{path: path}
}

// Write encodes c with two-space indentation and unescaped HTML and
// non-ASCII text, then atomically renames it over the target path.
func (w *JSONWriter) Write(c *models.Catalog) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+"-*")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: encode: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("json: replace %q: %w", w.path, err)
	}
	return nil
}

func (w *JSONWriter) Close() error { return nil }
