package storage

import "iphone-price-catalog/models"

// CatalogWriter is the interface any catalog storage backend must satisfy.
type CatalogWriter interface {
	Write(c *models.Catalog) error
	Close() error
}
