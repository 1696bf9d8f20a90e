package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/pdfmeta"
)

// Cache keeps per-document page geometry close to markupd so opening a
// session does not hit the database.
type Cache interface {
	// GetPageGeometry returns the cached geometry, or nil on a miss.
	GetPageGeometry(ctx context.Context, docID uuid.UUID) (*pdfmeta.Info, error)

	// SetPageGeometry stores geometry with TTL.
	SetPageGeometry(ctx context.Context, docID uuid.UUID, info *pdfmeta.Info, ttl time.Duration) error

	// InvalidateDocument removes everything cached for a document.
	InvalidateDocument(ctx context.Context, docID uuid.UUID) error

	Close() error
}

const (
	// Key prefix for cached page geometry
	geometryKeyPrefix = "markup:pages:"
)

// Key returns the cache key holding docID's page geometry.
func Key(docID uuid.UUID) string {
	return geometryKeyPrefix + docID.String()
}
