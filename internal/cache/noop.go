package cache

import (
	"context"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/pdfmeta"
)

// NoOpCache is the fallback when Redis is disabled or unreachable: every
// operation succeeds and every lookup misses.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetPageGeometry(context.Context, uuid.UUID) (*pdfmeta.Info, error) {
	return nil, nil
}

func (c *NoOpCache) SetPageGeometry(context.Context, uuid.UUID, *pdfmeta.Info, time.Duration) error {
	return nil
}

func (c *NoOpCache) InvalidateDocument(context.Context, uuid.UUID) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
