package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doc-markup/internal/pdfmeta"
)

// MockCache is a mock implementation of the Cache interface for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetPageGeometry(ctx context.Context, docID uuid.UUID) (*pdfmeta.Info, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pdfmeta.Info), args.Error(1)
}

func (m *MockCache) SetPageGeometry(ctx context.Context, docID uuid.UUID, info *pdfmeta.Info, ttl time.Duration) error {
	args := m.Called(ctx, docID, info, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateDocument(ctx context.Context, docID uuid.UUID) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
