package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doc-markup/internal/annotation"
	"doc-markup/internal/pdfmeta"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateDocument(ctx context.Context, filename string, size int64, info pdfmeta.Info) (Document, error) {
	args := m.Called(ctx, filename, size, info)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) ListDocuments(ctx context.Context) ([]Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) SaveAnnotations(ctx context.Context, docID, sessionID uuid.UUID, anns []annotation.Annotation) error {
	args := m.Called(ctx, docID, sessionID, anns)
	return args.Error(0)
}

func (m *MockStore) ListAnnotations(ctx context.Context, docID uuid.UUID, variants ...annotation.Variant) ([]annotation.Annotation, error) {
	args := m.Called(ctx, docID, variants)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]annotation.Annotation), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
