package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockQueue records export tasks handed to the queue.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	return m.Called(ctx, taskType, handler).Error(0)
}

// ExpectExport expects one export task for the document and session whose
// payload satisfies match, which may be nil.
func (m *MockQueue) ExpectExport(docID, sessionID uuid.UUID, match func(ExportPayload) bool) *mock.Call {
	return m.On("Enqueue", mock.Anything, mock.MatchedBy(func(task Task) bool {
		p, err := DecodeExport(task)
		if err != nil || p.DocumentID != docID || p.SessionID != sessionID {
			return false
		}
		return match == nil || match(p)
	})).Once()
}
