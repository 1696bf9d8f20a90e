package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-markup/internal/annotation"
	"doc-markup/internal/app"
	"doc-markup/internal/logger"
	"doc-markup/internal/queue"
	"doc-markup/internal/store"
)

func exportTask(t *testing.T, docID, sessionID uuid.UUID, anns ...annotation.Annotation) queue.Task {
	t.Helper()
	task, err := queue.NewExportTask(queue.ExportPayload{DocumentID: docID, SessionID: sessionID, Annotations: anns})
	require.NoError(t, err)
	return task
}

func TestExportHandler(t *testing.T) {
	docID, sessionID := uuid.New(), uuid.New()
	sig := annotation.Annotation{ID: uuid.New(), PageNumber: 1, Width: 200, Height: 80}
	sig.SetPayload(annotation.Signature{ImageData: "data:image/png;base64,AAAA"})

	tests := []struct {
		name    string
		task    queue.Task
		setup   func(*store.MockStore)
		wantErr bool
	}{
		{
			name: "saves annotations",
			task: exportTask(t, docID, sessionID, sig),
			setup: func(s *store.MockStore) {
				s.On("SaveAnnotations", mock.Anything, docID, sessionID,
					mock.MatchedBy(func(anns []annotation.Annotation) bool {
						return len(anns) == 1 && anns[0].ID == sig.ID && anns[0].Signature != nil
					})).Return(nil).Once()
			},
		},
		{
			name: "empty set clears the session export",
			task: exportTask(t, docID, sessionID),
			setup: func(s *store.MockStore) {
				s.On("SaveAnnotations", mock.Anything, docID, sessionID, mock.Anything).Return(nil).Once()
			},
		},
		{
			name: "transient failure is retried",
			task: exportTask(t, docID, sessionID, sig),
			setup: func(s *store.MockStore) {
				s.On("SaveAnnotations", mock.Anything, docID, sessionID, mock.Anything).Return(errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name: "deleted document is dropped",
			task: exportTask(t, docID, sessionID, sig),
			setup: func(s *store.MockStore) {
				s.On("SaveAnnotations", mock.Anything, docID, sessionID, mock.Anything).Return(store.ErrDocumentNotFound).Once()
			},
		},
		{
			name: "invalid annotation is dropped",
			task: exportTask(t, docID, sessionID, sig),
			setup: func(s *store.MockStore) {
				err := fmt.Errorf("%w: page number must be >= 1, got 0", store.ErrInvalidAnnotation)
				s.On("SaveAnnotations", mock.Anything, docID, sessionID, mock.Anything).Return(err).Once()
			},
		},
		{
			name: "malformed payload is dropped",
			task: queue.Task{ID: uuid.New(), Type: queue.TaskTypeExport, Payload: []byte("{")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(store.MockStore)
			if tt.setup != nil {
				tt.setup(st)
			}
			handler := exportHandler(app.Deps{Store: st, Log: logger.Discard()})

			err := handler(context.Background(), tt.task)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			st.AssertExpectations(t)
		})
	}
}
