package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeExport TaskType = "export"
)

// DefaultMaxAttempts bounds redelivery when a task does not set its own limit.
const DefaultMaxAttempts = 5

var ErrInvalidPayload = errors.New("invalid task payload")

// Task represents a unit of work handed from markupd to the exporter.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// ExportPayload is the body of an export task: the full annotation set a
// session held when it was exported.
type ExportPayload struct {
	DocumentID  uuid.UUID               `json:"document_id"`
	SessionID   uuid.UUID               `json:"session_id"`
	Annotations []annotation.Annotation `json:"annotations"`
}

// NewExportTask wraps p in an export task.
func NewExportTask(p ExportPayload) (Task, error) {
	if p.DocumentID == uuid.Nil || p.SessionID == uuid.Nil {
		return Task{}, fmt.Errorf("%w: document and session ids required", ErrInvalidPayload)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Task{}, fmt.Errorf("encode export payload: %w", err)
	}
	return Task{ID: uuid.New(), Type: TaskTypeExport, Payload: body, MaxAttempts: DefaultMaxAttempts}, nil
}

// DecodeExport reads the export payload carried by t.
func DecodeExport(t Task) (ExportPayload, error) {
	if t.Type != TaskTypeExport {
		return ExportPayload{}, fmt.Errorf("%w: task type %q", ErrInvalidPayload, t.Type)
	}
	var p ExportPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return ExportPayload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.DocumentID == uuid.Nil || p.SessionID == uuid.Nil {
		return ExportPayload{}, fmt.Errorf("%w: document and session ids required", ErrInvalidPayload)
	}
	return p, nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	return retry.Do(ctx, attempts, base, func(ctx context.Context) error {
		return q.Enqueue(ctx, task)
	})
}
