package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/pdfmeta"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidAnnotation = errors.New("invalid annotation")
)

// Document is an uploaded PDF and its page geometry. The file bytes are not
// kept; the viewer renders from its own copy.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	Filename  string         `json:"filename"`
	SizeBytes int64          `json:"size_bytes"`
	PageCount int            `json:"page_count"`
	Pages     []pdfmeta.Page `json:"pages"`
	CreatedAt time.Time      `json:"created_at"`
}

// Info returns the document's page geometry.
func (d Document) Info() pdfmeta.Info {
	return pdfmeta.Info{PageCount: d.PageCount, Pages: d.Pages}
}

// Store defines persistence for documents and exported annotation sets.
type Store interface {
	CreateDocument(ctx context.Context, filename string, size int64, info pdfmeta.Info) (Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	// SaveAnnotations replaces the annotations exported by one session. A
	// malformed annotation fails the whole set with ErrInvalidAnnotation.
	SaveAnnotations(ctx context.Context, docID, sessionID uuid.UUID, anns []annotation.Annotation) error
	// ListAnnotations returns every exported annotation of a document,
	// optionally limited to the given variants, ordered by page then
	// creation time.
	ListAnnotations(ctx context.Context, docID uuid.UUID, variants ...annotation.Variant) ([]annotation.Annotation, error)
	Close() error
}
