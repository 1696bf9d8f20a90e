package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"doc-markup/internal/annotation"
	"doc-markup/internal/pdfmeta"
	"doc-markup/internal/retry"
)

type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens the database, waiting briefly for it to accept
// connections, and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := retry.Do(ctx, 5, 500*time.Millisecond, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock so markupd and the exporter do not migrate concurrently.
	const lockID = 726172757001

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			page_count INT NOT NULL,
			page_widths FLOAT8[] NOT NULL DEFAULT '{}',
			page_heights FLOAT8[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS annotations (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			session_id UUID NOT NULL,
			variant TEXT NOT NULL,
			page_number INT NOT NULL,
			x FLOAT8 NOT NULL,
			y FLOAT8 NOT NULL,
			width FLOAT8 NOT NULL CHECK (width > 0),
			height FLOAT8 NOT NULL CHECK (height > 0),
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			exported_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS annotations_document_page_idx ON annotations (document_id, page_number)`,
		`CREATE INDEX IF NOT EXISTS annotations_session_idx ON annotations (session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, filename string, size int64, info pdfmeta.Info) (Document, error) {
	widths, heights := splitSizes(info.Pages)
	doc := Document{
		ID:        uuid.New(),
		Filename:  filename,
		SizeBytes: size,
		PageCount: info.PageCount,
		Pages:     info.Pages,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents(id, filename, size_bytes, page_count, page_widths, page_heights)
		VALUES($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		doc.ID, filename, size, info.PageCount, pq.Array(widths), pq.Array(heights),
	).Scan(&doc.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

const documentColumns = `id, filename, size_bytes, page_count, page_widths, page_heights, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc             Document
		widths, heights []float64
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.SizeBytes, &doc.PageCount,
		pq.Array(&widths), pq.Array(&heights), &doc.CreatedAt); err != nil {
		return Document{}, err
	}
	doc.Pages = joinSizes(doc.PageCount, widths, heights)
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id uuid.UUID) (Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) SaveAnnotations(ctx context.Context, docID, sessionID uuid.UUID, anns []annotation.Annotation) error {
	if err := validateAnnotations(anns); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id=$1)`, docID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrDocumentNotFound
	}

	keep := make([]string, 0, len(anns))
	for _, a := range anns {
		keep = append(keep, a.ID.String())
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM annotations
		WHERE document_id=$1 AND session_id=$2 AND NOT (id = ANY($3::uuid[]))`,
		docID, sessionID, pq.StringArray(keep)); err != nil {
		return fmt.Errorf("prune annotations: %w", err)
	}

	for _, a := range anns {
		payload, err := json.Marshal(a.Payload())
		if err != nil {
			return fmt.Errorf("marshal payload for %s: %w", a.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO annotations(id, document_id, session_id, variant, page_number, x, y, width, height, payload, created_at)
			VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (id) DO UPDATE SET
				page_number=excluded.page_number, x=excluded.x, y=excluded.y,
				width=excluded.width, height=excluded.height, payload=excluded.payload,
				exported_at=now()`,
			a.ID, docID, sessionID, string(a.Variant), a.PageNumber, a.X, a.Y, a.Width, a.Height, payload, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("upsert annotation %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListAnnotations(ctx context.Context, docID uuid.UUID, variants ...annotation.Variant) ([]annotation.Annotation, error) {
	filter := make([]string, 0, len(variants))
	for _, v := range variants {
		filter = append(filter, string(v))
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, variant, page_number, x, y, width, height, payload, created_at
		FROM annotations
		WHERE document_id=$1 AND (cardinality($2::text[]) = 0 OR variant = ANY($2::text[]))
		ORDER BY page_number, created_at`,
		docID, pq.StringArray(filter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []annotation.Annotation{}
	for rows.Next() {
		var (
			a       annotation.Annotation
			variant string
			payload []byte
		)
		if err := rows.Scan(&a.ID, &variant, &a.PageNumber, &a.X, &a.Y, &a.Width, &a.Height, &payload, &a.CreatedAt); err != nil {
			return nil, err
		}
		p, err := annotation.DecodePayload(annotation.Variant(variant), payload)
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		a.SetPayload(p)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func splitSizes(pages []pdfmeta.Page) (widths, heights []float64) {
	widths = make([]float64, len(pages))
	heights = make([]float64, len(pages))
	for i, p := range pages {
		widths[i], heights[i] = p.Width, p.Height
	}
	return widths, heights
}

// joinSizes rebuilds per-page sizes; pages missing from the arrays get the
// default size.
func joinSizes(count int, widths, heights []float64) []pdfmeta.Page {
	pages := make([]pdfmeta.Page, count)
	for i := range pages {
		pages[i] = pdfmeta.Page{Number: i + 1, Width: pdfmeta.DefaultWidth, Height: pdfmeta.DefaultHeight}
		if i < len(widths) && i < len(heights) && widths[i] > 0 && heights[i] > 0 {
			pages[i].Width, pages[i].Height = widths[i], heights[i]
		}
	}
	return pages
}

// validateAnnotations rejects the whole set when any annotation is
// malformed, before anything is written.
func validateAnnotations(anns []annotation.Annotation) error {
	for _, a := range anns {
		if a.ID == uuid.Nil {
			return fmt.Errorf("%w: missing id", ErrInvalidAnnotation)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAnnotation, a.ID, err)
		}
	}
	return nil
}
