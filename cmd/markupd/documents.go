package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/httputil"
	"doc-markup/internal/pdfmeta"
	"doc-markup/internal/store"
)

func (a *api) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	maxFileSize := a.deps.Config.MaxUploadSize

	// Validate file size before parsing
	if r.ContentLength > maxFileSize {
		httputil.Fail(a.deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Fail(a.deps.Log, w, "file is required", err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxFileSize {
		httputil.Fail(a.deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if strings.ToLower(filepath.Ext(header.Filename)) == ".pdf" {
			contentType = "application/pdf"
		}
	}
	if contentType != "application/pdf" {
		httputil.Fail(a.deps.Log, w, "unsupported file type (only PDF allowed)", nil, http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.Fail(a.deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
		return
	}
	info, err := pdfmeta.Inspect(content)
	if err != nil {
		httputil.Fail(a.deps.Log, w, "unreadable PDF", err, http.StatusBadRequest)
		return
	}

	doc, err := a.deps.Store.CreateDocument(ctx, header.Filename, int64(len(content)), info)
	if err != nil {
		httputil.Fail(a.deps.Log, w, "failed to persist document", err, http.StatusInternalServerError)
		return
	}
	a.cacheGeometry(ctx, doc.ID, info)

	a.deps.Log.Info("document uploaded", "document_id", doc.ID, "pages", doc.PageCount, "bytes", doc.SizeBytes)
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (a *api) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := a.deps.Store.ListDocuments(r.Context())
	if err != nil {
		httputil.Fail(a.deps.Log, w, "failed to list documents", err, http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (a *api) getDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.documentID(w, r)
	if !ok {
		return
	}
	doc, err := a.deps.Store.GetDocument(r.Context(), docID)
	if err != nil {
		a.documentError(w, docID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (a *api) deleteDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.documentID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := a.deps.Store.DeleteDocument(ctx, docID); err != nil {
		a.documentError(w, docID, err)
		return
	}
	if err := a.deps.Cache.InvalidateDocument(ctx, docID); err != nil {
		a.deps.Log.Warn("failed to invalidate page geometry", "document_id", docID, "err", err)
	}
	closed := a.sessions.CloseDocument(docID)
	a.deps.Log.Info("document deleted", "document_id", docID, "sessions_closed", closed)
	w.WriteHeader(http.StatusNoContent)
}

// listAnnotations returns the exported annotations of a document. Repeated
// ?variant= parameters narrow the result.
func (a *api) listAnnotations(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.documentID(w, r)
	if !ok {
		return
	}
	var variants []annotation.Variant
	for _, raw := range r.URL.Query()["variant"] {
		v, err := annotation.ParseVariant(raw)
		if err != nil {
			httputil.Fail(a.deps.Log, w, "unknown variant", err, http.StatusBadRequest)
			return
		}
		variants = append(variants, v)
	}
	anns, err := a.deps.Store.ListAnnotations(r.Context(), docID, variants...)
	if err != nil {
		httputil.Fail(a.deps.Log, w, "failed to list annotations", err, http.StatusInternalServerError)
		return
	}
	if anns == nil {
		anns = []annotation.Annotation{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"annotations": anns,
	})
}

// pageGeometry reads a document's geometry from the cache, falling back to
// the store and repopulating the cache on a miss.
func (a *api) pageGeometry(ctx context.Context, docID uuid.UUID) (pdfmeta.Info, error) {
	cached, err := a.deps.Cache.GetPageGeometry(ctx, docID)
	if err != nil {
		a.deps.Log.Warn("page geometry cache read failed", "document_id", docID, "err", err)
	}
	if cached != nil {
		return *cached, nil
	}
	doc, err := a.deps.Store.GetDocument(ctx, docID)
	if err != nil {
		return pdfmeta.Info{}, err
	}
	info := doc.Info()
	a.cacheGeometry(ctx, docID, info)
	return info, nil
}

func (a *api) cacheGeometry(ctx context.Context, docID uuid.UUID, info pdfmeta.Info) {
	if err := a.deps.Cache.SetPageGeometry(ctx, docID, &info, a.deps.Config.CacheTTLDuration()); err != nil {
		a.deps.Log.Warn("page geometry cache write failed", "document_id", docID, "err", err)
	}
}

func (a *api) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(a.deps.Log, w, "invalid document id", err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return docID, true
}

func (a *api) documentError(w http.ResponseWriter, docID uuid.UUID, err error) {
	log := a.deps.Log.With("document_id", docID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		httputil.Fail(log, w, "document not found", err, http.StatusNotFound)
		return
	}
	httputil.Fail(log, w, "document lookup failed", err, http.StatusInternalServerError)
}
