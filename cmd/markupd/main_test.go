package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-markup/internal/annotation"
	"doc-markup/internal/app"
	"doc-markup/internal/auth"
	"doc-markup/internal/cache"
	"doc-markup/internal/config"
	"doc-markup/internal/logger"
	"doc-markup/internal/pdfmeta"
	"doc-markup/internal/queue"
	"doc-markup/internal/render"
	"doc-markup/internal/session"
	"doc-markup/internal/store"
	"doc-markup/internal/textlayout"
)

type harness struct {
	st     *store.MockStore
	q      *queue.MockQueue
	c      *cache.MockCache
	api    *api
	server *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{st: new(store.MockStore), q: new(queue.MockQueue), c: new(cache.MockCache)}
	deps := app.Deps{
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
			CacheTTL:      60,
		},
		Log:   logger.Discard(),
		Store: h.st,
		Queue: h.q,
		Cache: h.c,
	}
	tokens, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	renderer := render.New(deps.Log, textlayout.Default())

	h.api = &api{deps: deps, sessions: session.NewManager(deps.Log, renderer, 0), tokens: tokens}
	h.server = httptest.NewServer(h.api.routes())
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.server.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// openSession opens a session on a two-page document served from the cache.
func (h *harness) openSession(t *testing.T) (openSessionResponse, uuid.UUID) {
	t.Helper()
	docID := uuid.New()
	info := &pdfmeta.Info{PageCount: 2, Pages: []pdfmeta.Page{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 612, Height: 792},
	}}
	h.c.On("GetPageGeometry", mock.Anything, docID).Return(info, nil).Once()

	resp := h.do(t, http.MethodPost, "/api/documents/"+docID.String()+"/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[openSessionResponse](t, resp), docID
}

func minimalPDF(pages int) []byte {
	var objs []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 595 842] >>", kids, pages),
	)
	for i := 0; i < pages; i++ {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R >>")
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	docID := uuid.New()

	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		setup       func(*store.MockStore, *cache.MockCache)
		wantStatus  int
	}{
		{
			name:        "successful upload",
			filename:    "contract.pdf",
			contentType: "application/pdf",
			content:     minimalPDF(3),
			setup: func(s *store.MockStore, c *cache.MockCache) {
				s.On("CreateDocument", mock.Anything, "contract.pdf", mock.AnythingOfType("int64"),
					mock.MatchedBy(func(info pdfmeta.Info) bool { return info.PageCount == 3 })).
					Return(store.Document{ID: docID, Filename: "contract.pdf", PageCount: 3}, nil).Once()
				c.On("SetPageGeometry", mock.Anything, docID, mock.Anything, 60*time.Second).Return(nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "content type inferred from extension",
			filename:   "scan.PDF",
			content:    minimalPDF(1),
			wantStatus: http.StatusCreated,
			setup: func(s *store.MockStore, c *cache.MockCache) {
				s.On("CreateDocument", mock.Anything, "scan.PDF", mock.Anything, mock.Anything).
					Return(store.Document{ID: docID, PageCount: 1}, nil).Once()
				c.On("SetPageGeometry", mock.Anything, docID, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
			},
		},
		{
			name:        "file too large",
			filename:    "large.pdf",
			contentType: "application/pdf",
			content:     make([]byte, 2*1024*1024),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "not a pdf",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("hello"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "corrupt pdf",
			filename:    "broken.pdf",
			contentType: "application/pdf",
			content:     []byte("%PDF-1.4 garbage"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "store failure",
			filename:    "contract.pdf",
			contentType: "application/pdf",
			content:     minimalPDF(1),
			setup: func(s *store.MockStore, _ *cache.MockCache) {
				s.On("CreateDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(store.Document{}, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(h.st, h.c)
			}
			body, ct := multipartUpload(t, tt.filename, tt.contentType, tt.content)
			resp, err := http.Post(h.server.URL+"/api/documents", ct, body)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			h.st.AssertExpectations(t)
			h.c.AssertExpectations(t)
		})
	}
}

func TestGetDocument(t *testing.T) {
	h := newHarness(t)
	known, missing := uuid.New(), uuid.New()
	h.st.On("GetDocument", mock.Anything, known).Return(store.Document{ID: known, Filename: "a.pdf", PageCount: 1}, nil)
	h.st.On("GetDocument", mock.Anything, missing).Return(store.Document{}, store.ErrDocumentNotFound)

	resp := h.do(t, http.MethodGet, "/api/documents/"+known.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, known, decode[store.Document](t, resp).ID)

	resp = h.do(t, http.MethodGet, "/api/documents/"+missing.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/documents/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDocumentsEmpty(t *testing.T) {
	h := newHarness(t)
	h.st.On("ListDocuments", mock.Anything).Return(nil, nil)

	resp := h.do(t, http.MethodGet, "/api/documents", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string][]store.Document](t, resp)
	assert.NotNil(t, body["documents"])
	assert.Empty(t, body["documents"])
}

func TestDeleteDocumentClosesSessions(t *testing.T) {
	h := newHarness(t)
	opened, docID := h.openSession(t)
	h.st.On("DeleteDocument", mock.Anything, docID).Return(nil).Once()
	h.c.On("InvalidateDocument", mock.Anything, docID).Return(nil).Once()

	resp := h.do(t, http.MethodDelete, "/api/documents/"+docID.String(), "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/sessions/"+opened.SessionID.String()+"/state", opened.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	h.st.AssertExpectations(t)
	h.c.AssertExpectations(t)
}

func TestListAnnotationsFiltersVariants(t *testing.T) {
	h := newHarness(t)
	docID := uuid.New()
	h.st.On("ListAnnotations", mock.Anything, docID,
		[]annotation.Variant{annotation.VariantSignature, annotation.VariantTextArea}).
		Return([]annotation.Annotation{}, nil).Once()

	resp := h.do(t, http.MethodGet, "/api/documents/"+docID.String()+"/annotations?variant=signature&variant=text-area", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/documents/"+docID.String()+"/annotations?variant=sticker", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	h.st.AssertExpectations(t)
}

func TestOpenSessionFallsBackToStore(t *testing.T) {
	h := newHarness(t)
	docID := uuid.New()
	doc := store.Document{ID: docID, PageCount: 1, Pages: []pdfmeta.Page{{Number: 1, Width: 612, Height: 792}}}
	h.c.On("GetPageGeometry", mock.Anything, docID).Return(nil, nil).Once()
	h.st.On("GetDocument", mock.Anything, docID).Return(doc, nil).Once()
	h.c.On("SetPageGeometry", mock.Anything, docID, &pdfmeta.Info{PageCount: 1, Pages: doc.Pages}, 60*time.Second).Return(nil).Once()

	resp := h.do(t, http.MethodPost, "/api/documents/"+docID.String()+"/sessions", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	opened := decode[openSessionResponse](t, resp)
	assert.NotEmpty(t, opened.Token)
	assert.Equal(t, 1, opened.State.Pages)
	h.st.AssertExpectations(t)
	h.c.AssertExpectations(t)
}

func TestOpenSessionUnknownDocument(t *testing.T) {
	h := newHarness(t)
	docID := uuid.New()
	h.c.On("GetPageGeometry", mock.Anything, docID).Return(nil, errors.New("redis down")).Once()
	h.st.On("GetDocument", mock.Anything, docID).Return(store.Document{}, store.ErrDocumentNotFound).Once()

	resp := h.do(t, http.MethodPost, "/api/documents/"+docID.String()+"/sessions", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, h.api.sessions.Len())
}

func TestSessionAuth(t *testing.T) {
	h := newHarness(t)
	first, _ := h.openSession(t)
	second, _ := h.openSession(t)
	path := "/api/sessions/" + first.SessionID.String() + "/state"

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"valid token", path, first.Token, http.StatusOK},
		{"missing token", path, "", http.StatusUnauthorized},
		{"garbage token", path, "abc", http.StatusUnauthorized},
		{"token for another session", path, second.Token, http.StatusForbidden},
		{"bad session id", "/api/sessions/xyz/state", first.Token, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestPlaceTextAreaAndExport(t *testing.T) {
	h := newHarness(t)
	opened, docID := h.openSession(t)
	base := "/api/sessions/" + opened.SessionID.String()
	tok := opened.Token

	resp := h.do(t, http.MethodPut, base+"/surface", tok, session.Surface{Page: 2, Scale: 2, ContainerWidth: 1224, ContainerHeight: 1584})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodPost, base+"/tools/text-area", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[session.Snapshot](t, resp)
	require.NotNil(t, state.Status.Tool)
	assert.Equal(t, annotation.VariantTextArea, *state.Status.Tool)

	// Commit without a pending step conflicts.
	resp = h.do(t, http.MethodPost, base+"/commit", tok, map[string]any{"payload": map[string]any{"text": "x"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.do(t, http.MethodPost, base+"/pointer", tok, map[string]any{"type": "down", "x": 200, "y": 300})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pr := decode[pointerResponse](t, resp)
	require.NotNil(t, pr.Result)
	assert.Equal(t, session.TargetBackground, pr.Result.Target)
	require.NotNil(t, pr.State.Pending)
	assert.Equal(t, 100.0, pr.State.Pending.Point.X)
	assert.Equal(t, 150.0, pr.State.Pending.Point.Y)

	resp = h.do(t, http.MethodGet, base+"/render", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[session.PageRender](t, resp)
	assert.Empty(t, page.Visuals)
	require.NotNil(t, page.Placement)

	resp = h.do(t, http.MethodPost, base+"/commit", tok, map[string]any{
		"payload": map[string]any{"text": "Approved", "font_size": 12, "color": "#000000", "align": "left"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	committed := decode[commitResponse](t, resp)
	assert.NotEqual(t, uuid.Nil, committed.ID)
	assert.Equal(t, 1, committed.State.Count)

	resp = h.do(t, http.MethodGet, base+"/render", tok, nil)
	page = decode[session.PageRender](t, resp)
	require.Len(t, page.Visuals, 1)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 200.0, page.Visuals[0].Frame.X)
	assert.NotNil(t, page.Visuals[0].Selection)

	h.q.ExpectExport(docID, opened.SessionID, func(p queue.ExportPayload) bool {
		return len(p.Annotations) == 1 && p.Annotations[0].ID == committed.ID
	}).Return(nil)

	resp = h.do(t, http.MethodPost, base+"/export", tok, nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	h.q.AssertExpectations(t)
}

func TestEditAndDelete(t *testing.T) {
	h := newHarness(t)
	opened, _ := h.openSession(t)
	base := "/api/sessions/" + opened.SessionID.String()
	tok := opened.Token

	resp := h.do(t, http.MethodPost, base+"/edit", tok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing selected")

	h.do(t, http.MethodPost, base+"/tools/highlight-area", tok, nil)
	h.do(t, http.MethodPost, base+"/pointer", tok, map[string]any{"type": "down", "x": 10, "y": 10})
	resp = h.do(t, http.MethodPost, base+"/commit", tok, map[string]any{
		"payload": map[string]any{"color": "#ffeb3b", "opacity": 0.4, "shape": "rectangle"},
		"width":   120,
		"height":  30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := decode[commitResponse](t, resp).ID

	resp = h.do(t, http.MethodPost, base+"/edit", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	req := decode[map[string]any](t, resp)
	assert.Equal(t, id.String(), req["editing_id"])

	resp = h.do(t, http.MethodPost, base+"/commit", tok, map[string]any{
		"payload": map[string]any{"color": "#00ff00", "opacity": 0.4, "shape": "ellipse"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decode[commitResponse](t, resp).ID)

	resp = h.do(t, http.MethodDelete, base+"/annotations/"+id.String(), tok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, base+"/annotations/"+id.String(), tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	opened, _ := h.openSession(t)
	base := "/api/sessions/" + opened.SessionID.String()
	tok := opened.Token

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"surface page out of range", http.MethodPut, "/surface", session.Surface{Page: 5, Scale: 1}, http.StatusBadRequest},
		{"surface zero scale", http.MethodPut, "/surface", map[string]any{"page": 1, "scale": 0}, http.StatusBadRequest},
		{"unknown tool", http.MethodPost, "/tools/sticker", nil, http.StatusBadRequest},
		{"toolbar missing flag", http.MethodPost, "/toolbar", map[string]any{}, http.StatusBadRequest},
		{"toolbar collapse", http.MethodPost, "/toolbar", map[string]any{"collapsed": true}, http.StatusOK},
		{"pointer bad type", http.MethodPost, "/pointer", map[string]any{"type": "hover"}, http.StatusBadRequest},
		{"pointer cancel", http.MethodPost, "/pointer", map[string]any{"type": "cancel"}, http.StatusOK},
		{"cancel", http.MethodPost, "/cancel", nil, http.StatusOK},
		{"delete bad id", http.MethodDelete, "/annotations/zzz", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.do(t, tt.method, base+tt.path, tok, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestExportEnqueueFailure(t *testing.T) {
	h := newHarness(t)
	opened, _ := h.openSession(t)
	h.q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("nats down"))

	resp := h.do(t, http.MethodPost, "/api/sessions/"+opened.SessionID.String()+"/export", opened.Token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	h.q.AssertNumberOfCalls(t, "Enqueue", 3)
}

func TestCloseSession(t *testing.T) {
	h := newHarness(t)
	opened, _ := h.openSession(t)
	path := "/api/sessions/" + opened.SessionID.String()

	resp := h.do(t, http.MethodDelete, path, opened.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = h.do(t, http.MethodDelete, path, opened.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(b), "ok"))
}
