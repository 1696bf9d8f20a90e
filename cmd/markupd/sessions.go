package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
	"doc-markup/internal/httputil"
	"doc-markup/internal/interaction"
	"doc-markup/internal/pdfmeta"
	"doc-markup/internal/queue"
	"doc-markup/internal/session"
)

type sessionKey struct{}

type openSessionResponse struct {
	SessionID uuid.UUID        `json:"session_id"`
	Token     string           `json:"token"`
	Pages     []pdfmeta.Page   `json:"pages"`
	State     session.Snapshot `json:"state"`
}

type toolbarRequest struct {
	Collapsed *bool `json:"collapsed" validate:"required"`
}

type pointerRequest struct {
	Type string  `json:"type" validate:"required,oneof=down move up cancel"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type pointerResponse struct {
	Result *session.PointerResult `json:"result,omitempty"`
	State  session.Snapshot       `json:"state"`
}

type commitRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
	Width   float64         `json:"width" validate:"gte=0"`
	Height  float64         `json:"height" validate:"gte=0"`
}

type commitResponse struct {
	ID    uuid.UUID        `json:"id"`
	State session.Snapshot `json:"state"`
}

func (a *api) openSession(w http.ResponseWriter, r *http.Request) {
	docID, ok := a.documentID(w, r)
	if !ok {
		return
	}
	info, err := a.pageGeometry(r.Context(), docID)
	if err != nil {
		a.documentError(w, docID, err)
		return
	}

	s := a.sessions.Open(docID, info.PageCount)
	token, err := a.tokens.Issue(s.ID, docID)
	if err != nil {
		_ = a.sessions.Close(s.ID)
		httputil.Fail(a.deps.Log, w, "failed to issue session token", err, http.StatusInternalServerError)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, openSessionResponse{
		SessionID: s.ID,
		Token:     token,
		Pages:     info.Pages,
		State:     s.Snapshot(),
	})
}

// requireSession resolves {sid} and checks the bearer token was issued for
// that session.
func (a *api) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, err := uuid.Parse(chi.URLParam(r, "sid"))
		if err != nil {
			httputil.Fail(a.deps.Log, w, "invalid session id", err, http.StatusBadRequest)
			return
		}
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found {
			httputil.Fail(a.deps.Log, w, "missing session token", nil, http.StatusUnauthorized)
			return
		}
		granted, err := a.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			httputil.Fail(a.deps.Log, w, "invalid session token", err, http.StatusUnauthorized)
			return
		}
		if granted != sid {
			httputil.Fail(a.deps.Log, w, "token not valid for this session", nil, http.StatusForbidden)
			return
		}
		s, err := a.sessions.Get(sid)
		if err != nil {
			httputil.Fail(a.deps.Log, w, "session not found", err, http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey{}).(*session.Session)
}

func (a *api) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Close(sessionFrom(r).ID); err != nil {
		httputil.Fail(a.deps.Log, w, "session not found", err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) sessionState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, sessionFrom(r).Snapshot())
}

func (a *api) setSurface(w http.ResponseWriter, r *http.Request) {
	var req session.Surface
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(a.deps.Log, w, err)
		return
	}
	s := sessionFrom(r)
	if err := s.SetSurface(req); err != nil {
		httputil.Fail(a.deps.Log, w, err.Error(), err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.Snapshot())
}

func (a *api) toggleTool(w http.ResponseWriter, r *http.Request) {
	v, err := annotation.ParseVariant(chi.URLParam(r, "tool"))
	if err != nil {
		httputil.Fail(a.deps.Log, w, "unknown tool", err, http.StatusBadRequest)
		return
	}
	s := sessionFrom(r)
	if err := s.ToggleTool(v); err != nil {
		httputil.Fail(a.deps.Log, w, "unknown tool", err, http.StatusBadRequest)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.Snapshot())
}

func (a *api) setToolbar(w http.ResponseWriter, r *http.Request) {
	var req toolbarRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(a.deps.Log, w, err)
		return
	}
	s := sessionFrom(r)
	s.SetToolbarCollapsed(*req.Collapsed)
	httputil.WriteJSON(w, http.StatusOK, s.Snapshot())
}

func (a *api) pointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(a.deps.Log, w, err)
		return
	}
	p := geometry.Point{X: req.X, Y: req.Y}
	if req.Type != "cancel" && !geometry.Finite(p.X, p.Y) {
		httputil.Fail(a.deps.Log, w, "non-finite pointer position", nil, http.StatusBadRequest)
		return
	}

	s := sessionFrom(r)
	var resp pointerResponse
	switch req.Type {
	case "down":
		res := s.PointerDown(p)
		resp.Result = &res
	case "move":
		s.PointerMove(p)
	case "up":
		s.PointerUp(p)
	case "cancel":
		s.PointerCancel()
	}
	resp.State = s.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (a *api) edit(w http.ResponseWriter, r *http.Request) {
	req, ok := sessionFrom(r).Edit()
	if !ok {
		httputil.Fail(a.deps.Log, w, "nothing selected to edit", nil, http.StatusConflict)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

// commit decodes the payload for the tool the pending step was opened for.
func (a *api) commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(a.deps.Log, w, err)
		return
	}
	s := sessionFrom(r)
	pending := s.Snapshot().Pending
	if pending == nil {
		httputil.Fail(a.deps.Log, w, "no configuration step is pending", nil, http.StatusConflict)
		return
	}
	payload, err := annotation.DecodePayload(pending.Variant, req.Payload)
	if err != nil {
		httputil.Fail(a.deps.Log, w, "invalid payload", err, http.StatusBadRequest)
		return
	}

	id, err := s.Commit(interaction.Result{Payload: payload, Width: req.Width, Height: req.Height})
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, commitResponse{ID: id, State: s.Snapshot()})
	case errors.Is(err, interaction.ErrNoPendingStep):
		httputil.Fail(a.deps.Log, w, "no configuration step is pending", err, http.StatusConflict)
	default:
		httputil.Fail(a.deps.Log, w, "commit rejected", err, http.StatusUnprocessableEntity)
	}
}

func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	s.Cancel()
	httputil.WriteJSON(w, http.StatusOK, s.Snapshot())
}

func (a *api) deleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "aid"))
	if err != nil {
		httputil.Fail(a.deps.Log, w, "invalid annotation id", err, http.StatusBadRequest)
		return
	}
	if !sessionFrom(r).Delete(id) {
		httputil.Fail(a.deps.Log, w, "annotation not found", nil, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) render(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, sessionFrom(r).Render())
}

// export hands the session's annotations to the exporter.
func (a *api) export(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	anns := s.Annotations()
	task, err := queue.NewExportTask(queue.ExportPayload{
		DocumentID:  s.DocumentID,
		SessionID:   s.ID,
		Annotations: anns,
	})
	if err != nil {
		httputil.Fail(a.deps.Log, w, "failed to build export task", err, http.StatusInternalServerError)
		return
	}
	if err := queue.EnqueueWithRetry(r.Context(), a.deps.Queue, task, 3, 200*time.Millisecond); err != nil {
		httputil.Fail(a.deps.Log, w, "failed to enqueue export; please retry", err, http.StatusServiceUnavailable)
		return
	}
	a.deps.Log.Info("export enqueued", "session_id", s.ID, "task_id", task.ID, "annotations", len(anns))
	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
		"task_id":          task.ID,
		"annotation_count": len(anns),
	})
}
