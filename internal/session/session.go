// Package session hosts one markup engine per document-viewing session and
// serializes every call into it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
	"doc-markup/internal/gesture"
	"doc-markup/internal/interaction"
	"doc-markup/internal/render"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSurface  = errors.New("invalid page surface")
)

// Surface is what the page viewer reports about the page being shown.
type Surface struct {
	Page            int     `json:"page" validate:"required,min=1"`
	Scale           float64 `json:"scale" validate:"required,gt=0"`
	ContainerWidth  float64 `json:"container_width" validate:"gte=0"`
	ContainerHeight float64 `json:"container_height" validate:"gte=0"`
}

// Target is what a pointer-down landed on.
type Target string

const (
	TargetAnchor     Target = "anchor"
	TargetHandle     Target = "handle"
	TargetControl    Target = "control"
	TargetElement    Target = "element"
	TargetBackground Target = "background"
)

// PointerResult reports how a pointer-down was routed.
type PointerResult struct {
	Target  Target    `json:"target"`
	ID      uuid.UUID `json:"id,omitempty"`
	Anchor  string    `json:"anchor,omitempty"`
	Action  string    `json:"action,omitempty"`
	Gesture string    `json:"gesture,omitempty"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	ID         uuid.UUID                  `json:"id"`
	DocumentID uuid.UUID                  `json:"document_id"`
	Pages      int                        `json:"pages"`
	Surface    Surface                    `json:"surface"`
	Status     interaction.Status         `json:"status"`
	Tools      []interaction.Tool         `json:"tools"`
	Collapsed  bool                       `json:"toolbar_collapsed"`
	Pending    *interaction.ConfigRequest `json:"pending,omitempty"`
	Count      int                        `json:"annotation_count"`
}

// PageRender is the render output for the current page.
type PageRender struct {
	Page      int             `json:"page"`
	Scale     float64         `json:"scale"`
	Visuals   []render.Visual `json:"visuals"`
	Placement *render.Visual  `json:"placement,omitempty"`
}

// requestRecorder is the Configurator for hosted sessions: the request is
// kept until a client fetches state and answers with commit or cancel.
type requestRecorder struct {
	last *interaction.ConfigRequest
}

func (r *requestRecorder) Request(req interaction.ConfigRequest) {
	r.last = &req
}

// Session is one document-viewing session. All methods are safe for
// concurrent use; calls are applied one at a time.
type Session struct {
	ID         uuid.UUID
	DocumentID uuid.UUID

	mu        sync.Mutex
	log       *slog.Logger
	pages     int
	store     *annotation.MemoryStore
	ctrl      *interaction.Controller
	palette   *interaction.Palette
	listeners *gesture.Listeners
	gestures  *gesture.Controller
	renderer  *render.Renderer
	requests  *requestRecorder
	surface   Surface
	hover     *geometry.Point
	lastUsed  time.Time
	now       func() time.Time
}

func newSession(log *slog.Logger, docID uuid.UUID, pages int, renderer *render.Renderer, minScreen float64, now func() time.Time) *Session {
	id := uuid.New()
	log = log.With("session_id", id, "document_id", docID)

	st := annotation.NewMemoryStore(log)
	rec := &requestRecorder{}
	ctrl := interaction.New(log, st, rec)
	listeners := &gesture.Listeners{}

	if pages < 1 {
		pages = 1
	}
	return &Session{
		ID:         id,
		DocumentID: docID,
		log:        log,
		pages:      pages,
		store:      st,
		ctrl:       ctrl,
		palette:    interaction.NewPalette(ctrl, st),
		listeners:  listeners,
		gestures:   gesture.NewController(log, st, listeners, minScreen),
		renderer:   renderer,
		requests:   rec,
		surface:    Surface{Page: 1, Scale: 1},
		lastUsed:   now(),
		now:        now,
	}
}

func (s *Session) lock() func() {
	s.mu.Lock()
	s.lastUsed = s.now()
	return s.mu.Unlock
}

// LastUsed returns when the session last handled a call.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// SetSurface records the page and scale being shown. Navigating to another
// page ends any gesture in progress.
func (s *Session) SetSurface(sf Surface) error {
	defer s.lock()()
	if sf.Page < 1 || sf.Page > s.pages {
		return fmt.Errorf("%w: page %d of %d", ErrInvalidSurface, sf.Page, s.pages)
	}
	if !geometry.ValidScale(sf.Scale) {
		return fmt.Errorf("%w: scale %v", ErrInvalidSurface, sf.Scale)
	}
	if !geometry.Finite(sf.ContainerWidth, sf.ContainerHeight) {
		return fmt.Errorf("%w: non-finite container size", ErrInvalidSurface)
	}
	if sf.Page != s.surface.Page {
		s.gestures.Teardown()
		s.hover = nil
	}
	s.surface = sf
	s.ctrl.SetPage(sf.Page)
	return nil
}

// ToggleTool arms or disarms a palette tool.
func (s *Session) ToggleTool(v annotation.Variant) error {
	defer s.lock()()
	if !v.Valid() {
		return fmt.Errorf("%w: %q", annotation.ErrUnknownVariant, v)
	}
	s.palette.Toggle(v)
	return nil
}

func (s *Session) SetToolbarCollapsed(collapsed bool) {
	defer s.lock()()
	s.palette.SetCollapsed(collapsed)
}

// PointerDown routes a screen-space pointer-down: the selected annotation's
// resize anchors, drag handle and edit/delete controls first, then
// annotations top-most first, then the page background.
func (s *Session) PointerDown(p geometry.Point) PointerResult {
	defer s.lock()()
	if !geometry.Finite(p.X, p.Y) {
		return PointerResult{Target: TargetBackground}
	}
	scale := s.surface.Scale
	s.gestures.Teardown()
	// The configuration step is modal; hits still route but start no gesture.
	drag := s.ctrl.Status().Phase != interaction.AwaitingConfiguration

	page := s.store.ByPage(s.surface.Page)
	selected := s.store.State().SelectedID

	if i := slices.IndexFunc(page, func(a annotation.Annotation) bool { return a.ID == selected }); i >= 0 {
		frame := geometry.ToScreen(page[i].Bounds(), scale)
		for _, t := range render.AnchorTargets(frame) {
			if !t.Rect.Contains(p) {
				continue
			}
			res := PointerResult{Target: TargetAnchor, ID: selected, Anchor: t.Anchor}
			if !drag {
				return res
			}
			if _, ok := s.gestures.BeginResize(selected, gesture.Anchor(t.Anchor), p, scale); ok {
				res.Gesture = gesture.ModeResize.String()
			}
			return res
		}
		decor := render.Decorate(frame)
		if decor.DragHandle.Contains(p) {
			res := PointerResult{Target: TargetHandle, ID: selected}
			if !drag {
				return res
			}
			if _, ok := s.gestures.BeginMove(selected, p, scale); ok {
				res.Gesture = gesture.ModeMove.String()
			}
			return res
		}
		// Edit and delete controls are acted on by the caller; the press
		// neither places nor changes selection.
		for _, c := range decor.Controls {
			if c.Rect.Contains(p) {
				return PointerResult{Target: TargetControl, ID: selected, Action: string(c.Action)}
			}
		}
	}

	for i := len(page) - 1; i >= 0; i-- {
		a := page[i]
		if !geometry.ToScreen(a.Bounds(), scale).Contains(p) {
			continue
		}
		s.ctrl.ElementClick(a.ID)
		res := PointerResult{Target: TargetElement, ID: a.ID}
		if !drag {
			return res
		}
		if _, ok := s.gestures.BeginMove(a.ID, p, scale); ok {
			res.Gesture = gesture.ModeMove.String()
		}
		return res
	}

	s.ctrl.SurfaceClick(geometry.PointToDocument(p, scale))
	return PointerResult{Target: TargetBackground}
}

// PointerMove feeds an active gesture and tracks the hover point used for
// the placement affordance.
func (s *Session) PointerMove(p geometry.Point) {
	defer s.lock()()
	if !geometry.Finite(p.X, p.Y) {
		return
	}
	doc := geometry.PointToDocument(p, s.surface.Scale)
	s.hover = &doc
	s.listeners.Dispatch(gesture.EventPointerMove, p)
}

// PointerUp finishes an active gesture.
func (s *Session) PointerUp(p geometry.Point) {
	defer s.lock()()
	if !geometry.Finite(p.X, p.Y) {
		s.gestures.Teardown()
		return
	}
	s.listeners.Dispatch(gesture.EventPointerUp, p)
}

// PointerCancel abandons an active gesture, keeping the last applied bounds.
func (s *Session) PointerCancel() {
	defer s.lock()()
	s.gestures.Teardown()
}

// Edit opens the configuration step for the selected annotation.
func (s *Session) Edit() (*interaction.ConfigRequest, bool) {
	defer s.lock()()
	if !s.ctrl.InvokeEdit() {
		return nil, false
	}
	return s.pending(), true
}

// Commit resolves the pending configuration step.
func (s *Session) Commit(res interaction.Result) (uuid.UUID, error) {
	defer s.lock()()
	id, err := s.ctrl.Commit(res)
	if err != nil {
		return uuid.Nil, err
	}
	s.requests.last = nil
	return id, nil
}

// Cancel abandons the pending configuration step.
func (s *Session) Cancel() {
	defer s.lock()()
	s.ctrl.Cancel()
	s.requests.last = nil
}

// Delete removes an annotation. Deleting the annotation being dragged ends
// the gesture.
func (s *Session) Delete(id uuid.UUID) bool {
	defer s.lock()()
	if active := s.gestures.Active(); active != nil && active.ID() == id {
		s.gestures.Teardown()
	}
	return s.ctrl.Delete(id)
}

// pending returns the open configuration request, if the controller is
// still awaiting one.
func (s *Session) pending() *interaction.ConfigRequest {
	if s.ctrl.Status().Phase != interaction.AwaitingConfiguration {
		s.requests.last = nil
		return nil
	}
	if s.requests.last == nil {
		return nil
	}
	req := *s.requests.last
	return &req
}

func (s *Session) Snapshot() Snapshot {
	defer s.lock()()
	return Snapshot{
		ID:         s.ID,
		DocumentID: s.DocumentID,
		Pages:      s.pages,
		Surface:    s.surface,
		Status:     s.ctrl.Status(),
		Tools:      s.palette.Tools(),
		Collapsed:  s.palette.Collapsed(),
		Pending:    s.pending(),
		Count:      s.store.Len(),
	}
}

// Render describes the current page. While a tool is armed the placement
// affordance follows the pending point, or else the last hover point.
func (s *Session) Render() PageRender {
	defer s.lock()()
	st := s.store.State()
	out := PageRender{
		Page:    s.surface.Page,
		Scale:   s.surface.Scale,
		Visuals: s.renderer.RenderPage(s.store.ByPage(s.surface.Page), st.SelectedID, s.surface.Scale),
	}
	if st.ActiveTool != nil {
		at := s.hover
		if st.PendingPlacement != nil {
			at = st.PendingPlacement
		}
		if at != nil {
			ghost := s.renderer.Placement(*st.ActiveTool, *at, s.surface.Scale)
			out.Placement = &ghost
		}
	}
	return out
}

// Annotations returns every annotation in creation order.
func (s *Session) Annotations() []annotation.Annotation {
	defer s.lock()()
	return s.store.All()
}

// close ends any gesture and drops all state.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.Teardown()
	s.store.Reset()
	s.requests.last = nil
}
