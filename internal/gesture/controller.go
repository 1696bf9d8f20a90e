// Package gesture converts pointer drags on a selected annotation into new
// document-space bounds. A Session lives from pointer-down to pointer-up and
// owns the surface-wide listeners it registers.
package gesture

import (
	"log/slog"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
)

// Mode distinguishes the two mutually exclusive gestures.
type Mode int

const (
	ModeMove Mode = iota
	ModeResize
)

func (m Mode) String() string {
	if m == ModeResize {
		return "resize"
	}
	return "move"
}

// Controller starts gesture sessions for the selected annotation.
type Controller struct {
	log       *slog.Logger
	store     annotation.Store
	listeners *Listeners
	minScreen float64
	active    *Session
}

// NewController returns a controller enforcing minScreen pixels as the
// smallest on-screen footprint. Zero selects geometry.MinScreenSize.
func NewController(log *slog.Logger, store annotation.Store, listeners *Listeners, minScreen float64) *Controller {
	if minScreen <= 0 {
		minScreen = geometry.MinScreenSize
	}
	return &Controller{log: log, store: store, listeners: listeners, minScreen: minScreen}
}

// Session is one drag or resize gesture.
type Session struct {
	ctrl    *Controller
	id      uuid.UUID
	mode    Mode
	anchor  Anchor
	start   geometry.Point
	initial geometry.Rect
	scale   float64
	handles []Handle
	ended   bool
}

// BeginMove starts dragging annotation id from the screen point start.
func (c *Controller) BeginMove(id uuid.UUID, start geometry.Point, scale float64) (*Session, bool) {
	return c.begin(id, ModeMove, "", start, scale)
}

// BeginResize starts resizing annotation id through anchor.
func (c *Controller) BeginResize(id uuid.UUID, anchor Anchor, start geometry.Point, scale float64) (*Session, bool) {
	if _, err := ParseAnchor(string(anchor)); err != nil {
		c.log.Debug("resize with unknown anchor ignored", "anchor", anchor)
		return nil, false
	}
	return c.begin(id, ModeResize, anchor, start, scale)
}

func (c *Controller) begin(id uuid.UUID, mode Mode, anchor Anchor, start geometry.Point, scale float64) (*Session, bool) {
	if !geometry.ValidScale(scale) || !geometry.Finite(start.X, start.Y) {
		c.log.Debug("gesture with invalid geometry ignored", "scale", scale)
		return nil, false
	}
	if c.store.State().SelectedID != id {
		return nil, false
	}
	a, ok := c.store.Get(id)
	if !ok {
		return nil, false
	}
	c.Teardown()

	s := &Session{
		ctrl:    c,
		id:      id,
		mode:    mode,
		anchor:  anchor,
		start:   start,
		initial: a.Bounds(),
		scale:   scale,
	}
	s.handles = []Handle{
		c.listeners.On(EventPointerMove, func(p geometry.Point) { s.Move(p) }),
		c.listeners.On(EventPointerUp, func(p geometry.Point) {
			s.Move(p)
			s.End()
		}),
	}
	c.active = s
	return s, true
}

// Active returns the in-progress session, or nil.
func (c *Controller) Active() *Session { return c.active }

// Teardown ends any in-progress session, detaching its listeners.
func (c *Controller) Teardown() {
	if c.active != nil {
		c.active.End()
	}
}

func (s *Session) ID() uuid.UUID  { return s.id }
func (s *Session) Mode() Mode     { return s.mode }
func (s *Session) Anchor() Anchor { return s.anchor }
func (s *Session) Active() bool   { return !s.ended }

// Bounds computes the bounds for the pointer at current without applying
// them. ok is false when the session cannot produce finite bounds.
func (s *Session) Bounds(current geometry.Point) (geometry.Rect, bool) {
	if s.ended || !geometry.ValidScale(s.scale) {
		return geometry.Rect{}, false
	}
	delta := geometry.Point{
		X: (current.X - s.start.X) / s.scale,
		Y: (current.Y - s.start.Y) / s.scale,
	}
	if !geometry.Finite(delta.X, delta.Y) {
		return geometry.Rect{}, false
	}

	var next geometry.Rect
	if s.mode == ModeResize {
		next = Resize(s.anchor, s.initial, delta, geometry.MinDocSizeFor(s.ctrl.minScreen, s.scale))
	} else {
		next = Translate(s.initial, delta)
	}
	if !geometry.Finite(next.X, next.Y, next.Width, next.Height) {
		return geometry.Rect{}, false
	}
	return next, true
}

// Move applies the pointer position current to the annotation. It reports
// whether the store was updated.
func (s *Session) Move(current geometry.Point) bool {
	next, ok := s.Bounds(current)
	if !ok {
		return false
	}
	if !s.ctrl.store.Update(s.id, annotation.BoundsPatch(next)) {
		s.ctrl.log.Debug("gesture target vanished; ending session", "id", s.id)
		s.End()
		return false
	}
	return true
}

// End finishes the gesture and detaches its listeners. It is idempotent.
func (s *Session) End() {
	if s.ended {
		return
	}
	s.ended = true
	for _, h := range s.handles {
		h.Remove()
	}
	s.handles = nil
	if s.ctrl.active == s {
		s.ctrl.active = nil
	}
}
