package annotation

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/geometry"
)

// State is the engine's interaction state for one viewing session. It is
// never persisted.
type State struct {
	ActiveTool       *Variant        `json:"active_tool"`
	SelectedID       uuid.UUID       `json:"selected_id"`
	PendingPlacement *geometry.Point `json:"pending_placement"`
	EditingID        uuid.UUID       `json:"editing_id"`
	ToolbarCollapsed bool            `json:"toolbar_collapsed"`
}

// Store is the authoritative collection of annotations for one document
// plus the interaction state. Operations referring to unknown ids degrade
// to no-ops.
type Store interface {
	Create(a Annotation) uuid.UUID
	Update(id uuid.UUID, p Patch) bool
	Delete(id uuid.UUID) bool
	Select(id uuid.UUID)
	Get(id uuid.UUID) (Annotation, bool)
	ByPage(page int) []Annotation
	All() []Annotation
	State() State
	SetActiveTool(tool *Variant)
	SetPendingPlacement(p *geometry.Point)
	SetEditing(id uuid.UUID)
	SetToolbarCollapsed(collapsed bool)
	Reset()
}

// MemoryStore keeps annotations in memory with a per-page index. It is not
// safe for concurrent use; the owning session serializes access.
type MemoryStore struct {
	log     *slog.Logger
	now     func() time.Time
	byID    map[uuid.UUID]*Annotation
	byPage  map[int][]uuid.UUID
	retired map[uuid.UUID]struct{}
	seq     uint64
	state   State
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(log *slog.Logger) *MemoryStore {
	return &MemoryStore{
		log:     log,
		now:     time.Now,
		byID:    make(map[uuid.UUID]*Annotation),
		byPage:  make(map[int][]uuid.UUID),
		retired: make(map[uuid.UUID]struct{}),
	}
}

// minFootprint is the fallback for non-positive dimensions, in document
// units at scale 1.0.
var minFootprint = geometry.MinDocSize(1)

// Create inserts a, assigning a fresh id when it has none (or one already
// used), selects it and clears any pending placement.
func (s *MemoryStore) Create(a Annotation) uuid.UUID {
	a = a.clone()
	if a.ID == uuid.Nil || s.used(a.ID) {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	if a.PageNumber < 1 {
		s.log.Warn("annotation created without page; using page 1", "id", a.ID, "page", a.PageNumber)
		a.PageNumber = 1
	}
	if a.Width <= 0 || a.Height <= 0 || !geometry.Finite(a.X, a.Y, a.Width, a.Height) {
		s.log.Debug("clamping degenerate annotation bounds", "id", a.ID,
			"x", a.X, "y", a.Y, "width", a.Width, "height", a.Height)
	}
	a.SetBounds(a.Bounds().Sanitize(minFootprint))

	s.seq++
	a.seq = s.seq
	s.byID[a.ID] = &a
	s.byPage[a.PageNumber] = append(s.byPage[a.PageNumber], a.ID)

	s.state.SelectedID = a.ID
	s.state.PendingPlacement = nil
	return a.ID
}

func (s *MemoryStore) used(id uuid.UUID) bool {
	if _, ok := s.byID[id]; ok {
		return true
	}
	_, ok := s.retired[id]
	return ok
}

// Update merges p into the annotation. It reports false when id is unknown.
func (s *MemoryStore) Update(id uuid.UUID, p Patch) bool {
	a, ok := s.byID[id]
	if !ok {
		s.log.Debug("update for unknown annotation ignored", "id", id, "fields", p.Fields())
		return false
	}
	if p.Empty() {
		return true
	}
	if mismatch := p.apply(a, minFootprint); mismatch {
		s.log.Warn("payload variant mismatch ignored", "id", id, "variant", a.Variant,
			"payload_variant", derefPayload(p.Payload).Variant())
	}
	return true
}

// Delete removes the annotation and clears selection if it was selected.
// Deleting an unknown id is a no-op.
func (s *MemoryStore) Delete(id uuid.UUID) bool {
	a, ok := s.byID[id]
	if !ok {
		return false
	}
	ids := s.byPage[a.PageNumber]
	for i, pid := range ids {
		if pid == id {
			s.byPage[a.PageNumber] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byPage[a.PageNumber]) == 0 {
		delete(s.byPage, a.PageNumber)
	}
	delete(s.byID, id)
	s.retired[id] = struct{}{}

	if s.state.SelectedID == id {
		s.state.SelectedID = uuid.Nil
	}
	return true
}

// Select marks id as the single selected annotation. Unknown ids deselect.
func (s *MemoryStore) Select(id uuid.UUID) {
	if _, ok := s.byID[id]; !ok {
		if id != uuid.Nil {
			s.log.Debug("select for unknown annotation treated as deselect", "id", id)
		}
		id = uuid.Nil
	}
	s.state.SelectedID = id
}

func (s *MemoryStore) Get(id uuid.UUID) (Annotation, bool) {
	a, ok := s.byID[id]
	if !ok {
		return Annotation{}, false
	}
	return a.clone(), true
}

// ByPage returns the annotations on page in creation order. Each call reads
// current state.
func (s *MemoryStore) ByPage(page int) []Annotation {
	ids := s.byPage[page]
	out := make([]Annotation, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id].clone())
	}
	return out
}

// All returns every annotation in creation order.
func (s *MemoryStore) All() []Annotation {
	out := make([]Annotation, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of annotations.
func (s *MemoryStore) Len() int { return len(s.byID) }

func (s *MemoryStore) State() State {
	st := s.state
	if st.ActiveTool != nil {
		st.ActiveTool = st.ActiveTool.Ptr()
	}
	if st.PendingPlacement != nil {
		p := *st.PendingPlacement
		st.PendingPlacement = &p
	}
	return st
}

// SetActiveTool arms tool, replacing any armed tool. Disarming also drops
// the pending placement, which cannot outlive the armed tool.
func (s *MemoryStore) SetActiveTool(tool *Variant) {
	if tool == nil {
		s.state.ActiveTool = nil
		s.state.PendingPlacement = nil
		return
	}
	s.state.ActiveTool = tool.Ptr()
}

// SetPendingPlacement records a captured click. It is ignored while no tool
// is armed.
func (s *MemoryStore) SetPendingPlacement(p *geometry.Point) {
	if p == nil {
		s.state.PendingPlacement = nil
		return
	}
	if s.state.ActiveTool == nil {
		s.log.Debug("pending placement without armed tool ignored", "x", p.X, "y", p.Y)
		return
	}
	pt := *p
	s.state.PendingPlacement = &pt
}

func (s *MemoryStore) SetEditing(id uuid.UUID) {
	s.state.EditingID = id
}

func (s *MemoryStore) SetToolbarCollapsed(collapsed bool) {
	s.state.ToolbarCollapsed = collapsed
}

// Reset drops every annotation and re-initializes interaction state. The
// toolbar preference survives.
func (s *MemoryStore) Reset() {
	collapsed := s.state.ToolbarCollapsed
	s.byID = make(map[uuid.UUID]*Annotation)
	s.byPage = make(map[int][]uuid.UUID)
	s.state = State{ToolbarCollapsed: collapsed}
}
