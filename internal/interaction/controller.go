package interaction

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
)

// Phase enumerates the controller states.
type Phase int

const (
	Idle Phase = iota
	ToolArmed
	AwaitingConfiguration
	Selected
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ToolArmed:
		return "tool-armed"
	case AwaitingConfiguration:
		return "awaiting-configuration"
	case Selected:
		return "selected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for _, known := range []Phase{Idle, ToolArmed, AwaitingConfiguration, Selected} {
		if known.String() == string(b) {
			*p = known
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

var (
	ErrNoPendingStep   = errors.New("no configuration step is pending")
	ErrPayloadMismatch = errors.New("payload does not match the pending tool")
)

// Status is the controller state derived from the store.
type Status struct {
	Phase      Phase               `json:"phase"`
	Tool       *annotation.Variant `json:"tool,omitempty"`
	Point      *geometry.Point     `json:"point,omitempty"`
	EditingID  uuid.UUID           `json:"editing_id"`
	SelectedID uuid.UUID           `json:"selected_id"`
}

// ConfigRequest asks the external configuration step to collect a payload.
// Prefill is set when editing an existing annotation.
type ConfigRequest struct {
	Variant   annotation.Variant     `json:"variant"`
	Point     geometry.Point         `json:"point"`
	EditingID uuid.UUID              `json:"editing_id"`
	Prefill   *annotation.Annotation `json:"prefill,omitempty"`
}

// Configurator is the configuration step (dialog) that resolves a request
// by a later call to Controller.Commit or Controller.Cancel.
type Configurator interface {
	Request(req ConfigRequest)
}

// Result is what a configuration step commits. Width and Height are
// optional: zero keeps the current footprint when editing and selects the
// variant default when creating.
type Result struct {
	Payload annotation.Payload
	Width   float64
	Height  float64
}

// defaultSizes are document-space footprints for new annotations.
var defaultSizes = map[annotation.Variant]geometry.Rect{
	annotation.VariantImageStamp:      {Width: 150, Height: 150},
	annotation.VariantHighlightArea:   {Width: 200, Height: 50},
	annotation.VariantSignature:       {Width: 200, Height: 80},
	annotation.VariantDateTimeStamp:   {Width: 180, Height: 30},
	annotation.VariantTextArea:        {Width: 200, Height: 60},
	annotation.VariantImageAttachment: {Width: 150, Height: 150},
}

// DefaultSize returns the footprint used when a commit carries no size.
func DefaultSize(v annotation.Variant) (width, height float64) {
	r, ok := defaultSizes[v]
	if !ok {
		return 100, 100
	}
	return r.Width, r.Height
}

// Controller turns tool selection and pointer clicks into store mutations.
type Controller struct {
	log    *slog.Logger
	store  annotation.Store
	config Configurator
	page   int
}

// New returns a controller placing annotations on page 1 until SetPage.
func New(log *slog.Logger, store annotation.Store, config Configurator) *Controller {
	return &Controller{log: log, store: store, config: config, page: 1}
}

// SetPage sets the page new annotations are placed on.
func (c *Controller) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	c.page = page
}

func (c *Controller) Page() int { return c.page }

// Status derives the current phase from the store.
func (c *Controller) Status() Status {
	return c.status(c.store.State())
}

func (c *Controller) status(st annotation.State) Status {
	out := Status{SelectedID: st.SelectedID, EditingID: st.EditingID}
	switch {
	case st.EditingID != uuid.Nil:
		out.Phase = AwaitingConfiguration
		if a, ok := c.store.Get(st.EditingID); ok {
			v := a.Variant
			p := a.Bounds().Origin()
			out.Tool, out.Point = &v, &p
		}
	case st.ActiveTool != nil && st.PendingPlacement != nil:
		out.Phase = AwaitingConfiguration
		out.Tool, out.Point = st.ActiveTool, st.PendingPlacement
	case st.ActiveTool != nil:
		out.Phase = ToolArmed
		out.Tool = st.ActiveTool
	case st.SelectedID != uuid.Nil:
		out.Phase = Selected
	default:
		out.Phase = Idle
	}
	return out
}

// ArmTool arms tool. Arming the armed tool again disarms it; arming another
// tool replaces it. A pending configuration step is cancelled first.
func (c *Controller) ArmTool(tool annotation.Variant) {
	if !tool.Valid() {
		c.log.Warn("arm request for unknown tool ignored", "tool", tool)
		return
	}
	st := c.store.State()
	prev := st.ActiveTool
	if c.status(st).Phase == AwaitingConfiguration {
		c.Cancel()
	}
	if prev != nil && *prev == tool {
		c.store.SetActiveTool(nil)
		return
	}
	c.store.SetActiveTool(tool.Ptr())
}

// DisarmTool clears the armed tool and any pending placement.
func (c *Controller) DisarmTool() {
	if c.status(c.store.State()).Phase == AwaitingConfiguration {
		c.Cancel()
		return
	}
	c.store.SetActiveTool(nil)
}

// SurfaceClick handles a click on the page background at a document-space
// point. With a tool armed it captures a placement and requests the
// configuration step; otherwise it deselects.
func (c *Controller) SurfaceClick(p geometry.Point) {
	if !geometry.Finite(p.X, p.Y) {
		c.log.Debug("non-finite surface click ignored")
		return
	}
	st := c.store.State()
	status := c.status(st)
	switch status.Phase {
	case AwaitingConfiguration:
		c.log.Debug("surface click while configuration pending ignored")
	case ToolArmed:
		tool := *st.ActiveTool
		c.store.Select(uuid.Nil)
		c.store.SetPendingPlacement(&p)
		c.config.Request(ConfigRequest{Variant: tool, Point: p})
	default:
		c.store.Select(uuid.Nil)
	}
}

// ElementClick selects the clicked annotation. It never places and never
// opens the configuration step.
func (c *Controller) ElementClick(id uuid.UUID) {
	if c.Status().Phase == AwaitingConfiguration {
		c.log.Debug("element click while configuration pending ignored", "id", id)
		return
	}
	c.store.Select(id)
}

// InvokeEdit opens the configuration step for the selected annotation,
// pre-filled from its current fields. It reports whether a step was opened.
func (c *Controller) InvokeEdit() bool {
	st := c.store.State()
	if c.status(st).Phase == AwaitingConfiguration || st.SelectedID == uuid.Nil {
		return false
	}
	a, ok := c.store.Get(st.SelectedID)
	if !ok {
		c.log.Debug("edit for stale selection ignored", "id", st.SelectedID)
		return false
	}
	if st.ActiveTool != nil {
		c.store.SetActiveTool(nil)
	}
	c.store.SetEditing(a.ID)
	c.config.Request(ConfigRequest{
		Variant:   a.Variant,
		Point:     a.Bounds().Origin(),
		EditingID: a.ID,
		Prefill:   &a,
	})
	return true
}

// Commit resolves the pending configuration step. In create mode it places
// a new annotation at the pending point on the current page; in edit mode it
// updates only the fields that changed. The returned id is the created or
// edited annotation, or uuid.Nil when the edit target has vanished.
func (c *Controller) Commit(res Result) (uuid.UUID, error) {
	st := c.store.State()
	if c.status(st).Phase != AwaitingConfiguration {
		return uuid.Nil, ErrNoPendingStep
	}
	if res.Payload == nil {
		return uuid.Nil, fmt.Errorf("%w: empty payload", ErrPayloadMismatch)
	}
	if st.EditingID != uuid.Nil {
		return c.commitEdit(st.EditingID, res)
	}

	tool := *st.ActiveTool
	if res.Payload.Variant() != tool {
		return uuid.Nil, fmt.Errorf("%w: got %s, want %s", ErrPayloadMismatch, res.Payload.Variant(), tool)
	}
	w, h := DefaultSize(tool)
	if res.Width > 0 && geometry.Finite(res.Width) {
		w = res.Width
	}
	if res.Height > 0 && geometry.Finite(res.Height) {
		h = res.Height
	}
	a := annotation.Annotation{
		PageNumber: c.page,
		X:          st.PendingPlacement.X,
		Y:          st.PendingPlacement.Y,
		Width:      w,
		Height:     h,
	}
	a.SetPayload(res.Payload)
	id := c.store.Create(a)
	c.clearStep()
	c.log.Debug("annotation created", "id", id, "variant", tool, "page", c.page)
	return id, nil
}

func (c *Controller) commitEdit(id uuid.UUID, res Result) (uuid.UUID, error) {
	existing, ok := c.store.Get(id)
	if !ok {
		c.log.Debug("edit commit for deleted annotation dropped", "id", id)
		c.clearStep()
		return uuid.Nil, nil
	}
	if res.Payload.Variant() != existing.Variant {
		return uuid.Nil, fmt.Errorf("%w: got %s, want %s", ErrPayloadMismatch, res.Payload.Variant(), existing.Variant)
	}
	updated := existing
	updated.SetPayload(res.Payload)
	if res.Width > 0 && geometry.Finite(res.Width) {
		updated.Width = res.Width
	}
	if res.Height > 0 && geometry.Finite(res.Height) {
		updated.Height = res.Height
	}
	if patch := annotation.Diff(existing, updated); !patch.Empty() {
		c.store.Update(id, patch)
		c.log.Debug("annotation edited", "id", id, "fields", patch.Fields())
	}
	c.clearStep()
	return id, nil
}

// Cancel abandons the pending configuration step, clearing the armed tool,
// the pending placement and the edit target unconditionally.
func (c *Controller) Cancel() {
	c.clearStep()
}

func (c *Controller) clearStep() {
	c.store.SetActiveTool(nil)
	c.store.SetPendingPlacement(nil)
	c.store.SetEditing(uuid.Nil)
}

// Delete removes an annotation by explicit user action.
func (c *Controller) Delete(id uuid.UUID) bool {
	return c.store.Delete(id)
}

// DeleteSelected removes the selected annotation, if any.
func (c *Controller) DeleteSelected() bool {
	st := c.store.State()
	if st.SelectedID == uuid.Nil {
		return false
	}
	return c.store.Delete(st.SelectedID)
}
