package interaction

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T) (*Controller, *annotation.MemoryStore, *MockConfigurator) {
	t.Helper()
	st := annotation.NewMemoryStore(discardLogger())
	cfg := new(MockConfigurator)
	return New(discardLogger(), st, cfg), st, cfg
}

func TestArmToolToggle(t *testing.T) {
	tests := []struct {
		name string
		arms []annotation.Variant
		want *annotation.Variant
	}{
		{"arm once", []annotation.Variant{annotation.VariantTextArea}, annotation.VariantTextArea.Ptr()},
		{"same tool twice disarms", []annotation.Variant{annotation.VariantTextArea, annotation.VariantTextArea}, nil},
		{"other tool replaces", []annotation.Variant{annotation.VariantTextArea, annotation.VariantSignature}, annotation.VariantSignature.Ptr()},
		{"three times re-arms", []annotation.Variant{annotation.VariantSignature, annotation.VariantSignature, annotation.VariantSignature}, annotation.VariantSignature.Ptr()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, st, _ := newTestController(t)
			for _, v := range tt.arms {
				ctrl.ArmTool(v)
			}
			assert.Equal(t, tt.want, st.State().ActiveTool)
		})
	}
}

func TestArmUnknownToolIgnored(t *testing.T) {
	ctrl, st, _ := newTestController(t)
	ctrl.ArmTool("lasso")
	assert.Nil(t, st.State().ActiveTool)
	assert.Equal(t, Idle, ctrl.Status().Phase)
}

// Arm highlight, click background, cancel.
func TestPlacementThenCancel(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	cfg.On("Request", ConfigRequest{Variant: annotation.VariantHighlightArea, Point: geometry.Point{X: 50, Y: 50}}).Once()

	ctrl.ArmTool(annotation.VariantHighlightArea)
	require.Equal(t, ToolArmed, ctrl.Status().Phase)

	ctrl.SurfaceClick(geometry.Point{X: 50, Y: 50})
	status := ctrl.Status()
	require.Equal(t, AwaitingConfiguration, status.Phase)
	assert.Equal(t, annotation.VariantHighlightArea, *status.Tool)
	assert.Equal(t, geometry.Point{X: 50, Y: 50}, *status.Point)

	ctrl.Cancel()
	state := st.State()
	assert.Nil(t, state.ActiveTool)
	assert.Nil(t, state.PendingPlacement)
	assert.Equal(t, uuid.Nil, state.EditingID)
	assert.Equal(t, Idle, ctrl.Status().Phase)
	cfg.AssertExpectations(t)
}

func TestCommitCreatesAndSelects(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	cfg.On("Request", mock.Anything).Once()
	ctrl.SetPage(3)

	ctrl.ArmTool(annotation.VariantTextArea)
	ctrl.SurfaceClick(geometry.Point{X: 100, Y: 200})
	id, err := ctrl.Commit(Result{
		Payload: annotation.TextArea{Text: "Name", FontSize: 12, Align: annotation.AlignLeft},
		Width:   150,
		Height:  40,
	})
	require.NoError(t, err)

	a, ok := st.Get(id)
	require.True(t, ok)
	assert.Equal(t, 3, a.PageNumber)
	assert.Equal(t, geometry.Rect{X: 100, Y: 200, Width: 150, Height: 40}, a.Bounds())

	state := st.State()
	assert.Nil(t, state.ActiveTool)
	assert.Nil(t, state.PendingPlacement)
	assert.Equal(t, uuid.Nil, state.EditingID)
	assert.Equal(t, Selected, ctrl.Status().Phase)
	assert.Equal(t, id, ctrl.Status().SelectedID)
}

func TestCommitUsesDefaultSize(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	cfg.On("Request", mock.Anything).Once()
	ctrl.ArmTool(annotation.VariantSignature)
	ctrl.SurfaceClick(geometry.Point{X: 1, Y: 2})
	id, err := ctrl.Commit(Result{Payload: annotation.Signature{ImageData: "data:image/png;base64,AA=="}})
	require.NoError(t, err)

	a, _ := st.Get(id)
	w, h := DefaultSize(annotation.VariantSignature)
	assert.Equal(t, w, a.Width)
	assert.Equal(t, h, a.Height)
}

func TestCommitRejectsMismatchedPayload(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	cfg.On("Request", mock.Anything).Once()
	ctrl.ArmTool(annotation.VariantSignature)
	ctrl.SurfaceClick(geometry.Point{X: 1, Y: 2})

	_, err := ctrl.Commit(Result{Payload: annotation.TextArea{Text: "x"}})
	assert.ErrorIs(t, err, ErrPayloadMismatch)
	assert.Equal(t, AwaitingConfiguration, ctrl.Status().Phase, "step stays open")
	assert.Equal(t, 0, st.Len())

	_, err = ctrl.Commit(Result{})
	assert.ErrorIs(t, err, ErrPayloadMismatch)
}

func TestCommitWithoutPendingStep(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	_, err := ctrl.Commit(Result{Payload: annotation.Signature{}})
	assert.ErrorIs(t, err, ErrNoPendingStep)

	ctrl.ArmTool(annotation.VariantSignature)
	_, err = ctrl.Commit(Result{Payload: annotation.Signature{}})
	assert.ErrorIs(t, err, ErrNoPendingStep, "armed but no click yet")
}

func TestElementClickSelectsWithoutPlacing(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	existing := createHighlight(st)
	st.Select(uuid.Nil)

	ctrl.ArmTool(annotation.VariantImageStamp)
	ctrl.ElementClick(existing)

	state := st.State()
	assert.Equal(t, existing, state.SelectedID)
	assert.Nil(t, state.PendingPlacement)
	assert.Equal(t, 1, st.Len())
	cfg.AssertNotCalled(t, "Request", mock.Anything)
}

func TestBackgroundClickDeselects(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	createHighlight(st)
	require.Equal(t, Selected, ctrl.Status().Phase)

	ctrl.SurfaceClick(geometry.Point{X: 500, Y: 500})
	assert.Equal(t, Idle, ctrl.Status().Phase)
	cfg.AssertNotCalled(t, "Request", mock.Anything)
}

func TestBackgroundClickWithToolPlacesAndDeselects(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	createHighlight(st)
	cfg.On("Request", mock.Anything).Once()

	ctrl.ArmTool(annotation.VariantTextArea)
	ctrl.SurfaceClick(geometry.Point{X: 5, Y: 6})

	state := st.State()
	assert.Equal(t, uuid.Nil, state.SelectedID)
	require.NotNil(t, state.PendingPlacement)
	assert.Equal(t, AwaitingConfiguration, ctrl.Status().Phase)
}

func TestClicksIgnoredWhileAwaiting(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	other := createHighlight(st)
	st.Select(uuid.Nil)
	cfg.On("Request", mock.Anything).Once()

	ctrl.ArmTool(annotation.VariantTextArea)
	ctrl.SurfaceClick(geometry.Point{X: 5, Y: 6})
	ctrl.SurfaceClick(geometry.Point{X: 50, Y: 60})
	ctrl.ElementClick(other)

	assert.Equal(t, geometry.Point{X: 5, Y: 6}, *st.State().PendingPlacement)
	assert.Equal(t, uuid.Nil, st.State().SelectedID)
	cfg.AssertNumberOfCalls(t, "Request", 1)
}

func TestArmingWhileAwaitingCancelsStep(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	cfg.On("Request", mock.Anything).Once()
	ctrl.ArmTool(annotation.VariantTextArea)
	ctrl.SurfaceClick(geometry.Point{X: 5, Y: 6})

	ctrl.ArmTool(annotation.VariantSignature)
	state := st.State()
	assert.Equal(t, annotation.VariantSignature, *state.ActiveTool)
	assert.Nil(t, state.PendingPlacement)
	assert.Equal(t, ToolArmed, ctrl.Status().Phase)
}

func TestInvokeEditPrefillsFromStore(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	id := createHighlight(st)
	a, _ := st.Get(id)

	cfg.On("Request", ConfigRequest{
		Variant:   annotation.VariantHighlightArea,
		Point:     geometry.Point{X: a.X, Y: a.Y},
		EditingID: id,
		Prefill:   &a,
	}).Once()

	require.True(t, ctrl.InvokeEdit())
	status := ctrl.Status()
	assert.Equal(t, AwaitingConfiguration, status.Phase)
	assert.Equal(t, id, status.EditingID)
	assert.Nil(t, st.State().PendingPlacement)
	cfg.AssertExpectations(t)
}

func TestInvokeEditWithoutSelection(t *testing.T) {
	ctrl, _, cfg := newTestController(t)
	assert.False(t, ctrl.InvokeEdit())
	cfg.AssertNotCalled(t, "Request", mock.Anything)
}

func TestEditCommitAfterDeleteIsNoOp(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	id := createHighlight(st)
	cfg.On("Request", mock.Anything).Once()
	require.True(t, ctrl.InvokeEdit())

	st.Delete(id)
	got, err := ctrl.Commit(Result{Payload: annotation.HighlightArea{Color: "#00ff00"}})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, Idle, ctrl.Status().Phase)
}

func TestEditCommitResizes(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	id := createHighlight(st)
	before, _ := st.Get(id)
	cfg.On("Request", mock.Anything).Once()
	require.True(t, ctrl.InvokeEdit())

	_, err := ctrl.Commit(Result{Payload: *before.HighlightArea, Width: 321})
	require.NoError(t, err)
	after, _ := st.Get(id)
	assert.Equal(t, 321.0, after.Width)
	assert.Equal(t, before.Height, after.Height)
	assert.Equal(t, before.PageNumber, after.PageNumber)
}

// An edit commit with only the color changed sends a patch holding
// only that field.
func TestEditCommitSendsOnlyChangedFields(t *testing.T) {
	xid := uuid.New()
	existing := annotation.Annotation{ID: xid, PageNumber: 2, X: 10, Y: 20, Width: 100, Height: 30}
	existing.SetPayload(annotation.HighlightArea{Color: "#ffff00", Opacity: 0.5, Shape: annotation.ShapeRectangle})

	st := new(annotation.MockStore)
	cfg := new(MockConfigurator)
	ctrl := New(discardLogger(), st, cfg)

	st.On("State").Return(annotation.State{SelectedID: xid}).Once()
	st.On("Get", xid).Return(existing, true)
	st.On("SetEditing", xid).Once()
	cfg.On("Request", mock.MatchedBy(func(r ConfigRequest) bool {
		return r.EditingID == xid && r.Prefill != nil && r.Prefill.HighlightArea.Color == "#ffff00"
	})).Once()

	require.True(t, ctrl.InvokeEdit())

	st.On("State").Return(annotation.State{SelectedID: xid, EditingID: xid}).Once()
	st.On("Update", xid, mock.MatchedBy(func(p annotation.Patch) bool {
		return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
			len(p.PayloadFields) == 1 && p.PayloadFields[0] == "color"
	})).Return(true).Once()
	st.On("SetActiveTool", (*annotation.Variant)(nil)).Once()
	st.On("SetPendingPlacement", (*geometry.Point)(nil)).Once()
	st.On("SetEditing", uuid.Nil).Once()

	id, err := ctrl.Commit(Result{Payload: annotation.HighlightArea{Color: "#ff0000", Opacity: 0.5, Shape: annotation.ShapeRectangle}})
	require.NoError(t, err)
	assert.Equal(t, xid, id)

	st.AssertExpectations(t)
	cfg.AssertExpectations(t)
	st.AssertNotCalled(t, "Create", mock.Anything)
}

func TestEditCommitWithNoChangesSkipsUpdate(t *testing.T) {
	ctrl, st, cfg := newTestController(t)
	id := createHighlight(st)
	before, _ := st.Get(id)
	cfg.On("Request", mock.Anything).Once()
	ctrl.InvokeEdit()

	_, err := ctrl.Commit(Result{Payload: *before.HighlightArea})
	require.NoError(t, err)
	after, _ := st.Get(id)
	assert.Equal(t, before, after)
}

func TestDeleteSelected(t *testing.T) {
	ctrl, st, _ := newTestController(t)
	assert.False(t, ctrl.DeleteSelected())
	id := createHighlight(st)
	assert.True(t, ctrl.DeleteSelected())
	assert.False(t, ctrl.Delete(id))
	assert.Equal(t, Idle, ctrl.Status().Phase)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "awaiting-configuration", AwaitingConfiguration.String())
	text, err := Selected.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "selected", string(text))
}

func createHighlight(st *annotation.MemoryStore) uuid.UUID {
	a := annotation.Annotation{PageNumber: 1, X: 40, Y: 40, Width: 120, Height: 30}
	a.SetPayload(annotation.HighlightArea{Color: "#ffff00", Opacity: 0.4, Shape: annotation.ShapeRectangle})
	return st.Create(a)
}

func TestPhaseText(t *testing.T) {
	for _, p := range []Phase{Idle, ToolArmed, AwaitingConfiguration, Selected} {
		b, err := p.MarshalText()
		require.NoError(t, err)
		var got Phase
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, p, got)
	}
	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("dragging")))
}
