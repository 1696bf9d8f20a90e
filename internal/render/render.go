// Package render turns stored annotations into screen-space visual
// descriptions for the current page scale.
package render

import (
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/dateformat"
	"doc-markup/internal/geometry"
	"doc-markup/internal/gesture"
	"doc-markup/internal/interaction"
	"doc-markup/internal/textlayout"
)

const (
	highlightOpacity = 0.4
	defaultFontSize  = 14.0
	// textPadding is the inset between a text frame and its lines, in
	// document units.
	textPadding = 4.0

	// Selection decoration sizes are screen pixels and do not scale.
	anchorSize     = 10.0
	dragHandleSize = 16.0
	controlSize    = 24.0
	controlGap     = 4.0
)

var cornerRadius = map[annotation.HighlightShape]float64{
	annotation.ShapeRectangle: 0,
	annotation.ShapeEllipse:   0.5,
	annotation.ShapeFreeform:  0.35,
}

// Renderer renders annotations. It holds no annotation state; the date/time
// clock is injectable for tests.
type Renderer struct {
	log      *slog.Logger
	measurer *textlayout.Measurer
	now      func() time.Time
}

func New(log *slog.Logger, measurer *textlayout.Measurer) *Renderer {
	if measurer == nil {
		measurer = textlayout.Default()
	}
	return &Renderer{log: log, measurer: measurer, now: time.Now}
}

// WithClock returns a copy of r that reads the current time from now.
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	cp := *r
	cp.now = now
	return &cp
}

// Render describes a at scale. An invalid scale renders at 1.0.
func (r *Renderer) Render(a annotation.Annotation, scale float64, selected bool) Visual {
	if !geometry.ValidScale(scale) {
		r.log.Debug("render with invalid scale; using 1.0", "id", a.ID, "scale", scale)
		scale = 1
	}
	v := Visual{
		ID:      a.ID,
		Variant: a.Variant,
		Frame:   geometry.ToScreen(a.Bounds(), scale),
	}

	switch a.Variant {
	case annotation.VariantHighlightArea:
		v.Kind = KindShape
		v.Shape = r.highlight(payloadOr(a.HighlightArea))
	case annotation.VariantImageStamp:
		p := payloadOr(a.ImageStamp)
		v.Kind = KindImage
		v.Image = r.image(a.ID, p.ImageData, v.Frame)
		v.Image.Opacity = opacityOr(p.Opacity, 1)
		v.Image.Rotation = normalizeDegrees(p.Rotation)
	case annotation.VariantSignature:
		v.Kind = KindImage
		v.Image = r.image(a.ID, payloadOr(a.Signature).ImageData, v.Frame)
	case annotation.VariantImageAttachment:
		p := payloadOr(a.ImageAttachment)
		v.Kind = KindImage
		v.Image = r.image(a.ID, p.ImageData, v.Frame)
		v.Image.Title = p.FileName
	case annotation.VariantDateTimeStamp:
		v.Kind = KindText
		v.Text = r.dateTime(payloadOr(a.DateTimeStamp), v.Frame, scale)
	case annotation.VariantTextArea:
		v.Kind = KindText
		v.Text = r.textArea(payloadOr(a.TextArea), v.Frame, scale)
	default:
		r.log.Warn("render of unknown variant skipped", "id", a.ID, "variant", a.Variant)
	}

	if selected {
		v.Selection = Decorate(v.Frame)
	}
	return v
}

// RenderPage renders annotations in the given order, which is the z-order.
func (r *Renderer) RenderPage(annotations []annotation.Annotation, selectedID uuid.UUID, scale float64) []Visual {
	out := make([]Visual, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, r.Render(a, scale, a.ID != uuid.Nil && a.ID == selectedID))
	}
	return out
}

// Placement is the "place here" ghost for an armed tool at document point p.
func (r *Renderer) Placement(tool annotation.Variant, p geometry.Point, scale float64) Visual {
	if !geometry.ValidScale(scale) {
		scale = 1
	}
	w, h := interaction.DefaultSize(tool)
	return Visual{
		Variant: tool,
		Kind:    KindPlacement,
		Frame:   geometry.ToScreen(geometry.Rect{X: p.X, Y: p.Y, Width: w, Height: h}, scale),
	}
}

// Decorate builds the selection decoration for a screen-space frame.
func Decorate(frame geometry.Rect) *Selection {
	sel := &Selection{
		Outline: frame,
		Dashed:  true,
		DragHandle: geometry.Rect{
			X:      frame.X + frame.Width/2 - dragHandleSize/2,
			Y:      frame.Y - dragHandleSize - controlGap,
			Width:  dragHandleSize,
			Height: dragHandleSize,
		},
		Anchors: AnchorTargets(frame),
	}

	top := frame.Y - controlSize - controlGap
	sel.Controls = []Control{
		{Action: ActionEdit, Rect: geometry.Rect{
			X: frame.Right() - 2*controlSize - controlGap, Y: top, Width: controlSize, Height: controlSize,
		}},
		{Action: ActionDelete, Rect: geometry.Rect{
			X: frame.Right() - controlSize, Y: top, Width: controlSize, Height: controlSize,
		}},
	}
	return sel
}

// AnchorTargets returns the eight resize hit areas centered on frame's
// corners and edge midpoints.
func AnchorTargets(frame geometry.Rect) []AnchorTarget {
	out := make([]AnchorTarget, 0, len(gesture.Anchors))
	for _, anchor := range gesture.Anchors {
		p := anchor.Point(frame)
		out = append(out, AnchorTarget{
			Anchor: string(anchor),
			Rect:   geometry.Rect{X: p.X - anchorSize/2, Y: p.Y - anchorSize/2, Width: anchorSize, Height: anchorSize},
			Cursor: anchor.Cursor(),
		})
	}
	return out
}

func (r *Renderer) highlight(p annotation.HighlightArea) *ShapeElement {
	shape := p.Shape
	if _, ok := cornerRadius[shape]; !ok {
		shape = annotation.ShapeRectangle
	}
	return &ShapeElement{
		Shape:        shape,
		Fill:         colorOr(p.Color, Yellow),
		Opacity:      opacityOr(p.Opacity, highlightOpacity),
		CornerRadius: cornerRadius[shape],
	}
}

func (r *Renderer) image(id uuid.UUID, src string, frame geometry.Rect) *ImageElement {
	el := &ImageElement{Source: src, Box: frame, Scale: ScaleStretch, Opacity: 1}
	if src == "" {
		return el
	}
	iw, ih, err := IntrinsicSize(src)
	if err != nil {
		r.log.Debug("image size unknown; stretching to frame", "id", id, "error", err)
		return el
	}
	el.Box = fit(frame, iw, ih)
	el.Scale = ScaleFit
	el.IntrinsicWidth, el.IntrinsicHeight = iw, ih
	return el
}

func (r *Renderer) dateTime(p annotation.DateTimeStamp, frame geometry.Rect, scale float64) *TextElement {
	ts := p.DateTime
	if p.AutoUpdate || ts.IsZero() {
		ts = r.now()
	}
	text := dateformat.Format(ts, p.Format, p.Timezone)

	style := textlayout.Style{Size: sizeOr(p.FontSize) * scale, Family: textlayout.FamilySans}
	return &TextElement{
		Lines:      r.measurer.Wrap(text, style, frame.Width),
		Size:       style.Size,
		LineHeight: style.LineHeight(),
		Family:     style.Family,
		Color:      colorOr(p.Color, Black),
		Align:      annotation.AlignLeft,
	}
}

func (r *Renderer) textArea(p annotation.TextArea, frame geometry.Rect, scale float64) *TextElement {
	style := textlayout.Style{
		Size:   sizeOr(p.FontSize) * scale,
		Family: textlayout.ParseFamily(p.FontFamily),
		Bold:   p.Bold,
		Italic: p.Italic,
	}
	border := 0.0
	if p.BorderWidth > 0 && geometry.Finite(p.BorderWidth) {
		border = p.BorderWidth * scale
	}
	padding := textPadding * scale
	inner := frame.Width - 2*(padding+border)

	align := p.Align
	switch align {
	case annotation.AlignLeft, annotation.AlignCenter, annotation.AlignRight:
	default:
		align = annotation.AlignLeft
	}

	el := &TextElement{
		Lines:       r.measurer.Wrap(p.Text, style, max(inner, 1)),
		Size:        style.Size,
		LineHeight:  style.LineHeight(),
		Family:      style.Family,
		Bold:        p.Bold,
		Italic:      p.Italic,
		Underline:   p.Underline,
		Color:       colorOr(p.Color, Black),
		Background:  optionalColor(p.BackgroundColor),
		BorderColor: optionalColor(p.BorderColor),
		Align:       align,
		Padding:     padding,
	}
	if el.BorderColor != nil {
		el.BorderWidth = border
	}
	return el
}

// payloadOr dereferences p, yielding the zero payload when it is missing.
func payloadOr[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// opacityOr clamps o to [0,1]. Zero and invalid values select def.
func opacityOr(o, def float64) float64 {
	if o <= 0 || math.IsNaN(o) {
		return def
	}
	return min(o, 1)
}

func sizeOr(size float64) float64 {
	if size > 0 && geometry.Finite(size) {
		return size
	}
	return defaultFontSize
}

func normalizeDegrees(d float64) float64 {
	if !geometry.Finite(d) {
		return 0
	}
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
