package render

import (
	"github.com/google/uuid"

	"doc-markup/internal/annotation"
	"doc-markup/internal/geometry"
	"doc-markup/internal/textlayout"
)

// Kind identifies which element of a Visual is populated.
type Kind string

const (
	KindShape     Kind = "shape"
	KindImage     Kind = "image"
	KindText      Kind = "text"
	KindPlacement Kind = "placement"
)

// ImageScale defines how an image is mapped into its frame.
type ImageScale string

const (
	// ScaleFit proportionally scales the image to fit within the frame.
	ScaleFit ImageScale = "fit"
	// ScaleStretch fills the frame; used when the intrinsic size is unknown.
	ScaleStretch ImageScale = "stretch"
)

// Visual is the positioned, styled description of one annotation. All
// coordinates are screen space at the scale it was rendered with.
type Visual struct {
	ID        uuid.UUID          `json:"id,omitempty"`
	Variant   annotation.Variant `json:"variant"`
	Kind      Kind               `json:"kind"`
	Frame     geometry.Rect      `json:"frame"`
	Shape     *ShapeElement      `json:"shape,omitempty"`
	Image     *ImageElement      `json:"image,omitempty"`
	Text      *TextElement       `json:"text,omitempty"`
	Selection *Selection         `json:"selection,omitempty"`
}

// ShapeElement is a filled highlight. CornerRadius is a fraction of each
// dimension, as with a CSS percentage border-radius.
type ShapeElement struct {
	Shape        annotation.HighlightShape `json:"shape"`
	Fill         Color                     `json:"fill"`
	Opacity      float64                   `json:"opacity"`
	CornerRadius float64                   `json:"corner_radius"`
}

// ImageElement places an image inside its frame.
type ImageElement struct {
	Source          string        `json:"source"`
	Box             geometry.Rect `json:"box"`
	Scale           ImageScale    `json:"scale"`
	IntrinsicWidth  int           `json:"intrinsic_width,omitempty"`
	IntrinsicHeight int           `json:"intrinsic_height,omitempty"`
	Opacity         float64       `json:"opacity"`
	Rotation        float64       `json:"rotation,omitempty"`
	Title           string        `json:"title,omitempty"`
}

// TextElement is laid-out text. Lines are already wrapped to the frame.
type TextElement struct {
	Lines       []textlayout.Line    `json:"lines"`
	Size        float64              `json:"size"`
	LineHeight  float64              `json:"line_height"`
	Family      textlayout.Family    `json:"family"`
	Bold        bool                 `json:"bold,omitempty"`
	Italic      bool                 `json:"italic,omitempty"`
	Underline   bool                 `json:"underline,omitempty"`
	Color       Color                `json:"color"`
	Background  *Color               `json:"background,omitempty"`
	BorderColor *Color               `json:"border_color,omitempty"`
	BorderWidth float64              `json:"border_width,omitempty"`
	Align       annotation.TextAlign `json:"align"`
	Padding     float64              `json:"padding"`
}

// Selection is the decoration layered over the selected annotation.
type Selection struct {
	Outline    geometry.Rect  `json:"outline"`
	Dashed     bool           `json:"dashed"`
	DragHandle geometry.Rect  `json:"drag_handle"`
	Anchors    []AnchorTarget `json:"anchors"`
	Controls   []Control      `json:"controls"`
}

// AnchorTarget is the hit area of one resize handle.
type AnchorTarget struct {
	Anchor string        `json:"anchor"`
	Rect   geometry.Rect `json:"rect"`
	Cursor string        `json:"cursor"`
}

// Action names a control in the selection cluster.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

type Control struct {
	Action Action        `json:"action"`
	Rect   geometry.Rect `json:"rect"`
}
