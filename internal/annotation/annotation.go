package annotation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doc-markup/internal/geometry"
)

// Variant enumerates the markup kinds. It doubles as the tool identifier on
// the palette.
type Variant string

const (
	VariantImageStamp      Variant = "image-stamp"
	VariantHighlightArea   Variant = "highlight-area"
	VariantSignature       Variant = "signature"
	VariantDateTimeStamp   Variant = "date-time-stamp"
	VariantTextArea        Variant = "text-area"
	VariantImageAttachment Variant = "image-attachment"
)

// Variants lists every variant in palette order.
var Variants = []Variant{
	VariantImageStamp,
	VariantHighlightArea,
	VariantSignature,
	VariantDateTimeStamp,
	VariantTextArea,
	VariantImageAttachment,
}

var (
	ErrUnknownVariant  = errors.New("unknown annotation variant")
	ErrPayloadMismatch = errors.New("payload does not match variant")
)

// Valid reports whether v is one of the six known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantImageStamp, VariantHighlightArea, VariantSignature,
		VariantDateTimeStamp, VariantTextArea, VariantImageAttachment:
		return true
	}
	return false
}

// ParseVariant converts a wire name into a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
	return v, nil
}

// Ptr returns a pointer to a copy of v, for optional-tool setters.
func (v Variant) Ptr() *Variant { return &v }

// HighlightShape selects the corner style of a highlight. Freeform is a
// rendering style only; no path is traced.
type HighlightShape string

const (
	ShapeRectangle HighlightShape = "rectangle"
	ShapeEllipse   HighlightShape = "ellipse"
	ShapeFreeform  HighlightShape = "freeform"
)

// TextAlign is the horizontal alignment of a text area.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// Payload is the variant-specific part of an annotation. The set of
// implementations is closed to this package.
type Payload interface {
	Variant() Variant
	isPayload()
}

type ImageStamp struct {
	ImageData string  `json:"image_data"`
	Opacity   float64 `json:"opacity"`
	Rotation  float64 `json:"rotation"`
}

type HighlightArea struct {
	Color   string         `json:"color"`
	Opacity float64        `json:"opacity"`
	Shape   HighlightShape `json:"shape"`
}

type Signature struct {
	ImageData string `json:"image_data"`
}

// DateTimeStamp renders DateTime through Format at display time. With
// AutoUpdate set the current time is shown instead.
type DateTimeStamp struct {
	DateTime   time.Time `json:"date_time"`
	Format     string    `json:"format"`
	Timezone   string    `json:"timezone,omitempty"`
	AutoUpdate bool      `json:"auto_update"`
	FontSize   float64   `json:"font_size,omitempty"`
	Color      string    `json:"color,omitempty"`
}

type TextArea struct {
	Text            string    `json:"text"`
	FontSize        float64   `json:"font_size"`
	FontFamily      string    `json:"font_family,omitempty"`
	Color           string    `json:"color"`
	BackgroundColor string    `json:"background_color,omitempty"`
	BorderColor     string    `json:"border_color,omitempty"`
	BorderWidth     float64   `json:"border_width,omitempty"`
	Align           TextAlign `json:"align"`
	Bold            bool      `json:"bold,omitempty"`
	Italic          bool      `json:"italic,omitempty"`
	Underline       bool      `json:"underline,omitempty"`
}

type ImageAttachment struct {
	ImageData string `json:"image_data"`
	FileName  string `json:"file_name,omitempty"`
}

func (ImageStamp) Variant() Variant      { return VariantImageStamp }
func (HighlightArea) Variant() Variant   { return VariantHighlightArea }
func (Signature) Variant() Variant       { return VariantSignature }
func (DateTimeStamp) Variant() Variant   { return VariantDateTimeStamp }
func (TextArea) Variant() Variant        { return VariantTextArea }
func (ImageAttachment) Variant() Variant { return VariantImageAttachment }

func (ImageStamp) isPayload()      {}
func (HighlightArea) isPayload()   {}
func (Signature) isPayload()       {}
func (DateTimeStamp) isPayload()   {}
func (TextArea) isPayload()        {}
func (ImageAttachment) isPayload() {}

// Annotation is one placed markup object. Exactly one payload pointer is set
// and it matches Variant.
type Annotation struct {
	ID         uuid.UUID `json:"id"`
	Variant    Variant   `json:"variant"`
	PageNumber int       `json:"page_number"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	CreatedAt  time.Time `json:"created_at"`

	ImageStamp      *ImageStamp      `json:"image_stamp,omitempty"`
	HighlightArea   *HighlightArea   `json:"highlight_area,omitempty"`
	Signature       *Signature       `json:"signature,omitempty"`
	DateTimeStamp   *DateTimeStamp   `json:"date_time_stamp,omitempty"`
	TextArea        *TextArea        `json:"text_area,omitempty"`
	ImageAttachment *ImageAttachment `json:"image_attachment,omitempty"`

	seq uint64
}

// Bounds returns the document-space box.
func (a Annotation) Bounds() geometry.Rect {
	return geometry.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// SetBounds overwrites position and footprint.
func (a *Annotation) SetBounds(r geometry.Rect) {
	a.X, a.Y, a.Width, a.Height = r.X, r.Y, r.Width, r.Height
}

// Payload returns the populated payload for the annotation's variant, or
// nil when it is missing.
func (a Annotation) Payload() Payload {
	switch a.Variant {
	case VariantImageStamp:
		if a.ImageStamp != nil {
			return *a.ImageStamp
		}
	case VariantHighlightArea:
		if a.HighlightArea != nil {
			return *a.HighlightArea
		}
	case VariantSignature:
		if a.Signature != nil {
			return *a.Signature
		}
	case VariantDateTimeStamp:
		if a.DateTimeStamp != nil {
			return *a.DateTimeStamp
		}
	case VariantTextArea:
		if a.TextArea != nil {
			return *a.TextArea
		}
	case VariantImageAttachment:
		if a.ImageAttachment != nil {
			return *a.ImageAttachment
		}
	}
	return nil
}

// SetPayload stores p, sets Variant to match and clears every other payload.
// A nil payload leaves the annotation untouched.
func (a *Annotation) SetPayload(p Payload) {
	p = derefPayload(p)
	if p == nil {
		return
	}
	a.ImageStamp, a.HighlightArea, a.Signature = nil, nil, nil
	a.DateTimeStamp, a.TextArea, a.ImageAttachment = nil, nil, nil
	switch v := p.(type) {
	case ImageStamp:
		a.ImageStamp = &v
	case HighlightArea:
		a.HighlightArea = &v
	case Signature:
		a.Signature = &v
	case DateTimeStamp:
		a.DateTimeStamp = &v
	case TextArea:
		a.TextArea = &v
	case ImageAttachment:
		a.ImageAttachment = &v
	}
	a.Variant = p.Variant()
}

// derefPayload turns pointer payloads into values; nil pointers become nil.
func derefPayload(p Payload) Payload {
	switch v := p.(type) {
	case *ImageStamp:
		if v == nil {
			return nil
		}
		return *v
	case *HighlightArea:
		if v == nil {
			return nil
		}
		return *v
	case *Signature:
		if v == nil {
			return nil
		}
		return *v
	case *DateTimeStamp:
		if v == nil {
			return nil
		}
		return *v
	case *TextArea:
		if v == nil {
			return nil
		}
		return *v
	case *ImageAttachment:
		if v == nil {
			return nil
		}
		return *v
	}
	return p
}

// Validate checks structural shape only: known variant, matching payload,
// positive page and dimensions. Payload content is the configuration
// step's concern.
func (a Annotation) Validate() error {
	if !a.Variant.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, a.Variant)
	}
	if a.Payload() == nil {
		return fmt.Errorf("%w: %s has no payload", ErrPayloadMismatch, a.Variant)
	}
	if a.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", a.PageNumber)
	}
	if !(a.Width > 0) || !(a.Height > 0) {
		return fmt.Errorf("dimensions must be positive, got %gx%g", a.Width, a.Height)
	}
	return nil
}

// clone returns a deep copy so store contents never alias caller values.
func (a Annotation) clone() Annotation {
	out := a
	if a.ImageStamp != nil {
		v := *a.ImageStamp
		out.ImageStamp = &v
	}
	if a.HighlightArea != nil {
		v := *a.HighlightArea
		out.HighlightArea = &v
	}
	if a.Signature != nil {
		v := *a.Signature
		out.Signature = &v
	}
	if a.DateTimeStamp != nil {
		v := *a.DateTimeStamp
		out.DateTimeStamp = &v
	}
	if a.TextArea != nil {
		v := *a.TextArea
		out.TextArea = &v
	}
	if a.ImageAttachment != nil {
		v := *a.ImageAttachment
		out.ImageAttachment = &v
	}
	return out
}
