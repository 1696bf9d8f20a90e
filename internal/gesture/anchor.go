package gesture

import (
	"errors"
	"fmt"

	"doc-markup/internal/geometry"
)

// Anchor is one of the eight resize handles around a selected annotation.
type Anchor string

const (
	AnchorNW Anchor = "nw"
	AnchorN  Anchor = "n"
	AnchorNE Anchor = "ne"
	AnchorE  Anchor = "e"
	AnchorSE Anchor = "se"
	AnchorS  Anchor = "s"
	AnchorSW Anchor = "sw"
	AnchorW  Anchor = "w"
)

// Anchors lists the handles clockwise from the top-left corner.
var Anchors = []Anchor{AnchorNW, AnchorN, AnchorNE, AnchorE, AnchorSE, AnchorS, AnchorSW, AnchorW}

var ErrUnknownAnchor = errors.New("unknown resize anchor")

func ParseAnchor(s string) (Anchor, error) {
	a := Anchor(s)
	for _, known := range Anchors {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAnchor, s)
}

// edges describes which box edges an anchor drags.
type edges struct {
	left, right, top, bottom bool
}

func (a Anchor) edges() edges {
	switch a {
	case AnchorNW:
		return edges{left: true, top: true}
	case AnchorN:
		return edges{top: true}
	case AnchorNE:
		return edges{right: true, top: true}
	case AnchorE:
		return edges{right: true}
	case AnchorSE:
		return edges{right: true, bottom: true}
	case AnchorS:
		return edges{bottom: true}
	case AnchorSW:
		return edges{left: true, bottom: true}
	case AnchorW:
		return edges{left: true}
	}
	return edges{}
}

// Point returns the anchor's position on r, used for hit targets.
func (a Anchor) Point(r geometry.Rect) geometry.Point {
	e := a.edges()
	p := geometry.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
	switch {
	case e.left:
		p.X = r.X
	case e.right:
		p.X = r.Right()
	}
	switch {
	case e.top:
		p.Y = r.Y
	case e.bottom:
		p.Y = r.Bottom()
	}
	return p
}

// Cursor is the CSS cursor conventionally shown over the handle.
func (a Anchor) Cursor() string {
	return string(a) + "-resize"
}

// Translate offsets initial by delta without changing its size.
func Translate(initial geometry.Rect, delta geometry.Point) geometry.Rect {
	initial.X += delta.X
	initial.Y += delta.Y
	return initial
}

// Resize applies a document-space delta to initial through anchor. A dragged
// axis never drops below minSize; when an edge on the near side (left or
// top) is dragged past that limit the opposite edge stays fixed. The axis an
// anchor does not touch is returned unchanged.
func Resize(anchor Anchor, initial geometry.Rect, delta geometry.Point, minSize float64) geometry.Rect {
	e := anchor.edges()
	out := initial

	if e.left {
		out.X += delta.X
		out.Width -= delta.X
	}
	if e.right {
		out.Width += delta.X
	}
	if e.top {
		out.Y += delta.Y
		out.Height -= delta.Y
	}
	if e.bottom {
		out.Height += delta.Y
	}

	if (e.left || e.right) && out.Width < minSize {
		out.Width = minSize
		if e.left {
			out.X = initial.Right() - minSize
		}
	}
	if (e.top || e.bottom) && out.Height < minSize {
		out.Height = minSize
		if e.top {
			out.Y = initial.Bottom() - minSize
		}
	}
	return out
}
