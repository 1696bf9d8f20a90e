// Package geometry maps between document space (scale 1.0), where annotations
// are stored, and screen space, which depends on the viewer's current zoom.
//
// Nothing here caches a scale: callers pass the current scale on every call.
package geometry

import "math"

// MinScreenSize is the smallest on-screen edge, in pixels, an annotation may
// be resized to.
const MinScreenSize = 20.0

// Point is a position in either coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in either coordinate space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ValidScale reports whether scale can be used for a conversion.
func ValidScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 0) && !math.IsNaN(scale)
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ToScreen multiplies every field of a document-space rect by scale.
func ToScreen(doc Rect, scale float64) Rect {
	return Rect{
		X:      doc.X * scale,
		Y:      doc.Y * scale,
		Width:  doc.Width * scale,
		Height: doc.Height * scale,
	}
}

// ToDocument divides every field of a screen-space rect by scale.
func ToDocument(screen Rect, scale float64) Rect {
	return Rect{
		X:      screen.X / scale,
		Y:      screen.Y / scale,
		Width:  screen.Width / scale,
		Height: screen.Height / scale,
	}
}

// PointToScreen converts a document-space point to screen space.
func PointToScreen(p Point, scale float64) Point {
	return Point{X: p.X * scale, Y: p.Y * scale}
}

// PointToDocument converts a screen-space point to document space.
func PointToDocument(p Point, scale float64) Point {
	return Point{X: p.X / scale, Y: p.Y / scale}
}

// MinDocSize converts the minimum screen footprint into document units at
// the given scale. An invalid scale yields the footprint at scale 1.0.
func MinDocSize(scale float64) float64 {
	return MinDocSizeFor(MinScreenSize, scale)
}

// MinDocSizeFor is MinDocSize with a caller-supplied screen footprint.
func MinDocSizeFor(minScreen, scale float64) float64 {
	if !ValidScale(scale) {
		scale = 1
	}
	if !Finite(minScreen) || minScreen <= 0 {
		minScreen = MinScreenSize
	}
	return minScreen / scale
}

// Normalize returns r with non-finite positions reset to zero and
// non-finite or too-small dimensions raised to minSize.
func (r Rect) Normalize(minSize float64) Rect {
	if !Finite(minSize) || minSize <= 0 {
		minSize = MinScreenSize
	}
	if !Finite(r.X) {
		r.X = 0
	}
	if !Finite(r.Y) {
		r.Y = 0
	}
	if !Finite(r.Width) || r.Width < minSize {
		r.Width = minSize
	}
	if !Finite(r.Height) || r.Height < minSize {
		r.Height = minSize
	}
	return r
}

// Sanitize returns r with non-finite positions reset to zero and
// non-finite or non-positive dimensions replaced by fallback. Positive
// dimensions are kept even when smaller than fallback.
func (r Rect) Sanitize(fallback float64) Rect {
	if !Finite(fallback) || fallback <= 0 {
		fallback = MinScreenSize
	}
	if !Finite(r.X) {
		r.X = 0
	}
	if !Finite(r.Y) {
		r.Y = 0
	}
	if !Finite(r.Width) || r.Width <= 0 {
		r.Width = fallback
	}
	if !Finite(r.Height) || r.Height <= 0 {
		r.Height = fallback
	}
	return r
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Right is the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom is the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Origin returns the top-left corner.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
