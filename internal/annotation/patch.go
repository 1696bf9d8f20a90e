package annotation

import (
	"reflect"
	"time"

	"doc-markup/internal/geometry"
)

// Patch is a partial update. Nil fields are left unchanged. Payload, when
// set, must match the annotation's variant and replaces the stored payload.
type Patch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64

	Payload Payload
	// PayloadFields names the payload fields that differ from the stored
	// payload, as reported by Diff. Informational only.
	PayloadFields []string
}

// BoundsPatch builds a patch that overwrites all four bounds.
func BoundsPatch(r geometry.Rect) Patch {
	return Patch{X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil && derefPayload(p.Payload) == nil
}

// Fields lists the names of every field the patch sets.
func (p Patch) Fields() []string {
	var out []string
	if p.X != nil {
		out = append(out, "x")
	}
	if p.Y != nil {
		out = append(out, "y")
	}
	if p.Width != nil {
		out = append(out, "width")
	}
	if p.Height != nil {
		out = append(out, "height")
	}
	if derefPayload(p.Payload) != nil {
		if len(p.PayloadFields) > 0 {
			out = append(out, p.PayloadFields...)
		} else {
			out = append(out, "payload")
		}
	}
	return out
}

// apply merges p into a. Non-finite numbers are dropped, non-positive
// dimensions are raised to minSize, a payload of another variant is
// ignored. It reports whether the patch carried a mismatched payload.
func (p Patch) apply(a *Annotation, minSize float64) (mismatch bool) {
	if p.X != nil && geometry.Finite(*p.X) {
		a.X = *p.X
	}
	if p.Y != nil && geometry.Finite(*p.Y) {
		a.Y = *p.Y
	}
	if p.Width != nil && geometry.Finite(*p.Width) {
		a.Width = *p.Width
	}
	if p.Height != nil && geometry.Finite(*p.Height) {
		a.Height = *p.Height
	}
	a.SetBounds(a.Bounds().Sanitize(minSize))

	if payload := derefPayload(p.Payload); payload != nil {
		if payload.Variant() != a.Variant {
			return true
		}
		a.SetPayload(payload)
	}
	return false
}

// Diff returns a patch holding only what differs between existing and
// updated. Identity fields (id, variant, page, creation time) are never
// part of a patch.
func Diff(existing, updated Annotation) Patch {
	var p Patch
	if updated.X != existing.X {
		p.X = &updated.X
	}
	if updated.Y != existing.Y {
		p.Y = &updated.Y
	}
	if updated.Width != existing.Width {
		p.Width = &updated.Width
	}
	if updated.Height != existing.Height {
		p.Height = &updated.Height
	}

	oldPayload, newPayload := existing.Payload(), updated.Payload()
	if newPayload != nil && (oldPayload == nil || newPayload.Variant() == oldPayload.Variant()) {
		if fields := changedFields(oldPayload, newPayload); len(fields) > 0 {
			p.Payload = newPayload
			p.PayloadFields = fields
		}
	}
	return p
}

// changedFields compares two payload structs of the same type field by field
// and returns the json names of the fields that differ.
func changedFields(oldPayload, newPayload Payload) []string {
	nv := reflect.ValueOf(newPayload)
	nt := nv.Type()
	var ov reflect.Value
	if oldPayload != nil {
		ov = reflect.ValueOf(oldPayload)
	}

	var out []string
	for i := 0; i < nt.NumField(); i++ {
		f := nt.Field(i)
		if ov.IsValid() && fieldEqual(ov.Field(i), nv.Field(i)) {
			continue
		}
		out = append(out, jsonName(f))
	}
	return out
}

func fieldEqual(a, b reflect.Value) bool {
	if ta, ok := a.Interface().(time.Time); ok {
		return ta.Equal(b.Interface().(time.Time))
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			tag = tag[:i]
			break
		}
	}
	if tag == "" || tag == "-" {
		return f.Name
	}
	return tag
}
