package gesture

import "doc-markup/internal/geometry"

// EventKind identifies a surface-wide pointer event.
type EventKind int

const (
	EventPointerMove EventKind = iota
	EventPointerUp
)

type listener struct {
	id uint32
	fn func(geometry.Point)
}

// Listeners is the surface-wide pointer listener registry. Gesture sessions
// attach to it only while a drag or resize is in progress.
type Listeners struct {
	move   []listener
	up     []listener
	nextID uint32
}

// Handle removes a registered listener.
type Handle struct {
	id   uint32
	reg  *Listeners
	kind EventKind
}

// On registers fn for kind.
func (l *Listeners) On(kind EventKind, fn func(geometry.Point)) Handle {
	l.nextID++
	entry := listener{id: l.nextID, fn: fn}
	switch kind {
	case EventPointerMove:
		l.move = append(l.move, entry)
	case EventPointerUp:
		l.up = append(l.up, entry)
	}
	return Handle{id: entry.id, reg: l, kind: kind}
}

// Remove unregisters the listener. Removing twice is harmless.
func (h Handle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.kind {
	case EventPointerMove:
		h.reg.move = removeListener(h.reg.move, h.id)
	case EventPointerUp:
		h.reg.up = removeListener(h.reg.up, h.id)
	}
}

func removeListener(s []listener, id uint32) []listener {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = listener{}
			return s[:len(s)-1]
		}
	}
	return s
}

// Dispatch calls every listener registered for kind. Listeners may remove
// themselves while being called.
func (l *Listeners) Dispatch(kind EventKind, p geometry.Point) int {
	var src []listener
	switch kind {
	case EventPointerMove:
		src = l.move
	case EventPointerUp:
		src = l.up
	}
	snapshot := make([]listener, len(src))
	copy(snapshot, src)
	for _, entry := range snapshot {
		entry.fn(p)
	}
	return len(snapshot)
}

// Count returns the number of attached listeners.
func (l *Listeners) Count() int {
	return len(l.move) + len(l.up)
}
