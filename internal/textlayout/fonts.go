package textlayout

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Family selects one of the bundled typefaces.
type Family string

const (
	FamilySans Family = "sans"
	FamilyMono Family = "mono"
)

// ParseFamily maps a CSS-like family name onto a bundled typeface. Anything
// that is not recognizably monospace falls back to sans.
func ParseFamily(name string) Family {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mono", "monospace", "courier", "courier new", "go mono":
		return FamilyMono
	}
	return FamilySans
}

type faceKey struct {
	family       Family
	bold, italic bool
}

var faceData = map[faceKey][]byte{
	{FamilySans, false, false}: goregular.TTF,
	{FamilySans, true, false}:  gobold.TTF,
	{FamilySans, false, true}:  goitalic.TTF,
	{FamilySans, true, true}:   gobolditalic.TTF,
	{FamilyMono, false, false}: gomono.TTF,
	{FamilyMono, true, false}:  gomonobold.TTF,
	{FamilyMono, false, true}:  gomonoitalic.TTF,
	{FamilyMono, true, true}:   gomonobolditalic.TTF,
}

// metrics holds advance widths in font units for one face.
type metrics struct {
	unitsPerEm int
	widths     map[rune]int
	font       *sfnt.Font

	mu    sync.Mutex
	extra map[rune]int
}

func parseMetrics(data []byte) (*metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	m := &metrics{
		unitsPerEm: int(f.UnitsPerEm()),
		widths:     make(map[rune]int),
		font:       f,
		extra:      make(map[rune]int),
	}

	var buf sfnt.Buffer
	for r := rune(32); r <= rune(255); r++ {
		if w, ok := m.lookup(&buf, r); ok {
			m.widths[r] = w
		}
	}
	return m, nil
}

// lookup reads the advance of r with ppem equal to unitsPerEm so the 26.6
// result is already in font units.
func (m *metrics) lookup(buf *sfnt.Buffer, r rune) (int, bool) {
	idx, err := m.font.GlyphIndex(buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	ppem := fixed.Int26_6(m.unitsPerEm) << 6
	adv, err := m.font.GlyphAdvance(buf, idx, ppem, font.HintingNone)
	if err != nil {
		return 0, false
	}
	return int(adv >> 6), true
}

// glyphWidth returns the advance of r in font units. Runes the face cannot
// draw count as half an em.
func (m *metrics) glyphWidth(r rune) int {
	if w, ok := m.widths[r]; ok {
		return w
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.extra[r]; ok {
		return w
	}
	var buf sfnt.Buffer
	w, ok := m.lookup(&buf, r)
	if !ok {
		w = m.unitsPerEm / 2
	}
	m.extra[r] = w
	return w
}

func (m *metrics) stringWidth(s string, size float64) float64 {
	total := 0
	for _, r := range s {
		total += m.glyphWidth(r)
	}
	return float64(total) / float64(m.unitsPerEm) * size
}
