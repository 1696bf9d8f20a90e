// Package textlayout measures and wraps annotation text with the bundled Go
// fonts so that line breaks match what the renderer draws.
package textlayout

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

// DefaultSize is used when a style carries no positive font size.
const DefaultSize = 14.0

// LineHeightFactor converts a font size into the distance between baselines.
const LineHeightFactor = 1.2

type Style struct {
	Size   float64
	Family Family
	Bold   bool
	Italic bool
}

func (s Style) size() float64 {
	if s.Size > 0 && !math.IsInf(s.Size, 0) {
		return s.Size
	}
	return DefaultSize
}

// LineHeight is the baseline-to-baseline distance for s.
func (s Style) LineHeight() float64 { return s.size() * LineHeightFactor }

// Line is one laid-out line of text.
type Line struct {
	Text  string  `json:"text"`
	Width float64 `json:"width"`
}

// Measurer computes text widths. The zero value is not usable; call New or
// Default.
type Measurer struct {
	faces map[faceKey]*metrics
}

// New parses every bundled face.
func New() (*Measurer, error) {
	m := &Measurer{faces: make(map[faceKey]*metrics, len(faceData))}
	for key, data := range faceData {
		fm, err := parseMetrics(data)
		if err != nil {
			return nil, fmt.Errorf("load %s face (bold=%t italic=%t): %w", key.family, key.bold, key.italic, err)
		}
		m.faces[key] = fm
	}
	return m, nil
}

var (
	defaultOnce     sync.Once
	defaultMeasurer *Measurer
)

// Default returns a process-wide Measurer. The bundled fonts are known good,
// so a parse failure is a build defect and panics.
func Default() *Measurer {
	defaultOnce.Do(func() {
		m, err := New()
		if err != nil {
			panic(err)
		}
		defaultMeasurer = m
	})
	return defaultMeasurer
}

func (m *Measurer) face(s Style) *metrics {
	family := s.Family
	if family == "" {
		family = FamilySans
	}
	if f, ok := m.faces[faceKey{family, s.Bold, s.Italic}]; ok {
		return f
	}
	return m.faces[faceKey{FamilySans, false, false}]
}

// Width returns the advance width of text in the same units as s.Size.
func (m *Measurer) Width(text string, s Style) float64 {
	return m.face(s).stringWidth(text, s.size())
}

// Wrap breaks text into lines no wider than maxWidth. Lines break at spaces
// and hard newlines; a word wider than maxWidth is split between grapheme
// clusters. Every line holds at least one cluster, so a single cluster wider
// than maxWidth still gets its own line. A non-positive or non-finite
// maxWidth disables wrapping.
func (m *Measurer) Wrap(text string, s Style, maxWidth float64) []Line {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	wrap := maxWidth > 0 && !math.IsInf(maxWidth, 0) && !math.IsNaN(maxWidth)

	var out []Line
	for _, para := range strings.Split(text, "\n") {
		if !wrap {
			out = append(out, m.line(para, s))
			continue
		}
		out = m.wrapParagraph(out, para, s, maxWidth)
	}
	return out
}

func (m *Measurer) line(text string, s Style) Line {
	return Line{Text: text, Width: m.Width(text, s)}
}

func (m *Measurer) wrapParagraph(out []Line, para string, s Style, maxWidth float64) []Line {
	if para == "" {
		return append(out, Line{})
	}

	var cur string
	hasCur := false
	for _, word := range strings.Split(para, " ") {
		candidate := word
		if hasCur {
			candidate = cur + " " + word
		}
		if m.Width(candidate, s) <= maxWidth {
			cur, hasCur = candidate, true
			continue
		}
		if hasCur {
			out = append(out, m.line(cur, s))
		}
		if m.Width(word, s) <= maxWidth {
			cur, hasCur = word, true
			continue
		}
		pieces := m.splitWord(word, s, maxWidth)
		out = append(out, pieces[:len(pieces)-1]...)
		last := pieces[len(pieces)-1]
		cur, hasCur = last.Text, true
	}
	if hasCur {
		out = append(out, m.line(cur, s))
	}
	return out
}

// splitWord cuts word into grapheme-aligned pieces that each fit maxWidth.
func (m *Measurer) splitWord(word string, s Style, maxWidth float64) []Line {
	var (
		pieces []Line
		cur    strings.Builder
		state  = -1
		rest   = word
	)
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if cur.Len() > 0 && m.Width(cur.String()+cluster, s) > maxWidth {
			pieces = append(pieces, m.line(cur.String(), s))
			cur.Reset()
		}
		cur.WriteString(cluster)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, m.line(cur.String(), s))
	}
	return pieces
}
