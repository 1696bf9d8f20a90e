// Package pdfmeta reads the page geometry the markup engine needs from an
// uploaded PDF: how many pages it has and how large each one is.
package pdfmeta

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/ledongthuc/pdf"
)

// US Letter, in points, used when a page declares no MediaBox.
const (
	DefaultWidth  = 612.0
	DefaultHeight = 792.0
)

var (
	ErrNotPDF  = errors.New("not a readable PDF")
	ErrNoPages = errors.New("PDF has no pages")
)

// Page is the displayed size of one page in points, rotation applied.
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Info struct {
	PageCount int    `json:"page_count"`
	Pages     []Page `json:"pages"`
}

// Inspect parses content and returns its page geometry.
func Inspect(content []byte) (info Info, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			info, err = Info{}, fmt.Errorf("%w: %v", ErrNotPDF, rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	n := r.NumPage()
	if n < 1 {
		return Info{}, ErrNoPages
	}

	info = Info{PageCount: n, Pages: make([]Page, 0, n)}
	for i := 1; i <= n; i++ {
		info.Pages = append(info.Pages, pageSize(i, r.Page(i).V))
	}
	return info, nil
}

func pageSize(num int, v pdf.Value) Page {
	p := Page{Number: num, Width: DefaultWidth, Height: DefaultHeight}

	box := inherited(v, "MediaBox")
	if box.Kind() == pdf.Array && box.Len() == 4 {
		llx, lly := box.Index(0).Float64(), box.Index(1).Float64()
		urx, ury := box.Index(2).Float64(), box.Index(3).Float64()
		w, h := math.Abs(urx-llx), math.Abs(ury-lly)
		if w > 0 && h > 0 {
			p.Width, p.Height = w, h
		}
	}

	rotate := int(inherited(v, "Rotate").Int64()) % 360
	if rotate < 0 {
		rotate += 360
	}
	if rotate == 90 || rotate == 270 {
		p.Width, p.Height = p.Height, p.Width
	}
	return p
}

// inherited looks key up on the page and then its ancestors in the page tree.
func inherited(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// Page returns the size of page num (1-based).
func (i Info) Page(num int) (Page, bool) {
	if num < 1 || num > len(i.Pages) {
		return Page{}, false
	}
	return i.Pages[num-1], true
}
