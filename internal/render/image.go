package render

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"doc-markup/internal/geometry"
)

var ErrNotDataURL = errors.New("image source is not a data URL")

// IntrinsicSize decodes only the header of a data-URL image to find its
// pixel dimensions.
func IntrinsicSize(src string) (width, height int, err error) {
	if !strings.HasPrefix(src, "data:") {
		return 0, 0, ErrNotDataURL
	}
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return 0, 0, fmt.Errorf("%w: missing payload", ErrNotDataURL)
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]

	var r io.Reader = strings.NewReader(payload)
	if strings.HasSuffix(meta, ";base64") {
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// fit centers an iw x ih image inside frame, preserving aspect ratio.
func fit(frame geometry.Rect, iw, ih int) geometry.Rect {
	if iw <= 0 || ih <= 0 {
		return frame
	}
	ratio := min(frame.Width/float64(iw), frame.Height/float64(ih))
	w, h := float64(iw)*ratio, float64(ih)*ratio
	return geometry.Rect{
		X:      frame.X + (frame.Width-w)/2,
		Y:      frame.Y + (frame.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
