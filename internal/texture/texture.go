// Package texture decodes glTF image payloads into RGBA pixels.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ErrUnsupported is returned for payloads that are not a supported image.
var ErrUnsupported = errors.New("unsupported image format")

var supported = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/bmp":  true,
	"image/webp": true,
}

// Sniff returns the MIME type detected from the payload's magic bytes, or ""
// when the content is not a known image.
func Sniff(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Decode decodes data to RGBA. mimeType is the declared type and may be
// empty; the sniffed type wins when both are known.
func Decode(data []byte, mimeType string) (*image.RGBA, error) {
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%w: declared %q", ErrUnsupported, mimeType)
	}
	detected := Sniff(data)
	if !supported[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", detected, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA returns img as an *image.RGBA with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
