// Package cover turns work cover images into BlurHash placeholders, which the
// grid shows instead of the cover when mosaic mode is on.
package cover

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// thumbSize is the longest edge the image is scaled to before encoding.
// BlurHash output barely changes above it.
const thumbSize = 64

// Components of the hash. Covers are portrait, so more vertical detail.
const (
	xComponents = 3
	yComponents = 4
)

// Placeholder is an encoded cover with the source dimensions, so the grid can
// reserve the right aspect ratio.
type Placeholder struct {
	Hash   string `json:"hash"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	// Source is the cover URL the hash was computed from.
	Source string `json:"source,omitempty"`
}

// Encode decodes an image and computes its placeholder.
func Encode(data []byte) (*Placeholder, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	hash, err := blurhash.Encode(xComponents, yComponents, thumbnail(img))
	if err != nil {
		return nil, fmt.Errorf("encode blurhash: %w", err)
	}

	return &Placeholder{Hash: hash, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// thumbnail scales img so its longest edge is at most thumbSize.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= thumbSize && h <= thumbSize {
		return img
	}

	var dw, dh int
	if w > h {
		dw, dh = thumbSize, max(1, h*thumbSize/w)
	} else {
		dw, dh = max(1, w*thumbSize/h), thumbSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
