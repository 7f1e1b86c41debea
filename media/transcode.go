package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	jpegQuality = 92
	// MaxDownloadSize bounds the bytes read for a download.
	MaxDownloadSize = 40 << 20
)

// Image is a JPEG encoded download.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Transcode decodes any supported image from src and encodes it as JPEG.
// Images wider than maxWidth are scaled down; maxWidth <= 0 keeps the
// original size.
func Transcode(src io.Reader, maxWidth int) (Image, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Image{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Image{Data: buf.Bytes(), Width: w, Height: h}, nil
}
