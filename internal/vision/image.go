package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxImageSide is the longest side, in pixels, of the photo sent to a model.
const MaxImageSide = 1024

const (
	preparedMIMEType = "image/jpeg"
	jpegQuality      = 85
	maxSourcePixels  = 50_000_000
)

// PrepareImage decodes a JPEG, PNG, GIF or WebP photo, shrinks it so that its
// longest side is at most maxSide pixels and re-encodes it as an opaque JPEG.
// Smaller photos keep their size. A non-positive maxSide disables the resize.
func PrepareImage(data []byte, maxSide int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d pixels is too large", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	sr := src.Bounds()
	w, h := fitWithin(sr.Dx(), sr.Dy(), maxSide)

	// Transparent pixels end up on white.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// fitWithin scales w x h down, keeping the aspect ratio, so that neither side
// exceeds maxSide.
func fitWithin(w, h, maxSide int) (int, int) {
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return w, h
	}
	ratio := float64(maxSide) / float64(longest)
	return max(1, int(float64(w)*ratio)), max(1, int(float64(h)*ratio))
}

// prepareUpload validates the declared type and returns the photo ready to
// send, with its new MIME type.
func prepareUpload(data []byte, mimeType string) ([]byte, string, error) {
	if _, err := DetectImageType(data, mimeType); err != nil {
		return nil, "", err
	}
	prepared, err := PrepareImage(data, MaxImageSide)
	if err != nil {
		return nil, "", err
	}
	return prepared, preparedMIMEType, nil
}
