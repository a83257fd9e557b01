// Package preview renders room canvases into small PNG thumbnails and
// BlurHash placeholders for room listings.
package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

const (
	// DefaultSize is the longest edge of a thumbnail.
	DefaultSize = 256

	// maxSourceEdge caps the intermediate raster. Canvases with a wider
	// bounding box are sampled into cells before scaling.
	maxSourceEdge = 1024

	// blurHashSize is the edge of the thumbnail fed to the BlurHash encoder.
	blurHashSize = 64
)

// ErrEmpty is returned when there is nothing to render.
var ErrEmpty = errors.New("preview: canvas is empty")

// Background fills cells with no pixel.
var Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Rasterize draws pixels onto an image covering their bounding box, one image
// pixel per cell, or one per block of cells when the box is larger than
// maxSourceEdge. Later pixels paint over earlier ones.
func Rasterize(pixels []domain.Pixel) (*image.RGBA, error) {
	if len(pixels) == 0 {
		return nil, ErrEmpty
	}

	minX, minY := pixels[0].X, pixels[0].Y
	maxX, maxY := minX, minY
	for _, p := range pixels[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	spanX := int64(maxX) - int64(minX) + 1
	spanY := int64(maxY) - int64(minY) + 1
	cell := max((max(spanX, spanY)+maxSourceEdge-1)/maxSourceEdge, 1)

	w := int((spanX + cell - 1) / cell)
	h := int((spanY + cell - 1) / cell)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	for _, p := range pixels {
		c, ok := ParseColor(p.Color)
		if !ok {
			c = fallbackColor
		}
		x := int((int64(p.X) - int64(minX)) / cell)
		y := int((int64(p.Y) - int64(minY)) / cell)
		img.SetRGBA(x, y, c)
	}
	return img, nil
}

// Thumbnail scales src so its longest edge is size, keeping the aspect
// ratio. Nearest-neighbor keeps pixel art crisp.
func Thumbnail(src image.Image, size int) image.Image {
	if size <= 0 {
		size = DefaultSize
	}
	dst := image.NewRGBA(fit(src.Bounds(), size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// fit returns a rectangle whose longest edge is size and whose aspect
// ratio matches b.
func fit(b image.Rectangle, size int) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w >= h {
		return image.Rect(0, 0, size, max(h*size/w, 1))
	}
	return image.Rect(0, 0, max(w*size/h, 1), size)
}

// PNG renders pixels as a PNG thumbnail.
func PNG(pixels []domain.Pixel, size int) ([]byte, error) {
	src, err := Rasterize(pixels)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Thumbnail(src, size)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Blank renders an empty canvas as a size by size PNG.
func Blank(size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// BlurHash computes a 4x3 BlurHash for pixels. An empty canvas has no hash.
func BlurHash(pixels []domain.Pixel) (string, error) {
	src, err := Rasterize(pixels)
	if err != nil {
		return "", err
	}

	var img image.Image = src
	if b := src.Bounds(); b.Dx() > blurHashSize || b.Dy() > blurHashSize {
		small := image.NewRGBA(fit(b, blurHashSize))
		draw.ApproxBiLinear.Scale(small, small.Bounds(), src, b, draw.Src, nil)
		img = small
	}

	hash, err := blurhash.Encode(4, 3, img)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
