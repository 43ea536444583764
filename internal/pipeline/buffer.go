package pipeline

import (
	"fmt"
	"image"

	apperrors "go-histopath/internal/errors"
)

// PixelBuffer is a decoded RGBA bitmap supplied by the acquisition layer.
// The buffer is owned by the caller and never mutated by the pipeline.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte // RGBA, 4 bytes per pixel, row-major
}

// NewPixelBufferFromImage copies an image.Image into an RGBA pixel buffer.
func NewPixelBufferFromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != width*4 || !bounds.Min.Eq(image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				rgba.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}

	pix := make([]byte, len(rgba.Pix))
	copy(pix, rgba.Pix)
	return &PixelBuffer{Width: width, Height: height, Pix: pix}
}

// Validate rejects buffers whose byte length does not match the declared
// dimensions. Fatal: no partial result is produced from a bad buffer.
func (b *PixelBuffer) Validate() error {
	if b == nil || len(b.Pix) == 0 {
		return apperrors.NewInvalidInputError("pixel buffer is empty", nil)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return apperrors.NewInvalidInputError(
			fmt.Sprintf("invalid dimensions %dx%d", b.Width, b.Height), nil)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return apperrors.NewInvalidInputError(
			fmt.Sprintf("buffer length %d does not match %dx%d RGBA", len(b.Pix), b.Width, b.Height), nil)
	}
	return nil
}

// RGBAt returns the color components of the pixel at (x, y).
func (b *PixelBuffer) RGBAt(x, y int) (r, g, bl byte) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// ToImage wraps the buffer in an image.RGBA sharing the same backing pixels.
func (b *PixelBuffer) ToImage() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// ChannelImage is a single-stain intensity plane, one byte per pixel.
// It is derived data: created by one pipeline stage, consumed by the next,
// and never shared across requests.
type ChannelImage struct {
	Width  int
	Height int
	Pix    []byte
}

// NewChannelImage allocates a zeroed channel of the given dimensions.
func NewChannelImage(width, height int) *ChannelImage {
	return &ChannelImage{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height),
	}
}

// At returns the intensity at (x, y). No bounds check; callers iterate
// within the channel's own dimensions.
func (c *ChannelImage) At(x, y int) byte {
	return c.Pix[y*c.Width+x]
}

// Set writes the intensity at (x, y).
func (c *ChannelImage) Set(x, y int, v byte) {
	c.Pix[y*c.Width+x] = v
}

// ToGray wraps the channel in an image.Gray sharing the same backing pixels.
func (c *ChannelImage) ToGray() *image.Gray {
	return &image.Gray{
		Pix:    c.Pix,
		Stride: c.Width,
		Rect:   image.Rect(0, 0, c.Width, c.Height),
	}
}
