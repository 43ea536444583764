package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"

	"go-histopath/internal/pipeline"
)

// maxOverlayDimension caps the rendered overlay's longer edge; larger
// slides are downscaled so responses stay a reasonable size.
const maxOverlayDimension = 1024

// regionBlend is the paint opacity over the underlying tissue.
const regionBlend = 0.55

// OverlayResult is a rendered segmentation overlay, base64 PNG encoded.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RegionCount int    `json:"region_count"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderRegionOverlay paints every detected region in a distinct color over
// the source slide. Colors are assigned by evenly spaced hue so renders are
// deterministic for a given region list.
func RenderRegionOverlay(buf *pipeline.PixelBuffer, regions []pipeline.Region) (*OverlayResult, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	out := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	copy(out.Pix, buf.Pix)

	for i, region := range regions {
		hue := float64(i) * 360.0 / float64(len(regions))
		c := colorful.Hsv(hue, 0.85, 0.95)
		cr, cg, cb := uint8(c.R*255), uint8(c.G*255), uint8(c.B*255)
		for _, p := range region.Pixels {
			idx := (p.Y*buf.Width + p.X) * 4
			out.Pix[idx] = blend(out.Pix[idx], cr)
			out.Pix[idx+1] = blend(out.Pix[idx+1], cg)
			out.Pix[idx+2] = blend(out.Pix[idx+2], cb)
			out.Pix[idx+3] = 255
		}
	}

	final := downscale(out)

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, final); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	bounds := final.Bounds()
	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		RegionCount: len(regions),
		ImageBase64: base64.StdEncoding.EncodeToString(encoded.Bytes()),
		MimeType:    "image/png",
	}, nil
}

func blend(under, over uint8) uint8 {
	return uint8(float64(under)*(1-regionBlend) + float64(over)*regionBlend)
}

// downscale fits the overlay inside maxOverlayDimension, preserving aspect.
func downscale(img *image.RGBA) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longer := w
	if h > longer {
		longer = h
	}
	if longer <= maxOverlayDimension {
		return img
	}
	scale := float64(maxOverlayDimension) / float64(longer)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
