package pipeline

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	apperrors "go-histopath/internal/errors"
)

// MaxOpticalDensity is the explicit clamp applied when a normalized channel
// value approaches zero, where -log10 would diverge.
const MaxOpticalDensity = 2.0

// StainVector is one reference stain's optical-density direction in RGB.
type StainVector [3]float64

// StainMatrix holds one StainVector per stain channel to separate.
type StainMatrix struct {
	Names   []string
	Vectors []StainVector
}

// RuifrokHE returns the standard H&E reference matrix (Ruifrok & Johnston):
// hematoxylin, eosin, and a residual channel orthogonal to both.
func RuifrokHE() *StainMatrix {
	return &StainMatrix{
		Names: []string{"hematoxylin", "eosin", "residual"},
		Vectors: []StainVector{
			{0.650, 0.704, 0.286},
			{0.072, 0.990, 0.105},
			{0.268, 0.570, 0.776},
		},
	}
}

// RuifrokHDAB returns the hematoxylin/DAB reference matrix used for
// immunohistochemistry slides.
func RuifrokHDAB() *StainMatrix {
	return &StainMatrix{
		Names: []string{"hematoxylin", "dab", "residual"},
		Vectors: []StainVector{
			{0.650, 0.704, 0.286},
			{0.268, 0.570, 0.776},
			{0.072, 0.990, 0.105},
		},
	}
}

// Validate checks the matrix shape and contents. Each row must be a finite,
// non-degenerate 3-vector. Called at deconvolver construction, never per pixel.
func (m *StainMatrix) Validate() error {
	if m == nil || len(m.Vectors) == 0 {
		return apperrors.NewConfigurationError("stain matrix has no rows", nil)
	}
	if len(m.Names) != len(m.Vectors) {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("stain matrix has %d names for %d rows", len(m.Names), len(m.Vectors)), nil)
	}
	for i, v := range m.Vectors {
		var norm float64
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return apperrors.NewConfigurationError(
					fmt.Sprintf("stain vector %d contains non-finite values", i), nil)
			}
			norm += c * c
		}
		if norm < 1e-12 {
			return apperrors.NewConfigurationError(
				fmt.Sprintf("stain vector %d is degenerate (zero norm)", i), nil)
		}
	}
	return nil
}

// normalized returns a copy of the matrix with unit-length rows. The
// reference matrices ship pre-normalized; user-supplied rows are brought to
// unit length here so projection magnitudes stay comparable.
func (m *StainMatrix) normalized() []StainVector {
	out := make([]StainVector, len(m.Vectors))
	for i, v := range m.Vectors {
		norm := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		out[i] = StainVector{v[0] / norm, v[1] / norm, v[2] / norm}
	}
	return out
}

// ColorDeconvolver separates an RGBA buffer into per-stain intensity
// channels via Beer-Lambert optical density projection.
type ColorDeconvolver struct {
	matrix  *StainMatrix
	vectors []StainVector
}

// NewColorDeconvolver validates the stain matrix and builds a deconvolver.
func NewColorDeconvolver(matrix *StainMatrix) (*ColorDeconvolver, error) {
	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	return &ColorDeconvolver{matrix: matrix, vectors: matrix.normalized()}, nil
}

// StainNames returns the configured stain channel names in row order.
func (d *ColorDeconvolver) StainNames() []string {
	return d.matrix.Names
}

// Deconvolve maps the buffer to one ChannelImage per stain row. The
// transform is pixel-independent, so rows are processed in parallel strips.
func (d *ColorDeconvolver) Deconvolve(buf *PixelBuffer) ([]*ChannelImage, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	channels := make([]*ChannelImage, len(d.vectors))
	for i := range channels {
		channels[i] = NewChannelImage(buf.Width, buf.Height)
	}

	numWorkers := runtime.NumCPU()
	if buf.Height < numWorkers {
		numWorkers = buf.Height
	}
	rowsPerWorker := (buf.Height + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > buf.Height {
			endY = buf.Height
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			d.deconvolveStrip(buf, channels, startY, endY)
		}(startY, endY)
	}
	wg.Wait()

	return channels, nil
}

// deconvolveStrip processes rows [startY, endY). Each worker writes a
// disjoint slice of every channel, so no synchronization is needed.
func (d *ColorDeconvolver) deconvolveStrip(buf *PixelBuffer, channels []*ChannelImage, startY, endY int) {
	for y := startY; y < endY; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b := buf.RGBAt(x, y)
			odR := opticalDensity(float64(r) / 255.0)
			odG := opticalDensity(float64(g) / 255.0)
			odB := opticalDensity(float64(b) / 255.0)

			idx := y*buf.Width + x
			for s, v := range d.vectors {
				intensity := odR*v[0] + odG*v[1] + odB*v[2]
				// Rescale [0, MaxOpticalDensity] to [0, 255] and clamp.
				scaled := intensity / MaxOpticalDensity * 255.0
				if scaled < 0 {
					scaled = 0
				} else if scaled > 255 {
					scaled = 255
				}
				channels[s].Pix[idx] = byte(scaled + 0.5)
			}
		}
	}
}

// opticalDensity computes OD = -log10(v) with the documented clamp at
// MaxOpticalDensity for near-zero transmission.
func opticalDensity(v float64) float64 {
	floor := math.Pow(10, -MaxOpticalDensity)
	if v < floor {
		return MaxOpticalDensity
	}
	od := -math.Log10(v)
	if od > MaxOpticalDensity {
		return MaxOpticalDensity
	}
	return od
}
