package pipeline

import (
	"fmt"
	"sort"

	apperrors "go-histopath/internal/errors"
)

// DenoiseMode selects the neighborhood filter applied before contrast work.
type DenoiseMode string

const (
	DenoiseMedian DenoiseMode = "median"
	DenoiseMean   DenoiseMode = "mean"
	DenoiseNone   DenoiseMode = "none"
)

// ContrastMode selects the contrast enhancement step.
type ContrastMode string

const (
	ContrastRescale  ContrastMode = "rescale"
	ContrastEqualize ContrastMode = "equalize"
	ContrastNone     ContrastMode = "none"
)

// Enhancer denoises and contrast-enhances a single stain channel.
type Enhancer struct {
	denoise       DenoiseMode
	denoiseRadius int
	contrast      ContrastMode
}

// NewEnhancer validates the filter configuration and builds an enhancer.
func NewEnhancer(denoise DenoiseMode, radius int, contrast ContrastMode) (*Enhancer, error) {
	switch denoise {
	case DenoiseMedian, DenoiseMean, DenoiseNone:
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown denoise mode %q", denoise), nil)
	}
	switch contrast {
	case ContrastRescale, ContrastEqualize, ContrastNone:
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown contrast mode %q", contrast), nil)
	}
	if denoise != DenoiseNone && (radius < 1 || radius > 7) {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("denoise radius %d out of range [1,7]", radius), nil)
	}
	return &Enhancer{denoise: denoise, denoiseRadius: radius, contrast: contrast}, nil
}

// Enhance returns a new channel with the configured denoise and contrast
// steps applied. The input channel is left untouched.
func (e *Enhancer) Enhance(ch *ChannelImage) *ChannelImage {
	out := ch
	switch e.denoise {
	case DenoiseMedian:
		out = medianFilter(out, e.denoiseRadius)
	case DenoiseMean:
		out = meanFilter(out, e.denoiseRadius)
	}
	switch e.contrast {
	case ContrastRescale:
		out = rescaleContrast(out)
	case ContrastEqualize:
		out = equalizeHistogram(out)
	}
	if out == ch {
		// No step ran; still hand back a copy so the caller owns the result.
		out = NewChannelImage(ch.Width, ch.Height)
		copy(out.Pix, ch.Pix)
	}
	return out
}

// clampCoord keeps neighborhood reads inside the channel. Edge pixels use
// clamp-to-boundary behavior rather than shrinking their window.
func clampCoord(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

func medianFilter(ch *ChannelImage, radius int) *ChannelImage {
	out := NewChannelImage(ch.Width, ch.Height)
	window := make([]byte, 0, (2*radius+1)*(2*radius+1))
	for y := 0; y < ch.Height; y++ {
		for x := 0; x < ch.Width; x++ {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				ny := clampCoord(y+dy, ch.Height)
				for dx := -radius; dx <= radius; dx++ {
					nx := clampCoord(x+dx, ch.Width)
					window = append(window, ch.Pix[ny*ch.Width+nx])
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*ch.Width+x] = window[len(window)/2]
		}
	}
	return out
}

func meanFilter(ch *ChannelImage, radius int) *ChannelImage {
	out := NewChannelImage(ch.Width, ch.Height)
	for y := 0; y < ch.Height; y++ {
		for x := 0; x < ch.Width; x++ {
			sum, count := 0, 0
			for dy := -radius; dy <= radius; dy++ {
				ny := clampCoord(y+dy, ch.Height)
				for dx := -radius; dx <= radius; dx++ {
					nx := clampCoord(x+dx, ch.Width)
					sum += int(ch.Pix[ny*ch.Width+nx])
					count++
				}
			}
			out.Pix[y*ch.Width+x] = byte((sum + count/2) / count)
		}
	}
	return out
}

// rescaleContrast stretches the intensity range linearly to [0, 255].
// A flat channel (max == min) is passed through unchanged.
func rescaleContrast(ch *ChannelImage) *ChannelImage {
	out := NewChannelImage(ch.Width, ch.Height)
	minV, maxV := byte(255), byte(0)
	for _, v := range ch.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if maxV == minV {
		copy(out.Pix, ch.Pix)
		return out
	}
	span := float64(maxV - minV)
	for i, v := range ch.Pix {
		out.Pix[i] = byte(float64(v-minV)/span*255.0 + 0.5)
	}
	return out
}

// equalizeHistogram remaps intensities through the cumulative distribution
// of a 256-bin histogram, normalized by the non-zero bin range.
func equalizeHistogram(ch *ChannelImage) *ChannelImage {
	out := NewChannelImage(ch.Width, ch.Height)

	var hist [256]int
	for _, v := range ch.Pix {
		hist[v]++
	}

	var cdf [256]int
	running := 0
	for i, count := range hist {
		running += count
		cdf[i] = running
	}

	// First non-empty bin anchors the remap so the darkest occupied
	// intensity maps to zero.
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}

	total := len(ch.Pix)
	if total == cdfMin {
		// Single occupied bin; equalization is a no-op.
		copy(out.Pix, ch.Pix)
		return out
	}

	var lut [256]byte
	for i := range lut {
		lut[i] = byte(float64(cdf[i]-cdfMin) / float64(total-cdfMin) * 255.0)
	}
	for i, v := range ch.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}
