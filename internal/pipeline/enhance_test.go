package pipeline

import (
	"testing"

	apperrors "go-histopath/internal/errors"
)

func TestNewEnhancer_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name     string
		denoise  DenoiseMode
		radius   int
		contrast ContrastMode
	}{
		{"Unknown Denoise", DenoiseMode("blur"), 1, ContrastNone},
		{"Unknown Contrast", DenoiseNone, 0, ContrastMode("gamma")},
		{"Radius Too Small", DenoiseMedian, 0, ContrastNone},
		{"Radius Too Large", DenoiseMean, 8, ContrastNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEnhancer(tc.denoise, tc.radius, tc.contrast)
			if err == nil {
				t.Fatal("Expected configuration error, got nil")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
				t.Errorf("Expected configuration error type, got %v", err)
			}
		})
	}
}

func TestNewEnhancer_RadiusIgnoredWithoutDenoise(t *testing.T) {
	// Radius is only meaningful when a denoise filter runs.
	if _, err := NewEnhancer(DenoiseNone, 0, ContrastRescale); err != nil {
		t.Errorf("Expected no error with denoise disabled, got %v", err)
	}
}

func TestEnhance_NoOpReturnsCopy(t *testing.T) {
	e, err := NewEnhancer(DenoiseNone, 0, ContrastNone)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	ch := NewChannelImage(8, 8)
	for i := range ch.Pix {
		ch.Pix[i] = byte(i)
	}

	out := e.Enhance(ch)
	if out == ch {
		t.Fatal("Expected a copy, got the input channel")
	}
	for i := range ch.Pix {
		if out.Pix[i] != ch.Pix[i] {
			t.Fatalf("Pixel %d changed: %d vs %d", i, out.Pix[i], ch.Pix[i])
		}
	}
}

func TestEnhance_MedianRemovesImpulseNoise(t *testing.T) {
	e, err := NewEnhancer(DenoiseMedian, 1, ContrastNone)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	// One hot pixel inside a uniform field disappears under a median filter.
	ch := NewChannelImage(9, 9)
	for i := range ch.Pix {
		ch.Pix[i] = 100
	}
	ch.Set(4, 4, 255)

	out := e.Enhance(ch)
	if v := out.At(4, 4); v != 100 {
		t.Errorf("Expected impulse removed (100), got %d", v)
	}
	// The input channel is untouched.
	if ch.At(4, 4) != 255 {
		t.Error("Expected input channel to remain unmodified")
	}
}

func TestEnhance_MeanSmoothsEdges(t *testing.T) {
	e, err := NewEnhancer(DenoiseMean, 1, ContrastNone)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	ch := NewChannelImage(10, 10)
	for y := 0; y < 10; y++ {
		for x := 5; x < 10; x++ {
			ch.Set(x, y, 200)
		}
	}

	out := e.Enhance(ch)
	// Pixels at the step boundary average both sides.
	v := out.At(5, 5)
	if v == 0 || v == 200 {
		t.Errorf("Expected boundary pixel smoothed between 0 and 200, got %d", v)
	}
	// Pixels deep inside each side are unchanged.
	if out.At(1, 5) != 0 {
		t.Errorf("Expected interior background to stay 0, got %d", out.At(1, 5))
	}
	if out.At(8, 5) != 200 {
		t.Errorf("Expected interior foreground to stay 200, got %d", out.At(8, 5))
	}
}

func TestRescaleContrast_StretchesRange(t *testing.T) {
	e, err := NewEnhancer(DenoiseNone, 0, ContrastRescale)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	ch := NewChannelImage(4, 4)
	for i := range ch.Pix {
		ch.Pix[i] = 100
	}
	ch.Pix[0] = 50
	ch.Pix[1] = 150

	out := e.Enhance(ch)
	if out.Pix[0] != 0 {
		t.Errorf("Expected minimum mapped to 0, got %d", out.Pix[0])
	}
	if out.Pix[1] != 255 {
		t.Errorf("Expected maximum mapped to 255, got %d", out.Pix[1])
	}
	// Midpoint lands near the center of the range.
	if out.Pix[2] < 126 || out.Pix[2] > 130 {
		t.Errorf("Expected midpoint near 128, got %d", out.Pix[2])
	}
}

func TestRescaleContrast_FlatChannel(t *testing.T) {
	e, err := NewEnhancer(DenoiseNone, 0, ContrastRescale)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	ch := NewChannelImage(4, 4)
	for i := range ch.Pix {
		ch.Pix[i] = 77
	}

	out := e.Enhance(ch)
	for i, v := range out.Pix {
		if v != 77 {
			t.Fatalf("Expected flat channel unchanged, pixel %d became %d", i, v)
		}
	}
}

func TestEqualizeHistogram_TwoLevels(t *testing.T) {
	e, err := NewEnhancer(DenoiseNone, 0, ContrastEqualize)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	// Two equally occupied levels spread to the full output range.
	ch := NewChannelImage(8, 8)
	for i := range ch.Pix {
		if i < len(ch.Pix)/2 {
			ch.Pix[i] = 100
		} else {
			ch.Pix[i] = 200
		}
	}

	out := e.Enhance(ch)
	if out.Pix[0] != 0 {
		t.Errorf("Expected darkest occupied level mapped to 0, got %d", out.Pix[0])
	}
	if out.Pix[len(out.Pix)-1] != 255 {
		t.Errorf("Expected brightest level mapped to 255, got %d", out.Pix[len(out.Pix)-1])
	}
}

func TestEqualizeHistogram_SingleLevel(t *testing.T) {
	e, err := NewEnhancer(DenoiseNone, 0, ContrastEqualize)
	if err != nil {
		t.Fatalf("Failed to create enhancer: %v", err)
	}

	ch := NewChannelImage(4, 4)
	for i := range ch.Pix {
		ch.Pix[i] = 130
	}

	out := e.Enhance(ch)
	for i, v := range out.Pix {
		if v != 130 {
			t.Fatalf("Expected single-level channel unchanged, pixel %d became %d", i, v)
		}
	}
}
