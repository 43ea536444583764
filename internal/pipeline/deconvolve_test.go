package pipeline

import (
	"testing"

	apperrors "go-histopath/internal/errors"
)

// createTestBuffer fills a width x height buffer with a single RGB color.
func createTestBuffer(width, height int, r, g, b byte) *PixelBuffer {
	buf := &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
	for i := 0; i < width*height; i++ {
		buf.Pix[i*4] = r
		buf.Pix[i*4+1] = g
		buf.Pix[i*4+2] = b
		buf.Pix[i*4+3] = 255
	}
	return buf
}

func TestNewColorDeconvolver(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d == nil {
		t.Fatal("Expected non-nil deconvolver")
	}

	names := d.StainNames()
	if len(names) != 3 || names[0] != "hematoxylin" || names[1] != "eosin" {
		t.Errorf("Unexpected stain names: %v", names)
	}
}

func TestNewColorDeconvolver_InvalidMatrix(t *testing.T) {
	testCases := []struct {
		name   string
		matrix *StainMatrix
	}{
		{"Nil Matrix", nil},
		{"Empty Matrix", &StainMatrix{}},
		{"Name Count Mismatch", &StainMatrix{
			Names:   []string{"only one"},
			Vectors: []StainVector{{1, 0, 0}, {0, 1, 0}},
		}},
		{"Zero Norm Row", &StainMatrix{
			Names:   []string{"degenerate"},
			Vectors: []StainVector{{0, 0, 0}},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewColorDeconvolver(tc.matrix)
			if err == nil {
				t.Fatal("Expected configuration error, got nil")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
				t.Errorf("Expected configuration error type, got %v", err)
			}
		})
	}
}

func TestDeconvolve_WhiteImage(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Failed to create deconvolver: %v", err)
	}

	// Pure white transmits everything: optical density is zero in every
	// stain channel.
	buf := createTestBuffer(32, 32, 255, 255, 255)

	channels, err := d.Deconvolve(buf)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}
	if len(channels) != 3 {
		t.Fatalf("Expected 3 channels, got %d", len(channels))
	}

	for s, ch := range channels {
		for i, v := range ch.Pix {
			if v > 1 {
				t.Fatalf("Channel %d pixel %d: expected near-zero intensity, got %d", s, i, v)
			}
		}
	}
}

func TestDeconvolve_BlackImage(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Failed to create deconvolver: %v", err)
	}

	// Black transmits nothing: every OD component clamps at the maximum, so
	// each channel saturates.
	buf := createTestBuffer(16, 16, 0, 0, 0)

	channels, err := d.Deconvolve(buf)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}

	for s, ch := range channels {
		for i, v := range ch.Pix {
			if v < 250 {
				t.Fatalf("Channel %d pixel %d: expected saturated intensity, got %d", s, i, v)
			}
		}
	}
}

func TestDeconvolve_StainSelectivity(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Failed to create deconvolver: %v", err)
	}

	// A blue-purple pixel (strong absorption in red/green) should project
	// more onto hematoxylin than a pink pixel does.
	purple := createTestBuffer(8, 8, 80, 60, 160)
	pink := createTestBuffer(8, 8, 240, 160, 200)

	purpleChannels, err := d.Deconvolve(purple)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}
	pinkChannels, err := d.Deconvolve(pink)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}

	if purpleChannels[0].Pix[0] <= pinkChannels[0].Pix[0] {
		t.Errorf("Expected purple hematoxylin %d > pink hematoxylin %d",
			purpleChannels[0].Pix[0], pinkChannels[0].Pix[0])
	}
}

func TestDeconvolve_InvalidBuffer(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Failed to create deconvolver: %v", err)
	}

	bad := &PixelBuffer{Width: 10, Height: 10, Pix: make([]byte, 50)}
	if _, err := d.Deconvolve(bad); err == nil {
		t.Fatal("Expected invalid input error for mismatched buffer, got nil")
	} else if !apperrors.IsType(err, apperrors.ErrorTypeInvalidInput) {
		t.Errorf("Expected invalid input error type, got %v", err)
	}
}

func TestDeconvolve_Deterministic(t *testing.T) {
	d, err := NewColorDeconvolver(RuifrokHE())
	if err != nil {
		t.Fatalf("Failed to create deconvolver: %v", err)
	}

	buf := createTestBuffer(33, 17, 120, 80, 150)

	first, err := d.Deconvolve(buf)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}
	second, err := d.Deconvolve(buf)
	if err != nil {
		t.Fatalf("Deconvolve failed: %v", err)
	}

	for s := range first {
		for i := range first[s].Pix {
			if first[s].Pix[i] != second[s].Pix[i] {
				t.Fatalf("Channel %d pixel %d differs between runs: %d vs %d",
					s, i, first[s].Pix[i], second[s].Pix[i])
			}
		}
	}
}

func TestOpticalDensity_Clamp(t *testing.T) {
	if od := opticalDensity(1.0); od != 0 {
		t.Errorf("Expected OD 0 for full transmission, got %f", od)
	}
	if od := opticalDensity(0.0); od != MaxOpticalDensity {
		t.Errorf("Expected OD clamp %f for zero transmission, got %f", MaxOpticalDensity, od)
	}
	if od := opticalDensity(0.1); od < 0.99 || od > 1.01 {
		t.Errorf("Expected OD ~1.0 for 10%% transmission, got %f", od)
	}
}
