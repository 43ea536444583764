package scoring

import (
	"math"
	"testing"
)

// uniformNuclei builds n identical nuclei for scorer inputs.
func uniformNuclei(n, area int, intensity float64) []NucleusMetrics {
	nuclei := make([]NucleusMetrics, n)
	for i := range nuclei {
		nuclei[i] = NucleusMetrics{
			Area:          area,
			Perimeter:     4 * area,
			MeanIntensity: intensity,
		}
	}
	return nuclei
}

func TestScorer_InsufficientSamplesFallback(t *testing.T) {
	for _, s := range DefaultCatalog(10, DefaultInterpretationBands()) {
		t.Run(s.Name, func(t *testing.T) {
			in := &ScoringInput{Nuclei: nil, Width: 1000, Height: 1000}
			r := s.Score(in)

			if !r.InsufficientSamples {
				t.Error("Expected InsufficientSamples flag")
			}
			if r.Score != InsufficientSamplesScore {
				t.Errorf("Expected fallback score %f, got %f", InsufficientSamplesScore, r.Score)
			}
			if r.Confidence != InsufficientSamplesConfidence {
				t.Errorf("Expected fallback confidence %f, got %f", InsufficientSamplesConfidence, r.Confidence)
			}
			if r.Interpretation == "" {
				t.Error("Expected fallback result to carry an interpretation")
			}
		})
	}
}

func TestScorer_ZeroMinimumNoNuclei(t *testing.T) {
	// A zero sample minimum must not let an empty input reach the measure
	// functions, whose means are undefined over zero samples.
	for _, s := range DefaultCatalog(0, DefaultInterpretationBands()) {
		t.Run(s.Name, func(t *testing.T) {
			r := s.Score(&ScoringInput{Nuclei: nil, Width: 1000, Height: 1000})

			if !r.InsufficientSamples {
				t.Error("Expected InsufficientSamples flag for zero nuclei")
			}
			if r.Score != InsufficientSamplesScore {
				t.Errorf("Expected fallback score %f, got %f", InsufficientSamplesScore, r.Score)
			}
			if r.Confidence != InsufficientSamplesConfidence {
				t.Errorf("Expected fallback confidence %f, got %f", InsufficientSamplesConfidence, r.Confidence)
			}
			for name, v := range r.Features {
				if math.IsNaN(v) {
					t.Errorf("Feature %q is NaN", name)
				}
			}
		})
	}
}

func TestClamp01_NaN(t *testing.T) {
	if got := clamp01(math.NaN()); got != 0 {
		t.Errorf("Expected NaN to clamp to 0, got %f", got)
	}
}

func TestScorer_JustBelowMinimum(t *testing.T) {
	s := NewCellularityScorer(10, DefaultInterpretationBands())
	in := &ScoringInput{Nuclei: uniformNuclei(9, 50, 120), Width: 1000, Height: 1000}

	r := s.Score(in)
	if !r.InsufficientSamples {
		t.Error("Expected fallback with 9 of 10 required samples")
	}
}

func TestNuclearMorphometryScorer_UniformNuclei(t *testing.T) {
	s := NewNuclearMorphometryScorer(5, DefaultInterpretationBands())
	in := &ScoringInput{Nuclei: uniformNuclei(20, 50, 120), Width: 1000, Height: 1000}

	r := s.Score(in)
	if r.InsufficientSamples {
		t.Fatal("Did not expect fallback")
	}
	// Identical nuclei: zero pleomorphism, zero complexity.
	if r.Score != 0 {
		t.Errorf("Expected score 0 for uniform nuclei, got %f", r.Score)
	}
	if r.Features["area_cv"] != 0 {
		t.Errorf("Expected area CV 0, got %f", r.Features["area_cv"])
	}
}

func TestNuclearMorphometryScorer_Pleomorphic(t *testing.T) {
	s := NewNuclearMorphometryScorer(5, DefaultInterpretationBands())

	varied := make([]NucleusMetrics, 20)
	for i := range varied {
		varied[i] = NucleusMetrics{
			Area:            20 + i*15,
			ShapeComplexity: 0.3,
			MeanIntensity:   120,
		}
	}
	in := &ScoringInput{Nuclei: varied, Width: 1000, Height: 1000}

	r := s.Score(in)
	if r.Score <= 0 {
		t.Errorf("Expected positive score for pleomorphic nuclei, got %f", r.Score)
	}
	if r.Score > 1 {
		t.Errorf("Expected score clamped to 1, got %f", r.Score)
	}

	uniform := s.Score(&ScoringInput{Nuclei: uniformNuclei(20, 50, 120), Width: 1000, Height: 1000})
	if r.Score <= uniform.Score {
		t.Errorf("Expected pleomorphic score %f above uniform score %f", r.Score, uniform.Score)
	}
}

func TestCellularityScorer_Saturation(t *testing.T) {
	s := NewCellularityScorer(5, DefaultInterpretationBands())

	// 1500 nuclei in one megapixel saturates the score.
	in := &ScoringInput{Nuclei: uniformNuclei(1500, 40, 120), Width: 1000, Height: 1000}
	r := s.Score(in)
	if r.Score != 1.0 {
		t.Errorf("Expected saturated score 1.0, got %f", r.Score)
	}

	// Sparse tissue scores proportionally.
	sparse := s.Score(&ScoringInput{Nuclei: uniformNuclei(150, 40, 120), Width: 1000, Height: 1000})
	if math.Abs(sparse.Score-0.1) > 1e-9 {
		t.Errorf("Expected score 0.1 at one tenth of reference density, got %f", sparse.Score)
	}
}

func TestCellularityScorer_ZeroDimensions(t *testing.T) {
	s := NewCellularityScorer(5, DefaultInterpretationBands())
	in := &ScoringInput{Nuclei: uniformNuclei(10, 40, 120), Width: 0, Height: 0}

	r := s.Score(in)
	if r.Score != 0 {
		t.Errorf("Expected score 0 with no analyzed area, got %f", r.Score)
	}
}

func TestMitoticActivityScorer(t *testing.T) {
	s := NewMitoticActivityScorer(5, DefaultInterpretationBands())

	// Uniform pale nuclei: nothing qualifies as a mitotic figure.
	quiet := s.Score(&ScoringInput{Nuclei: uniformNuclei(50, 100, 120), Width: 1000, Height: 1000})
	if quiet.Score != 0 {
		t.Errorf("Expected score 0 without candidates, got %f", quiet.Score)
	}
	if quiet.Features["candidate_count"] != 0 {
		t.Errorf("Expected 0 candidates, got %f", quiet.Features["candidate_count"])
	}

	// Add small, densely stained figures well below the mean area.
	nuclei := uniformNuclei(50, 100, 120)
	for i := 0; i < 10; i++ {
		nuclei = append(nuclei, NucleusMetrics{Area: 20, MeanIntensity: 220})
	}
	active := s.Score(&ScoringInput{Nuclei: nuclei, Width: 1000, Height: 1000})
	if active.Score <= 0 {
		t.Errorf("Expected positive score with mitotic candidates, got %f", active.Score)
	}
	if active.Features["candidate_count"] != 10 {
		t.Errorf("Expected 10 candidates, got %f", active.Features["candidate_count"])
	}
}

func TestMitoticActivityScorer_LargeDarkNucleiExcluded(t *testing.T) {
	s := NewMitoticActivityScorer(5, DefaultInterpretationBands())

	// Dark but full-sized nuclei are hyperchromatic, not mitotic.
	nuclei := uniformNuclei(50, 100, 220)
	r := s.Score(&ScoringInput{Nuclei: nuclei, Width: 1000, Height: 1000})
	if r.Features["candidate_count"] != 0 {
		t.Errorf("Expected large dark nuclei excluded, got %f candidates", r.Features["candidate_count"])
	}
}

func TestChromatinTextureScorer(t *testing.T) {
	s := NewChromatinTextureScorer(5, DefaultInterpretationBands())

	// Identical staining: no heterogeneity.
	uniform := s.Score(&ScoringInput{Nuclei: uniformNuclei(30, 50, 140), Width: 1000, Height: 1000})
	if uniform.Score != 0 {
		t.Errorf("Expected score 0 for uniform staining, got %f", uniform.Score)
	}

	varied := make([]NucleusMetrics, 30)
	for i := range varied {
		varied[i] = NucleusMetrics{Area: 50, MeanIntensity: float64(60 + i*6)}
	}
	heterogeneous := s.Score(&ScoringInput{Nuclei: varied, Width: 1000, Height: 1000})
	if heterogeneous.Score <= uniform.Score {
		t.Errorf("Expected heterogeneous staining score %f above uniform %f",
			heterogeneous.Score, uniform.Score)
	}
}

func TestArchitecturalPatternScorer(t *testing.T) {
	s := NewArchitecturalPatternScorer(5, DefaultInterpretationBands())

	nuclei := uniformNuclei(30, 50, 120)

	// Even density across windows: ordered architecture, low score.
	even := make([]float64, 16)
	for i := range even {
		even[i] = 10
	}
	ordered := s.Score(&ScoringInput{Nuclei: nuclei, Width: 1000, Height: 1000, DensitySamples: even})

	// Strongly clustered density: disordered architecture.
	clustered := make([]float64, 16)
	clustered[0] = 120
	clustered[1] = 40
	disordered := s.Score(&ScoringInput{Nuclei: nuclei, Width: 1000, Height: 1000, DensitySamples: clustered})

	if disordered.Score <= ordered.Score {
		t.Errorf("Expected clustered score %f above even score %f", disordered.Score, ordered.Score)
	}
}

func TestArchitecturalPatternScorer_NoWindows(t *testing.T) {
	s := NewArchitecturalPatternScorer(5, DefaultInterpretationBands())
	r := s.Score(&ScoringInput{Nuclei: uniformNuclei(30, 50, 120), Width: 1000, Height: 1000})
	if r.Score != 0 {
		t.Errorf("Expected score 0 without density samples, got %f", r.Score)
	}
}

func TestSampleConfidence(t *testing.T) {
	if c := sampleConfidence(0); c != 0 {
		t.Errorf("Expected confidence 0 for no samples, got %f", c)
	}
	// Confidence grows with sample count and stays below 0.95.
	prev := -1.0
	for _, n := range []int{1, 5, 25, 100, 1000} {
		c := sampleConfidence(n)
		if c <= prev {
			t.Errorf("Expected confidence to grow, got %f after %f", c, prev)
		}
		if c >= 0.95 {
			t.Errorf("Expected confidence below 0.95, got %f for n=%d", c, n)
		}
		prev = c
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog(10, DefaultInterpretationBands())
	if len(catalog) != 5 {
		t.Fatalf("Expected 5 scorers, got %d", len(catalog))
	}

	names := map[string]bool{}
	for _, s := range catalog {
		if s.MinSamples != 10 {
			t.Errorf("Expected min samples 10 for %q, got %d", s.Name, s.MinSamples)
		}
		names[s.Name] = true
	}
	for _, expected := range []string{
		"nuclear_morphometry", "architectural_pattern", "mitotic_activity",
		"cellularity", "chromatin_texture",
	} {
		if !names[expected] {
			t.Errorf("Expected scorer %q in catalog", expected)
		}
	}
}
