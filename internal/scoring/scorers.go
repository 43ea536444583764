package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"go-histopath/internal/pipeline"
)

// Documented fallback for scorers starved of samples: a fixed low score at
// low confidence, flagged InsufficientSamples. Never an error.
const (
	InsufficientSamplesScore      = 0.1
	InsufficientSamplesConfidence = 0.2
)

// Reference constants anchoring score normalization. These are measurement
// scales, not clinical thresholds.
const (
	// referenceNucleiPerMegapixel saturates the cellularity score.
	referenceNucleiPerMegapixel = 1500.0
	// referenceMitoticPerMegapixel saturates the mitotic-activity score.
	referenceMitoticPerMegapixel = 60.0
	// hyperchromaticIntensity marks a nucleus as densely stained.
	hyperchromaticIntensity = 180.0
	// mitoticAreaFraction: candidate mitotic figures are at most this
	// fraction of the mean nuclear area.
	mitoticAreaFraction = 0.6
)

// Scorer computes one analysis category. Deterministic: identical input
// yields an identical result.
type Scorer struct {
	Name       string
	MinSamples int
	Bands      BandTable
	measure    func(in *ScoringInput) (score, confidence float64, features map[string]float64)
}

// Score runs the measurement, applying the insufficient-samples fallback
// and the documented [0,1] clamps. Weight is attached by the aggregator.
// Zero nuclei always take the fallback, even with a zero minimum: the
// measure functions divide by the sample count.
func (s *Scorer) Score(in *ScoringInput) AlgorithmResult {
	if len(in.Nuclei) < s.MinSamples || len(in.Nuclei) == 0 {
		return AlgorithmResult{
			Name:                s.Name,
			Score:               InsufficientSamplesScore,
			Confidence:          InsufficientSamplesConfidence,
			Interpretation:      s.Bands.Interpret(InsufficientSamplesScore),
			InsufficientSamples: true,
			Features: map[string]float64{
				"sample_count": float64(len(in.Nuclei)),
				"min_samples":  float64(s.MinSamples),
			},
		}
	}
	score, confidence, features := s.measure(in)
	score = clamp01(score)
	confidence = clamp01(confidence)
	return AlgorithmResult{
		Name:           s.Name,
		Score:          score,
		Confidence:     confidence,
		Features:       features,
		Interpretation: s.Bands.Interpret(score),
	}
}

// sampleConfidence grows toward ~0.95 with the number of measured nuclei.
func sampleConfidence(n int) float64 {
	return clamp01(0.95 * float64(n) / (float64(n) + 25.0))
}

// NewNuclearMorphometryScorer measures size pleomorphism (area coefficient
// of variation) and contour irregularity (mean shape complexity).
func NewNuclearMorphometryScorer(minSamples int, bands BandTable) *Scorer {
	return &Scorer{
		Name:       "nuclear_morphometry",
		MinSamples: minSamples,
		Bands:      bands,
		measure: func(in *ScoringInput) (float64, float64, map[string]float64) {
			areas := make([]float64, len(in.Nuclei))
			complexity := make([]float64, len(in.Nuclei))
			for i, n := range in.Nuclei {
				areas[i] = float64(n.Area)
				complexity[i] = n.ShapeComplexity
			}
			meanArea, areaVar := stat.MeanVariance(areas, nil)
			if len(areas) < 2 {
				areaVar = 0
			}
			areaCV := 0.0
			if meanArea > 0 {
				areaCV = math.Sqrt(areaVar) / meanArea
			}
			meanComplexity := stat.Mean(complexity, nil)

			score := 0.5*clamp01(areaCV) + 0.5*clamp01(meanComplexity*2.0)
			return score, sampleConfidence(len(in.Nuclei)), map[string]float64{
				"mean_area":       meanArea,
				"area_cv":         areaCV,
				"mean_complexity": meanComplexity,
				"sample_count":    float64(len(in.Nuclei)),
			}
		},
	}
}

// NewArchitecturalPatternScorer measures disorder in the spatial
// arrangement of nuclei via texture statistics over grid density samples.
func NewArchitecturalPatternScorer(minSamples int, bands BandTable) *Scorer {
	return &Scorer{
		Name:       "architectural_pattern",
		MinSamples: minSamples,
		Bands:      bands,
		measure: func(in *ScoringInput) (float64, float64, map[string]float64) {
			if len(in.DensitySamples) == 0 {
				return 0, sampleConfidence(0), map[string]float64{"density_windows": 0}
			}
			// Normalize counts to a mean-relative scale so the texture
			// contrast term is independent of absolute cellularity.
			mean := stat.Mean(in.DensitySamples, nil)
			samples := make([]float64, len(in.DensitySamples))
			for i, v := range in.DensitySamples {
				if mean > 0 {
					samples[i] = v / mean * 32.0
				}
			}
			tex := pipeline.ComputeTextureStats(samples)
			return tex.Score, sampleConfidence(len(in.Nuclei)), map[string]float64{
				"density_windows":  float64(len(in.DensitySamples)),
				"density_mean":     mean,
				"texture_variance": tex.Variance,
				"texture_score":    tex.Score,
			}
		},
	}
}

// NewMitoticActivityScorer counts small hyperchromatic figures per
// megapixel of tissue against a fixed saturation reference.
func NewMitoticActivityScorer(minSamples int, bands BandTable) *Scorer {
	return &Scorer{
		Name:       "mitotic_activity",
		MinSamples: minSamples,
		Bands:      bands,
		measure: func(in *ScoringInput) (float64, float64, map[string]float64) {
			var totalArea float64
			for _, n := range in.Nuclei {
				totalArea += float64(n.Area)
			}
			meanArea := totalArea / float64(len(in.Nuclei))

			candidates := 0
			for _, n := range in.Nuclei {
				if n.MeanIntensity >= hyperchromaticIntensity &&
					float64(n.Area) <= meanArea*mitoticAreaFraction {
					candidates++
				}
			}

			megapixels := float64(in.Width) * float64(in.Height) / 1e6
			rate := 0.0
			if megapixels > 0 {
				rate = float64(candidates) / megapixels
			}
			score := clamp01(rate / referenceMitoticPerMegapixel)
			return score, sampleConfidence(len(in.Nuclei)), map[string]float64{
				"candidate_count":    float64(candidates),
				"rate_per_megapixel": rate,
				"mean_area":          meanArea,
			}
		},
	}
}

// NewCellularityScorer measures nuclei per analyzed megapixel against a
// fixed saturation reference.
func NewCellularityScorer(minSamples int, bands BandTable) *Scorer {
	return &Scorer{
		Name:       "cellularity",
		MinSamples: minSamples,
		Bands:      bands,
		measure: func(in *ScoringInput) (float64, float64, map[string]float64) {
			megapixels := float64(in.Width) * float64(in.Height) / 1e6
			density := 0.0
			if megapixels > 0 {
				density = float64(len(in.Nuclei)) / megapixels
			}
			score := clamp01(density / referenceNucleiPerMegapixel)
			return score, sampleConfidence(len(in.Nuclei)), map[string]float64{
				"nuclei_count":         float64(len(in.Nuclei)),
				"nuclei_per_megapixel": density,
				"analyzed_megapixels":  megapixels,
			}
		},
	}
}

// NewChromatinTextureScorer measures staining heterogeneity across nuclei
// from their mean intensities.
func NewChromatinTextureScorer(minSamples int, bands BandTable) *Scorer {
	return &Scorer{
		Name:       "chromatin_texture",
		MinSamples: minSamples,
		Bands:      bands,
		measure: func(in *ScoringInput) (float64, float64, map[string]float64) {
			intensities := make([]float64, len(in.Nuclei))
			for i, n := range in.Nuclei {
				intensities[i] = n.MeanIntensity
			}
			tex := pipeline.ComputeTextureStats(intensities)
			return tex.Score, sampleConfidence(len(in.Nuclei)), map[string]float64{
				"intensity_mean":   tex.Mean,
				"intensity_stddev": tex.StdDev,
				"homogeneity":      tex.Homogeneity,
				"texture_score":    tex.Score,
			}
		},
	}
}

// DefaultCatalog returns the standard scorer set sharing one band table.
func DefaultCatalog(minSamples int, bands BandTable) []*Scorer {
	return []*Scorer{
		NewNuclearMorphometryScorer(minSamples, bands),
		NewArchitecturalPatternScorer(minSamples, bands),
		NewMitoticActivityScorer(minSamples, bands),
		NewCellularityScorer(minSamples, bands),
		NewChromatinTextureScorer(minSamples, bands),
	}
}

// CatalogNames lists the algorithm names of the standard catalog, for
// validating weight tables before any image is processed.
func CatalogNames() []string {
	catalog := DefaultCatalog(0, DefaultInterpretationBands())
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}
