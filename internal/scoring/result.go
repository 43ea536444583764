package scoring

import "math"

// AlgorithmResult is the outcome of one scoring category.
type AlgorithmResult struct {
	Name           string             `json:"name"`
	Weight         float64            `json:"weight"`
	Score          float64            `json:"score"`
	Confidence     float64            `json:"confidence"`
	Features       map[string]float64 `json:"features,omitempty"`
	Interpretation string             `json:"interpretation"`
	// InsufficientSamples marks a scorer that fell back to its documented
	// low-score default because too few regions were detected. The
	// aggregate still includes this result (fail-soft).
	InsufficientSamples bool `json:"insufficient_samples,omitempty"`
}

// AggregateResult combines every contributing algorithm into one grade.
type AggregateResult struct {
	OverallScore      float64           `json:"overall_score"`
	OverallConfidence float64           `json:"overall_confidence"`
	Grade             string            `json:"grade"`
	GradeRank         int               `json:"grade_rank"`
	Results           []AlgorithmResult `json:"results"`
}

// NucleusMetrics is the per-region feature set handed to the scorers,
// assembled from segmentation plus morphometry output.
type NucleusMetrics struct {
	Area            int
	Perimeter       int
	ShapeComplexity float64
	MeanIntensity   float64
	CentroidX       float64
	CentroidY       float64
	Truncated       bool
}

// ScoringInput is everything a scorer may measure. One instance is built
// per analysis request; scorers never mutate it.
type ScoringInput struct {
	Nuclei []NucleusMetrics
	Width  int
	Height int
	// DensitySamples holds per-subwindow nucleus counts over a fixed grid,
	// used by the architectural scorers.
	DensitySamples []float64
}

// clamp01 is the documented score/confidence clamp applied at every scorer
// and aggregator boundary. NaN maps to 0 so a degenerate measurement can
// never leak out of the [0,1] range.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
