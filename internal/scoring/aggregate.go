package scoring

import (
	"fmt"
	"math"

	apperrors "go-histopath/internal/errors"
)

// WeightSumEpsilon is the tolerance on the configured weight total.
const WeightSumEpsilon = 1e-6

// Confidence shaping: the weighted mean of per-result confidences gets a
// small fixed bonus for corroboration across algorithms, then is clamped
// below 1.0 so the aggregate never asserts certainty.
const (
	confidenceBonus   = 0.05
	confidenceCeiling = 0.99
)

// WeightedAggregator combines algorithm results into one overall score.
// Weights are validated at construction: they must cover a known algorithm
// set and sum to 1.0 within epsilon. There is no silent renormalization; a
// bad weight table is a configuration error.
type WeightedAggregator struct {
	weights map[string]float64
}

// NewWeightedAggregator validates the weight table.
func NewWeightedAggregator(weights map[string]float64) (*WeightedAggregator, error) {
	if len(weights) == 0 {
		return nil, apperrors.NewConfigurationError("weight table is empty", nil)
	}
	var sum float64
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("weight for %q must be a finite non-negative value (got %v)", name, w), nil)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightSumEpsilon {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("weights must sum to 1.0 +/- %g (got %g)", WeightSumEpsilon, sum), nil)
	}
	copied := make(map[string]float64, len(weights))
	for name, w := range weights {
		copied[name] = w
	}
	return &WeightedAggregator{weights: copied}, nil
}

// Weight returns the configured weight for an algorithm name.
func (a *WeightedAggregator) Weight(name string) (float64, bool) {
	w, ok := a.weights[name]
	return w, ok
}

// Aggregate computes the weighted overall score and confidence. Results
// flagged InsufficientSamples still contribute through their documented
// defaults (fail-soft); a result without a configured weight is a
// configuration error because the weight table was validated as a whole.
func (a *WeightedAggregator) Aggregate(results []AlgorithmResult) (*AggregateResult, error) {
	if len(results) == 0 {
		return nil, apperrors.NewConfigurationError("no algorithm results to aggregate", nil)
	}

	var overallScore, overallConfidence float64
	combined := make([]AlgorithmResult, 0, len(results))
	for _, r := range results {
		w, ok := a.weights[r.Name]
		if !ok {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("no weight configured for algorithm %q", r.Name), nil)
		}
		r.Weight = w
		r.Score = clamp01(r.Score)
		r.Confidence = clamp01(r.Confidence)
		overallScore += r.Score * w
		overallConfidence += r.Confidence * w
		combined = append(combined, r)
	}

	overallConfidence += confidenceBonus
	if overallConfidence > confidenceCeiling {
		overallConfidence = confidenceCeiling
	}

	return &AggregateResult{
		OverallScore:      clamp01(overallScore),
		OverallConfidence: clamp01(overallConfidence),
		Results:           combined,
	}, nil
}
