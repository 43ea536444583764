package scoring

import (
	"fmt"
	"math"

	apperrors "go-histopath/internal/errors"
)

// GradeBand maps an inclusive lower score bound to a grade label. Bands are
// ordered highest bound first; the last band is the catch-all.
type GradeBand struct {
	LowerBound float64 `json:"lower_bound"`
	Label      string  `json:"label"`
}

// GradeClassifier is a pure, total mapping from overall score to grade.
// Monotonic by construction: bands are validated strictly descending, so a
// higher score can never land in a lower-ranked band.
type GradeClassifier struct {
	bands []GradeBand
}

// DefaultGradeBands is the standard four-tier grading scale.
func DefaultGradeBands() []GradeBand {
	return []GradeBand{
		{LowerBound: 0.75, Label: "grade 3 (poorly differentiated)"},
		{LowerBound: 0.50, Label: "grade 2 (moderately differentiated)"},
		{LowerBound: 0.25, Label: "grade 1 (well differentiated)"},
		{LowerBound: 0.00, Label: "benign/indeterminate"},
	}
}

// NewGradeClassifier validates the band table at construction.
func NewGradeClassifier(bands []GradeBand) (*GradeClassifier, error) {
	if len(bands) == 0 {
		return nil, apperrors.NewConfigurationError("grade band table is empty", nil)
	}
	for i, b := range bands {
		if math.IsNaN(b.LowerBound) || math.IsInf(b.LowerBound, 0) {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("grade band %d has a non-finite bound", i), nil)
		}
		if b.Label == "" {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("grade band %d has an empty label", i), nil)
		}
		if i > 0 && b.LowerBound >= bands[i-1].LowerBound {
			return nil, apperrors.NewConfigurationError(
				"grade bands must have strictly descending lower bounds", nil)
		}
	}
	copied := make([]GradeBand, len(bands))
	copy(copied, bands)
	return &GradeClassifier{bands: copied}, nil
}

// Classify returns the label and rank of the first band whose lower bound
// the score meets. Rank 0 is the lowest band; higher ranks are higher
// grades. The lowest band catches everything, so classification is total.
func (c *GradeClassifier) Classify(score float64) (string, int) {
	score = clamp01(score)
	for i, b := range c.bands {
		if score >= b.LowerBound {
			return b.Label, len(c.bands) - 1 - i
		}
	}
	last := c.bands[len(c.bands)-1]
	return last.Label, 0
}
