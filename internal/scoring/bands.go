package scoring

import (
	apperrors "go-histopath/internal/errors"
)

// Band maps an exclusive lower score bound to a qualitative label.
type Band struct {
	Threshold float64 `json:"threshold"`
	Label     string  `json:"label"`
}

// BandTable is an ordered list of bands, scanned from the highest bound
// down. The last band acts as the catch-all. Bands are configuration data;
// scorers never inline interpretation literals.
type BandTable []Band

// DefaultInterpretationBands is the standard qualitative scale shared by
// the scorer catalog.
func DefaultInterpretationBands() BandTable {
	return BandTable{
		{Threshold: 0.8, Label: "high"},
		{Threshold: 0.6, Label: "moderate"},
		{Threshold: 0.4, Label: "low"},
		{Threshold: 0.0, Label: "minimal"},
	}
}

// Validate checks the table is non-empty with strictly descending bounds.
func (t BandTable) Validate() error {
	if len(t) == 0 {
		return apperrors.NewConfigurationError("interpretation band table is empty", nil)
	}
	for i := 1; i < len(t); i++ {
		if t[i].Threshold >= t[i-1].Threshold {
			return apperrors.NewConfigurationError("interpretation bands must have strictly descending thresholds", nil)
		}
	}
	return nil
}

// Interpret returns the label of the first band whose bound the score
// exceeds, falling through to the last band so every score gets a label.
func (t BandTable) Interpret(score float64) string {
	for _, b := range t {
		if score > b.Threshold {
			return b.Label
		}
	}
	return t[len(t)-1].Label
}
