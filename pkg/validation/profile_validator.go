package validation

import (
	"fmt"
	"math"
)

// WeightSumTolerance is the allowed deviation of a weight table's total
// from 1.0.
const WeightSumTolerance = 1e-6

// ProfileIssue represents one problem found in a grading profile override.
type ProfileIssue struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning"
}

// ProfileOverrides mirrors the tunable parts of a grading profile that API
// callers may override per request. The validator reports every issue at
// once so a caller can fix a bad profile in a single round trip.
type ProfileOverrides struct {
	Weights      map[string]float64
	GradeBands   []GradeBandSpec
	Threshold    *int
	Connectivity *int
	MinRegionPx  *int
	MaxRegionPx  *int
}

// GradeBandSpec is the wire form of a grade band.
type GradeBandSpec struct {
	LowerBound float64 `json:"lower_bound"`
	Label      string  `json:"label"`
}

// ProfileValidator checks user-supplied profile overrides before a grader
// is built from them.
type ProfileValidator struct {
	knownAlgorithms map[string]bool
}

// NewProfileValidator creates a profile validator that accepts any weight
// keys.
func NewProfileValidator() *ProfileValidator {
	return &ProfileValidator{}
}

// NewProfileValidatorWithAlgorithms restricts weight tables to the given
// algorithm names: every key must be known and every known algorithm must
// carry a weight.
func NewProfileValidatorWithAlgorithms(names []string) *ProfileValidator {
	known := make(map[string]bool, len(names))
	for _, name := range names {
		known[name] = true
	}
	return &ProfileValidator{knownAlgorithms: known}
}

// Validate returns every issue found in the overrides. An empty slice means
// the overrides are acceptable.
func (pv *ProfileValidator) Validate(o ProfileOverrides) []ProfileIssue {
	var issues []ProfileIssue
	issues = append(issues, pv.validateWeights(o.Weights)...)
	issues = append(issues, pv.validateGradeBands(o.GradeBands)...)
	issues = append(issues, pv.validateSegmentation(o)...)
	return issues
}

func (pv *ProfileValidator) validateWeights(weights map[string]float64) []ProfileIssue {
	if weights == nil {
		return nil
	}
	var issues []ProfileIssue
	var sum float64
	for name, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			issues = append(issues, ProfileIssue{
				Field:    "weights",
				Message:  fmt.Sprintf("weight for %q is not finite", name),
				Severity: "error",
			})
			continue
		}
		if w < 0 {
			issues = append(issues, ProfileIssue{
				Field:    "weights",
				Message:  fmt.Sprintf("weight for %q is negative", name),
				Severity: "error",
			})
		}
		sum += w
	}
	if len(weights) == 0 {
		issues = append(issues, ProfileIssue{
			Field:    "weights",
			Message:  "weight table is empty",
			Severity: "error",
		})
	} else if math.Abs(sum-1.0) > WeightSumTolerance {
		issues = append(issues, ProfileIssue{
			Field:    "weights",
			Message:  fmt.Sprintf("weights sum to %g, expected 1.0 +/- %g", sum, WeightSumTolerance),
			Severity: "error",
		})
	}
	if pv.knownAlgorithms != nil && len(weights) > 0 {
		for name := range weights {
			if !pv.knownAlgorithms[name] {
				issues = append(issues, ProfileIssue{
					Field:    "weights",
					Message:  fmt.Sprintf("unknown algorithm %q", name),
					Severity: "error",
				})
			}
		}
		for name := range pv.knownAlgorithms {
			if _, ok := weights[name]; !ok {
				issues = append(issues, ProfileIssue{
					Field:    "weights",
					Message:  fmt.Sprintf("missing weight for algorithm %q", name),
					Severity: "error",
				})
			}
		}
	}
	return issues
}

func (pv *ProfileValidator) validateGradeBands(bands []GradeBandSpec) []ProfileIssue {
	if bands == nil {
		return nil
	}
	var issues []ProfileIssue
	if len(bands) == 0 {
		issues = append(issues, ProfileIssue{
			Field:    "grade_bands",
			Message:  "grade band table is empty",
			Severity: "error",
		})
		return issues
	}
	for i, b := range bands {
		if math.IsNaN(b.LowerBound) || math.IsInf(b.LowerBound, 0) {
			issues = append(issues, ProfileIssue{
				Field:    "grade_bands",
				Message:  fmt.Sprintf("band %d has a non-finite lower bound", i),
				Severity: "error",
			})
		}
		if b.Label == "" {
			issues = append(issues, ProfileIssue{
				Field:    "grade_bands",
				Message:  fmt.Sprintf("band %d has an empty label", i),
				Severity: "error",
			})
		}
		if i > 0 && b.LowerBound >= bands[i-1].LowerBound {
			issues = append(issues, ProfileIssue{
				Field:    "grade_bands",
				Message:  fmt.Sprintf("band %d bound must be below band %d", i, i-1),
				Severity: "error",
			})
		}
	}
	if bands[len(bands)-1].LowerBound > 0 {
		issues = append(issues, ProfileIssue{
			Field:    "grade_bands",
			Message:  "lowest band bound is above 0; very low scores fall through to it anyway",
			Severity: "warning",
		})
	}
	return issues
}

func (pv *ProfileValidator) validateSegmentation(o ProfileOverrides) []ProfileIssue {
	var issues []ProfileIssue
	if o.Threshold != nil && (*o.Threshold < 0 || *o.Threshold > 255) {
		issues = append(issues, ProfileIssue{
			Field:    "threshold",
			Message:  fmt.Sprintf("threshold %d out of byte range [0,255]", *o.Threshold),
			Severity: "error",
		})
	}
	if o.Connectivity != nil && *o.Connectivity != 4 && *o.Connectivity != 8 {
		issues = append(issues, ProfileIssue{
			Field:    "connectivity",
			Message:  fmt.Sprintf("connectivity must be 4 or 8 (got %d)", *o.Connectivity),
			Severity: "error",
		})
	}
	if o.MinRegionPx != nil && *o.MinRegionPx < 1 {
		issues = append(issues, ProfileIssue{
			Field:    "min_region_px",
			Message:  "minimum region size must be >= 1",
			Severity: "error",
		})
	}
	if o.MinRegionPx != nil && o.MaxRegionPx != nil && *o.MaxRegionPx < *o.MinRegionPx {
		issues = append(issues, ProfileIssue{
			Field:    "max_region_px",
			Message:  "maximum region size is below the minimum region size",
			Severity: "error",
		})
	}
	return issues
}

// ConvertIssuesToMessages flattens issues into message strings for a
// response body.
func (pv *ProfileValidator) ConvertIssuesToMessages(issues []ProfileIssue) []string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return messages
}

// HasErrors reports whether any issue is severity "error" (warnings alone
// do not block grading).
func (pv *ProfileValidator) HasErrors(issues []ProfileIssue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
