package models

// GradeRequest represents a request to grade one slide.
type GradeRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Profile string `json:"profile,omitempty"`

	// Optional per-request overrides of the selected profile.
	Weights    map[string]float64 `json:"weights,omitempty"`
	GradeBands []GradeBandModel   `json:"grade_bands,omitempty"`
	Threshold  *int               `json:"threshold,omitempty"`
}

// DetailedGradeRequest additionally controls the detailed payload.
type DetailedGradeRequest struct {
	GradeRequest
	IncludeRegions bool `json:"include_regions,omitempty"`
	IncludeOverlay bool `json:"include_overlay,omitempty"`
}

// GradeBandModel is the wire form of one grade band.
type GradeBandModel struct {
	LowerBound float64 `json:"lower_bound"`
	Label      string  `json:"label"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Issues  []string `json:"issues,omitempty"`
}
