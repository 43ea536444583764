package models

// AlgorithmScore is one scoring category's contribution to the report.
type AlgorithmScore struct {
	Name                string             `json:"name"`
	Weight              float64            `json:"weight"`
	Score               float64            `json:"score"`
	Confidence          float64            `json:"confidence"`
	Interpretation      string             `json:"interpretation"`
	Features            map[string]float64 `json:"features,omitempty"`
	InsufficientSamples bool               `json:"insufficient_samples,omitempty"`
}

// SegmentationSummary describes the detection pass behind a report.
type SegmentationSummary struct {
	Threshold   int  `json:"threshold"`
	RegionCount int  `json:"region_count"`
	Truncated   bool `json:"truncated,omitempty"`
}

// RegionSummary is the wire form of one detected region, without its pixel
// membership list.
type RegionSummary struct {
	Area            int     `json:"area"`
	Perimeter       int     `json:"perimeter,omitempty"`
	CentroidX       float64 `json:"centroid_x"`
	CentroidY       float64 `json:"centroid_y"`
	MeanIntensity   float64 `json:"mean_intensity"`
	ShapeComplexity float64 `json:"shape_complexity,omitempty"`
	Truncated       bool    `json:"truncated,omitempty"`
}

// OverlayPayload carries a rendered segmentation overlay.
type OverlayPayload struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RegionCount int    `json:"region_count"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// GradeReport is the response for one graded slide.
type GradeReport struct {
	SlideURL          string  `json:"slide_url"`
	Profile           string  `json:"profile"`
	Timestamp         string  `json:"timestamp"`
	ProcessingTimeSec float64 `json:"processing_time_sec"`

	OverallScore      float64 `json:"overall_score"`
	OverallConfidence float64 `json:"overall_confidence"`
	Grade             string  `json:"grade"`
	GradeRank         int     `json:"grade_rank"`

	Algorithms   []AlgorithmScore    `json:"algorithms"`
	Segmentation SegmentationSummary `json:"segmentation"`
	StainNames   []string            `json:"stain_names,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// DetailedGradeReport extends GradeReport with per-region morphometry and
// an optional rendered overlay.
type DetailedGradeReport struct {
	GradeReport
	Regions []RegionSummary `json:"regions,omitempty"`
	Overlay *OverlayPayload `json:"overlay,omitempty"`
}
