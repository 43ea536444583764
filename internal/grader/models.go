package grader

import (
	"time"

	"go-histopath/internal/pipeline"
	"go-histopath/internal/scoring"
)

// GradeResult is the complete outcome of grading one slide buffer.
type GradeResult struct {
	Aggregate scoring.AggregateResult

	// Segmentation summary
	Threshold   byte
	RegionCount int
	// Truncated is set when any region hit the max-pixel growth cap.
	Truncated bool

	StainNames []string

	// Regions carries the detected components for overlay rendering and
	// detailed reporting. Transient per-request data.
	Regions []pipeline.Region

	// Nuclei holds the per-region morphometry handed to the scorers, in
	// the same order as Regions.
	Nuclei []scoring.NucleusMetrics

	Timestamp         time.Time
	ProcessingTimeSec float64
}
