package grader

import (
	"go-histopath/internal/pipeline"
)

// SlideGrader runs the full morphometry pipeline on one pixel buffer and
// produces a graded result. Implementations hold no per-request state, so a
// single grader is safe for concurrent use.
type SlideGrader interface {
	Grade(buf *pipeline.PixelBuffer) (*GradeResult, error)

	// Lifecycle management
	Close() error
}
