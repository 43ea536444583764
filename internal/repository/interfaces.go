package repository

import (
	"context"

	"go-histopath/internal/pipeline"
)

// SlideRepository defines slide data access: fetch, normalize, validate.
type SlideRepository interface {
	// GetSlide retrieves a slide and normalizes it into a pixel buffer
	// ready for the grading pipeline.
	GetSlide(ctx context.Context, slideURL string) (*pipeline.PixelBuffer, error)

	// ValidateSlideURL validates if the provided URL is acceptable
	ValidateSlideURL(slideURL string) error
}
