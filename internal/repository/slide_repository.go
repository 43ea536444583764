package repository

import (
	"context"
	"time"

	"github.com/disintegration/imaging"

	"go-histopath/internal/pipeline"
	"go-histopath/internal/storage"
	"go-histopath/pkg/validation"
)

// slideRepository implements SlideRepository over a SlideFetcher.
type slideRepository struct {
	fetcher      storage.SlideFetcher
	urlValidator *validation.URLValidator
	maxDimension int
	fetchTimeout time.Duration
}

// NewSlideRepository creates a repository that fetches slides through the
// given backend and downscales anything whose longer edge exceeds
// maxDimension before it reaches the pipeline. A fetchTimeout of zero
// disables the per-fetch deadline.
func NewSlideRepository(fetcher storage.SlideFetcher, maxDimension int, fetchTimeout time.Duration) SlideRepository {
	return &slideRepository{
		fetcher:      fetcher,
		urlValidator: validation.NewURLValidator(),
		maxDimension: maxDimension,
		fetchTimeout: fetchTimeout,
	}
}

// GetSlide retrieves and normalizes a slide into an RGBA pixel buffer.
func (r *slideRepository) GetSlide(ctx context.Context, slideURL string) (*pipeline.PixelBuffer, error) {
	if r.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
	}

	img, err := r.fetcher.FetchSlide(ctx, slideURL)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() > r.maxDimension || bounds.Dy() > r.maxDimension {
		img = imaging.Fit(img, r.maxDimension, r.maxDimension, imaging.Lanczos)
	}

	return pipeline.NewPixelBufferFromImage(img), nil
}

// ValidateSlideURL validates if the provided URL is acceptable
func (r *slideRepository) ValidateSlideURL(slideURL string) error {
	return r.urlValidator.ValidateSlideURL(slideURL)
}
