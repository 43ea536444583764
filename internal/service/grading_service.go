package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/grader"
	"go-histopath/internal/observer"
	"go-histopath/internal/pipeline"
	"go-histopath/internal/render"
	"go-histopath/internal/repository"
	"go-histopath/internal/scoring"
	"go-histopath/internal/strategy"
	"go-histopath/pkg/models"
	"go-histopath/pkg/validation"
)

// GradingService defines the interface for slide grading
type GradingService interface {
	// GradeSlide fetches, grades and summarizes one slide
	GradeSlide(ctx context.Context, request models.GradeRequest) (*models.GradeReport, error)

	// GradeSlideDetailed additionally returns per-region morphometry and an
	// optional rendered overlay
	GradeSlideDetailed(ctx context.Context, request models.DetailedGradeRequest) (*models.DetailedGradeReport, error)

	// ValidateSlideURL validates the slide URL
	ValidateSlideURL(slideURL string) error

	// Close releases all cached graders
	Close() error
}

// ProfileValidationError carries every issue found in a request's profile
// overrides, so callers can fix a bad profile in one round trip.
type ProfileValidationError struct {
	Issues []string
}

// Error implements the error interface
func (e *ProfileValidationError) Error() string {
	return fmt.Sprintf("invalid profile overrides: %s", strings.Join(e.Issues, "; "))
}

// gradingService implements GradingService
type gradingService struct {
	slideRepo repository.SlideRepository
	profiles  *strategy.ProfileRegistry
	validator *validation.ProfileValidator
	publisher observer.Subject

	// Graders for unmodified profiles are built once and reused; requests
	// carrying overrides get a request-scoped grader instead.
	mu      sync.Mutex
	graders map[string]grader.SlideGrader
}

// NewGradingService creates a new grading service
func NewGradingService(
	slideRepo repository.SlideRepository,
	profiles *strategy.ProfileRegistry,
	publisher observer.Subject,
) GradingService {
	return &gradingService{
		slideRepo: slideRepo,
		profiles:  profiles,
		validator: validation.NewProfileValidatorWithAlgorithms(scoring.CatalogNames()),
		publisher: publisher,
		graders:   make(map[string]grader.SlideGrader),
	}
}

// GradeSlide fetches the slide and runs the grading pipeline
func (s *gradingService) GradeSlide(ctx context.Context, request models.GradeRequest) (*models.GradeReport, error) {
	_, res, profileName, err := s.gradeBuffer(ctx, request)
	if err != nil {
		return nil, err
	}
	return s.buildReport(request.URL, profileName, res), nil
}

// GradeSlideDetailed grades the slide and expands the report with per-region
// morphometry and, when requested, a rendered segmentation overlay.
func (s *gradingService) GradeSlideDetailed(ctx context.Context, request models.DetailedGradeRequest) (*models.DetailedGradeReport, error) {
	buf, res, profileName, err := s.gradeBuffer(ctx, request.GradeRequest)
	if err != nil {
		return nil, err
	}

	response := &models.DetailedGradeReport{
		GradeReport: *s.buildReport(request.URL, profileName, res),
	}

	if request.IncludeRegions {
		response.Regions = s.buildRegionSummaries(res)
	}

	if request.IncludeOverlay {
		overlay, err := render.RenderRegionOverlay(buf, res.Regions)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to render region overlay", err)
		}
		response.Overlay = &models.OverlayPayload{
			Width:       overlay.Width,
			Height:      overlay.Height,
			RegionCount: overlay.RegionCount,
			ImageBase64: overlay.ImageBase64,
			MimeType:    overlay.MimeType,
		}
	}

	return response, nil
}

// ValidateSlideURL validates the slide URL
func (s *gradingService) ValidateSlideURL(slideURL string) error {
	return s.slideRepo.ValidateSlideURL(slideURL)
}

// gradeBuffer runs the shared fetch-and-grade path behind both endpoints.
func (s *gradingService) gradeBuffer(ctx context.Context, request models.GradeRequest) (*pipeline.PixelBuffer, *grader.GradeResult, string, error) {
	if err := s.ValidateSlideURL(request.URL); err != nil {
		return nil, nil, "", apperrors.NewInvalidInputError("invalid slide URL", err)
	}

	profile, err := s.profiles.Resolve(request.Profile)
	if err != nil {
		return nil, nil, "", err
	}
	profileName := profile.GetProfileName()

	slideGrader, adHoc, err := s.graderFor(profile, request)
	if err != nil {
		return nil, nil, "", err
	}
	if adHoc {
		defer slideGrader.Close()
	}

	start := time.Now()
	s.publish(ctx, observer.GradingEvent{
		EventType: observer.GradingStarted,
		Timestamp: start,
		SlideURL:  request.URL,
		Profile:   profileName,
	})

	buf, err := s.slideRepo.GetSlide(ctx, request.URL)
	if err != nil {
		s.publish(ctx, observer.GradingEvent{
			EventType:    observer.SlideFetchFailed,
			Timestamp:    time.Now(),
			SlideURL:     request.URL,
			Profile:      profileName,
			ErrorMessage: err.Error(),
		})
		return nil, nil, "", err
	}
	s.publish(ctx, observer.GradingEvent{
		EventType: observer.SlideFetched,
		Timestamp: time.Now(),
		SlideURL:  request.URL,
		Profile:   profileName,
		Success:   true,
	})

	res, err := slideGrader.Grade(buf)
	if err != nil {
		s.publish(ctx, observer.GradingEvent{
			EventType:      observer.GradingFailed,
			Timestamp:      time.Now(),
			SlideURL:       request.URL,
			Profile:        profileName,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, nil, "", err
	}

	s.publish(ctx, observer.GradingEvent{
		EventType:      observer.GradingCompleted,
		Timestamp:      time.Now(),
		SlideURL:       request.URL,
		Profile:        profileName,
		ProcessingTime: time.Since(start),
		Success:        true,
		Grade:          res.Aggregate.Grade,
	})

	return buf, res, profileName, nil
}

// graderFor returns the grader serving this request and whether it is
// request-scoped (the caller must close ad-hoc graders).
func (s *gradingService) graderFor(profile strategy.GradingProfile, request models.GradeRequest) (grader.SlideGrader, bool, error) {
	if !hasOverrides(request) {
		g, err := s.cachedGrader(profile)
		return g, false, err
	}

	issues := s.validator.Validate(validation.ProfileOverrides{
		Weights:    request.Weights,
		GradeBands: toBandSpecs(request.GradeBands),
		Threshold:  request.Threshold,
	})
	if s.validator.HasErrors(issues) {
		return nil, false, apperrors.NewConfigurationError(
			"profile overrides rejected",
			&ProfileValidationError{Issues: s.validator.ConvertIssuesToMessages(issues)})
	}

	opts := applyOverrides(profile.Options(), request)
	g, err := grader.NewSlideGrader(opts)
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}

// cachedGrader lazily builds one grader per registered profile.
func (s *gradingService) cachedGrader(profile strategy.GradingProfile) (grader.SlideGrader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := profile.GetProfileName()
	if g, ok := s.graders[name]; ok {
		return g, nil
	}
	g, err := grader.NewSlideGrader(profile.Options())
	if err != nil {
		return nil, err
	}
	s.graders[name] = g
	return g, nil
}

// publish fans an event out to the subscribed observers.
func (s *gradingService) publish(ctx context.Context, event observer.GradingEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(ctx, event)
	}
}

func hasOverrides(request models.GradeRequest) bool {
	return request.Weights != nil || request.GradeBands != nil || request.Threshold != nil
}

func toBandSpecs(bands []models.GradeBandModel) []validation.GradeBandSpec {
	if bands == nil {
		return nil
	}
	specs := make([]validation.GradeBandSpec, len(bands))
	for i, b := range bands {
		specs[i] = validation.GradeBandSpec{LowerBound: b.LowerBound, Label: b.Label}
	}
	return specs
}

// applyOverrides layers validated request overrides over the profile options.
func applyOverrides(opts grader.GradingOptions, request models.GradeRequest) grader.GradingOptions {
	if request.Weights != nil {
		opts = opts.WithWeights(request.Weights)
	}
	if request.GradeBands != nil {
		bands := make([]scoring.GradeBand, len(request.GradeBands))
		for i, b := range request.GradeBands {
			bands[i] = scoring.GradeBand{LowerBound: b.LowerBound, Label: b.Label}
		}
		opts = opts.WithGradeBands(bands)
	}
	if request.Threshold != nil {
		opts = opts.WithThreshold(byte(*request.Threshold))
	}
	return opts
}

// buildReport converts a grade result into the wire report.
func (s *gradingService) buildReport(slideURL, profileName string, res *grader.GradeResult) *models.GradeReport {
	algorithms := make([]models.AlgorithmScore, 0, len(res.Aggregate.Results))
	var warnings []string
	for _, r := range res.Aggregate.Results {
		algorithms = append(algorithms, models.AlgorithmScore{
			Name:                r.Name,
			Weight:              r.Weight,
			Score:               r.Score,
			Confidence:          r.Confidence,
			Interpretation:      r.Interpretation,
			Features:            r.Features,
			InsufficientSamples: r.InsufficientSamples,
		})
		if r.InsufficientSamples {
			warnings = append(warnings,
				fmt.Sprintf("%s: too few regions for a reliable score, reported the low-confidence default", r.Name))
		}
	}
	if res.Truncated {
		warnings = append(warnings, "one or more regions hit the growth cap and were truncated")
	}

	return &models.GradeReport{
		SlideURL:          slideURL,
		Profile:           profileName,
		Timestamp:         res.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		ProcessingTimeSec: res.ProcessingTimeSec,
		OverallScore:      res.Aggregate.OverallScore,
		OverallConfidence: res.Aggregate.OverallConfidence,
		Grade:             res.Aggregate.Grade,
		GradeRank:         res.Aggregate.GradeRank,
		Algorithms:        algorithms,
		Segmentation: models.SegmentationSummary{
			Threshold:   int(res.Threshold),
			RegionCount: res.RegionCount,
			Truncated:   res.Truncated,
		},
		StainNames: res.StainNames,
		Warnings:   warnings,
	}
}

// buildRegionSummaries pairs detected regions with their morphometry,
// dropping the per-pixel membership lists.
func (s *gradingService) buildRegionSummaries(res *grader.GradeResult) []models.RegionSummary {
	summaries := make([]models.RegionSummary, 0, len(res.Regions))
	for i, region := range res.Regions {
		summary := models.RegionSummary{
			Area:          region.Area,
			CentroidX:     region.CentroidX,
			CentroidY:     region.CentroidY,
			MeanIntensity: region.MeanIntensity,
			Truncated:     region.Truncated,
		}
		if i < len(res.Nuclei) {
			summary.Perimeter = res.Nuclei[i].Perimeter
			summary.ShapeComplexity = res.Nuclei[i].ShapeComplexity
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// Close shuts down every cached grader.
func (s *gradingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, g := range s.graders {
		if err := g.Close(); err != nil {
			return fmt.Errorf("failed to close grader for profile %q: %w", name, err)
		}
		delete(s.graders, name)
	}
	return nil
}
