package grader

import (
	"go-histopath/internal/pipeline"
	"go-histopath/internal/scoring"
)

// GradingOptions provides flexible configuration for slide grading. All
// values are validated once, when the grader is constructed.
type GradingOptions struct {
	// Stain separation
	StainMatrix *pipeline.StainMatrix
	// SegmentationChannel indexes the deconvolved channel to segment
	// (0 is hematoxylin for the shipped matrices).
	SegmentationChannel int

	// PreSmoothRadius applies a Gaussian blur to the RGBA input before
	// deconvolution when > 0, suppressing scanner noise.
	PreSmoothRadius float64

	// Enhancement
	DenoiseMode   pipeline.DenoiseMode
	DenoiseRadius int
	ContrastMode  pipeline.ContrastMode

	// Segmentation
	Segmentation pipeline.DetectorParams

	// Scoring
	MinScorerSamples    int
	DensityGridSize     int
	Weights             map[string]float64
	InterpretationBands scoring.BandTable
	GradeBands          []scoring.GradeBand

	// Performance options
	MaxWorkers int
}

// DefaultWeights spreads the aggregate across the standard scorer catalog.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"nuclear_morphometry":   0.30,
		"architectural_pattern": 0.25,
		"mitotic_activity":      0.20,
		"cellularity":           0.15,
		"chromatin_texture":     0.10,
	}
}

// DefaultOptions returns the standard grading configuration.
func DefaultOptions() GradingOptions {
	return GradingOptions{
		StainMatrix:         pipeline.RuifrokHE(),
		SegmentationChannel: 0,
		PreSmoothRadius:     0,
		DenoiseMode:         pipeline.DenoiseMedian,
		DenoiseRadius:       1,
		ContrastMode:        pipeline.ContrastRescale,
		Segmentation:        pipeline.DefaultDetectorParams(),
		MinScorerSamples:    10,
		DensityGridSize:     8,
		Weights:             DefaultWeights(),
		InterpretationBands: scoring.DefaultInterpretationBands(),
		GradeBands:          scoring.DefaultGradeBands(),
		MaxWorkers:          0, // Use default CPU count
	}
}

// RapidOptions trades segmentation fidelity for throughput: cheaper mean
// denoise, smaller region caps, coarser density grid.
func RapidOptions() GradingOptions {
	opts := DefaultOptions()
	opts.DenoiseMode = pipeline.DenoiseMean
	opts.ContrastMode = pipeline.ContrastNone
	opts.Segmentation.MaxRegionPixels = 20000
	opts.Segmentation.MaxRegions = 2000
	opts.DensityGridSize = 4
	return opts
}

// HighResolutionOptions tightens the analysis for large, clean scans:
// pre-smoothing, wider median window, histogram equalization.
func HighResolutionOptions() GradingOptions {
	opts := DefaultOptions()
	opts.PreSmoothRadius = 1.5
	opts.DenoiseRadius = 2
	opts.ContrastMode = pipeline.ContrastEqualize
	opts.Segmentation.MinRegionPixels = 50
	opts.MinScorerSamples = 20
	return opts
}

// WithThreshold fixes an explicit segmentation threshold instead of Otsu.
func (opts GradingOptions) WithThreshold(t byte) GradingOptions {
	opts.Segmentation.Threshold = t
	opts.Segmentation.UseOtsu = false
	return opts
}

// WithOtsu enables automatic threshold selection.
func (opts GradingOptions) WithOtsu() GradingOptions {
	opts.Segmentation.UseOtsu = true
	return opts
}

// WithConnectivity sets 4- or 8-connectivity for segmentation.
func (opts GradingOptions) WithConnectivity(c int) GradingOptions {
	opts.Segmentation.Connectivity = c
	return opts
}

// WithWeights swaps the aggregation weight table.
func (opts GradingOptions) WithWeights(weights map[string]float64) GradingOptions {
	opts.Weights = weights
	return opts
}

// WithGradeBands swaps the grade band table.
func (opts GradingOptions) WithGradeBands(bands []scoring.GradeBand) GradingOptions {
	opts.GradeBands = bands
	return opts
}
