package grader

import (
	"fmt"
	"time"

	"github.com/anthonynsimon/bild/blur"

	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/logger"
	"go-histopath/internal/pipeline"
	"go-histopath/internal/scoring"
)

// coreGrader implements SlideGrader and orchestrates all pipeline stages.
// Every collaborator is validated at construction; Grade itself only ever
// fails on bad input buffers.
type coreGrader struct {
	options     GradingOptions
	deconvolver *pipeline.ColorDeconvolver
	enhancer    *pipeline.Enhancer
	detector    *pipeline.RegionDetector
	scorers     []*scoring.Scorer
	aggregator  *scoring.WeightedAggregator
	classifier  *scoring.GradeClassifier
	workerPool  *WorkerPool
}

// NewSlideGrader builds a grader from options, surfacing configuration
// errors before any image is processed.
func NewSlideGrader(options GradingOptions) (SlideGrader, error) {
	deconvolver, err := pipeline.NewColorDeconvolver(options.StainMatrix)
	if err != nil {
		return nil, err
	}
	if options.SegmentationChannel < 0 || options.SegmentationChannel >= len(options.StainMatrix.Vectors) {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("segmentation channel %d out of range for %d-stain matrix",
				options.SegmentationChannel, len(options.StainMatrix.Vectors)), nil)
	}
	enhancer, err := pipeline.NewEnhancer(options.DenoiseMode, options.DenoiseRadius, options.ContrastMode)
	if err != nil {
		return nil, err
	}
	detector, err := pipeline.NewRegionDetector(options.Segmentation)
	if err != nil {
		return nil, err
	}
	if err := options.InterpretationBands.Validate(); err != nil {
		return nil, err
	}
	if options.MinScorerSamples < 0 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("min scorer samples %d must be >= 0", options.MinScorerSamples), nil)
	}
	if options.DensityGridSize < 1 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("density grid size %d must be >= 1", options.DensityGridSize), nil)
	}
	scorers := scoring.DefaultCatalog(options.MinScorerSamples, options.InterpretationBands)

	// The weight table must cover the catalog exactly, so a bad table
	// fails here instead of after the slide has been fetched and scored.
	known := make(map[string]bool, len(scorers))
	for _, s := range scorers {
		known[s.Name] = true
		if _, ok := options.Weights[s.Name]; !ok {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("no weight configured for algorithm %q", s.Name), nil)
		}
	}
	for name := range options.Weights {
		if !known[name] {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("weight references unknown algorithm %q", name), nil)
		}
	}

	aggregator, err := scoring.NewWeightedAggregator(options.Weights)
	if err != nil {
		return nil, err
	}
	classifier, err := scoring.NewGradeClassifier(options.GradeBands)
	if err != nil {
		return nil, err
	}

	workerPool := NewWorkerPool(options.MaxWorkers)
	workerPool.Start()

	return &coreGrader{
		options:     options,
		deconvolver: deconvolver,
		enhancer:    enhancer,
		detector:    detector,
		scorers:     scorers,
		aggregator:  aggregator,
		classifier:  classifier,
		workerPool:  workerPool,
	}, nil
}

// Grade runs the one-shot pipeline: deconvolve, enhance, segment, measure,
// score, aggregate, classify. All intermediate buffers are request-scoped.
func (cg *coreGrader) Grade(buf *pipeline.PixelBuffer) (*GradeResult, error) {
	start := time.Now()

	if err := buf.Validate(); err != nil {
		return nil, err
	}

	if cg.options.PreSmoothRadius > 0 {
		smoothed := blur.Gaussian(buf.ToImage(), cg.options.PreSmoothRadius)
		buf = pipeline.NewPixelBufferFromImage(smoothed)
	}

	channels, err := cg.deconvolver.Deconvolve(buf)
	if err != nil {
		return nil, err
	}

	// Channels are independent; enhance them across the pool. The batch is
	// request-scoped, so concurrent Grade calls can share the pool.
	enhanced := make([]*pipeline.ChannelImage, len(channels))
	batch := cg.workerPool.NewBatch()
	for i := range channels {
		i := i
		batch.Submit(func() {
			enhanced[i] = cg.enhancer.Enhance(channels[i])
		})
	}
	batch.Wait()

	// Segmentation has intra-component data dependencies; it runs
	// single-threaded on the configured stain channel.
	regions, threshold := cg.detector.Detect(enhanced[cg.options.SegmentationChannel])

	nuclei := cg.measureRegions(regions)

	input := &scoring.ScoringInput{
		Nuclei:         nuclei,
		Width:          buf.Width,
		Height:         buf.Height,
		DensitySamples: densityGrid(regions, buf.Width, buf.Height, cg.options.DensityGridSize),
	}

	results := make([]scoring.AlgorithmResult, 0, len(cg.scorers))
	for _, s := range cg.scorers {
		r := s.Score(input)
		if r.InsufficientSamples {
			logger.WithComponent("grader").WithField("algorithm", r.Name).
				Debug("Scorer fell back to insufficient-samples default")
		}
		results = append(results, r)
	}

	aggregate, err := cg.aggregator.Aggregate(results)
	if err != nil {
		return nil, err
	}
	aggregate.Grade, aggregate.GradeRank = cg.classifier.Classify(aggregate.OverallScore)

	truncated := false
	for _, r := range regions {
		if r.Truncated {
			truncated = true
			break
		}
	}

	return &GradeResult{
		Aggregate:         *aggregate,
		Threshold:         threshold,
		RegionCount:       len(regions),
		Truncated:         truncated,
		StainNames:        cg.deconvolver.StainNames(),
		Regions:           regions,
		Nuclei:            nuclei,
		Timestamp:         start,
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// measureRegions runs morphometry over the detected regions in parallel
// chunks. Each job writes a disjoint slice of the output.
func (cg *coreGrader) measureRegions(regions []pipeline.Region) []scoring.NucleusMetrics {
	nuclei := make([]scoring.NucleusMetrics, len(regions))
	batch := cg.workerPool.NewBatch()
	const chunkSize = 64
	for startIdx := 0; startIdx < len(regions); startIdx += chunkSize {
		endIdx := startIdx + chunkSize
		if endIdx > len(regions) {
			endIdx = len(regions)
		}
		startIdx, endIdx := startIdx, endIdx
		batch.Submit(func() {
			for i := startIdx; i < endIdx; i++ {
				region := regions[i]
				m := pipeline.AnalyzeRegion(&region)
				nuclei[i] = scoring.NucleusMetrics{
					Area:            region.Area,
					Perimeter:       m.Perimeter,
					ShapeComplexity: m.ShapeComplexity,
					MeanIntensity:   region.MeanIntensity,
					CentroidX:       region.CentroidX,
					CentroidY:       region.CentroidY,
					Truncated:       region.Truncated,
				}
			}
		})
	}
	batch.Wait()
	return nuclei
}

// densityGrid counts region centroids per sub-window of a gridSize x
// gridSize partition, feeding the architectural scorers.
func densityGrid(regions []pipeline.Region, width, height, gridSize int) []float64 {
	samples := make([]float64, gridSize*gridSize)
	cellW := float64(width) / float64(gridSize)
	cellH := float64(height) / float64(gridSize)
	if cellW <= 0 || cellH <= 0 {
		return samples
	}
	for _, r := range regions {
		cx := int(r.CentroidX / cellW)
		cy := int(r.CentroidY / cellH)
		if cx >= gridSize {
			cx = gridSize - 1
		}
		if cy >= gridSize {
			cy = gridSize - 1
		}
		samples[cy*gridSize+cx]++
	}
	return samples
}

// Close shuts down the worker pool.
func (cg *coreGrader) Close() error {
	cg.workerPool.Close()
	return nil
}
