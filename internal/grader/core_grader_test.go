package grader

import (
	"sync"
	"testing"

	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/pipeline"
)

// createSyntheticSlide paints dark nucleus-like blobs over a white
// background: white tissue carries no optical density, the blobs project
// strongly onto the hematoxylin channel.
func createSyntheticSlide(width, height, blobSize int, origins [][2]int) *pipeline.PixelBuffer {
	buf := &pipeline.PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
	for i := 0; i < width*height; i++ {
		buf.Pix[i*4] = 255
		buf.Pix[i*4+1] = 255
		buf.Pix[i*4+2] = 255
		buf.Pix[i*4+3] = 255
	}
	for _, o := range origins {
		for y := o[1]; y < o[1]+blobSize; y++ {
			for x := o[0]; x < o[0]+blobSize; x++ {
				i := (y*width + x) * 4
				buf.Pix[i] = 60
				buf.Pix[i+1] = 30
				buf.Pix[i+2] = 90
			}
		}
	}
	return buf
}

func testBlobOrigins() [][2]int {
	var origins [][2]int
	for _, y := range []int{8, 48, 88} {
		for _, x := range []int{8, 40, 72, 104} {
			origins = append(origins, [2]int{x, y})
		}
	}
	return origins
}

func TestNewSlideGrader_InvalidOptions(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(opts GradingOptions) GradingOptions
	}{
		{"Nil Stain Matrix", func(o GradingOptions) GradingOptions {
			o.StainMatrix = nil
			return o
		}},
		{"Channel Out Of Range", func(o GradingOptions) GradingOptions {
			o.SegmentationChannel = 5
			return o
		}},
		{"Negative Channel", func(o GradingOptions) GradingOptions {
			o.SegmentationChannel = -1
			return o
		}},
		{"Bad Denoise Radius", func(o GradingOptions) GradingOptions {
			o.DenoiseRadius = 20
			return o
		}},
		{"Bad Weights", func(o GradingOptions) GradingOptions {
			o.Weights = map[string]float64{"nuclear_morphometry": 0.5}
			return o
		}},
		{"Unknown Weight Key", func(o GradingOptions) GradingOptions {
			o.Weights = map[string]float64{"foo": 1.0}
			return o
		}},
		{"Extra Weight Key", func(o GradingOptions) GradingOptions {
			w := DefaultWeights()
			w["nuclear_morphometry"] -= 0.1
			w["made_up_algorithm"] = 0.1
			o.Weights = w
			return o
		}},
		{"Empty Grade Bands", func(o GradingOptions) GradingOptions {
			o.GradeBands = nil
			return o
		}},
		{"Bad Density Grid", func(o GradingOptions) GradingOptions {
			o.DensityGridSize = 0
			return o
		}},
		{"Negative Min Samples", func(o GradingOptions) GradingOptions {
			o.MinScorerSamples = -1
			return o
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSlideGrader(tc.mutate(DefaultOptions()))
			if err == nil {
				t.Fatal("Expected configuration error, got nil")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeConfiguration) {
				t.Errorf("Expected configuration error type, got %v", err)
			}
		})
	}
}

func TestGrade_SyntheticSlide(t *testing.T) {
	opts := DefaultOptions().WithThreshold(120)
	opts.MinScorerSamples = 10

	g, err := NewSlideGrader(opts)
	if err != nil {
		t.Fatalf("Failed to create grader: %v", err)
	}
	defer g.Close()

	buf := createSyntheticSlide(128, 128, 10, testBlobOrigins())

	result, err := g.Grade(buf)
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}

	if result.RegionCount != 12 {
		t.Errorf("Expected 12 detected nuclei, got %d", result.RegionCount)
	}
	if len(result.Regions) != result.RegionCount {
		t.Errorf("Expected %d regions in result, got %d", result.RegionCount, len(result.Regions))
	}
	if len(result.Nuclei) != result.RegionCount {
		t.Errorf("Expected %d nuclei measurements, got %d", result.RegionCount, len(result.Nuclei))
	}
	for i, r := range result.Regions {
		// The median filter may shave blob corners but the body survives.
		if r.Area < 80 || r.Area > 100 {
			t.Errorf("Region %d: unexpected area %d", i, r.Area)
		}
		if r.Truncated {
			t.Errorf("Region %d: unexpected truncation", i)
		}
	}
	if result.Truncated {
		t.Error("Expected no truncation on a small slide")
	}
	if result.Threshold != 120 {
		t.Errorf("Expected explicit threshold 120, got %d", result.Threshold)
	}

	agg := result.Aggregate
	if agg.OverallScore < 0 || agg.OverallScore > 1 {
		t.Errorf("Overall score out of range: %f", agg.OverallScore)
	}
	if agg.OverallConfidence <= 0 || agg.OverallConfidence >= 1 {
		t.Errorf("Overall confidence out of range: %f", agg.OverallConfidence)
	}
	if agg.Grade == "" {
		t.Error("Expected a grade label")
	}
	if len(agg.Results) != 5 {
		t.Errorf("Expected 5 algorithm results, got %d", len(agg.Results))
	}
	for _, r := range agg.Results {
		if r.Interpretation == "" {
			t.Errorf("Algorithm %q: expected an interpretation", r.Name)
		}
	}

	if len(result.StainNames) != 3 || result.StainNames[0] != "hematoxylin" {
		t.Errorf("Unexpected stain names: %v", result.StainNames)
	}
	if result.ProcessingTimeSec < 0 {
		t.Errorf("Expected non-negative processing time, got %f", result.ProcessingTimeSec)
	}
}

func TestGrade_EmptySlide(t *testing.T) {
	opts := DefaultOptions().WithThreshold(120)

	g, err := NewSlideGrader(opts)
	if err != nil {
		t.Fatalf("Failed to create grader: %v", err)
	}
	defer g.Close()

	// No tissue: every scorer falls back, grading still succeeds.
	buf := createSyntheticSlide(64, 64, 0, nil)

	result, err := g.Grade(buf)
	if err != nil {
		t.Fatalf("Expected fail-soft grading of an empty slide, got %v", err)
	}
	if result.RegionCount != 0 {
		t.Errorf("Expected 0 regions, got %d", result.RegionCount)
	}
	for _, r := range result.Aggregate.Results {
		if !r.InsufficientSamples {
			t.Errorf("Algorithm %q: expected insufficient-samples fallback", r.Name)
		}
	}
	if result.Aggregate.Grade == "" {
		t.Error("Expected a grade even for an empty slide")
	}
}

func TestGrade_InvalidBuffer(t *testing.T) {
	g, err := NewSlideGrader(DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create grader: %v", err)
	}
	defer g.Close()

	bad := &pipeline.PixelBuffer{Width: 10, Height: 10, Pix: make([]byte, 7)}
	if _, err := g.Grade(bad); err == nil {
		t.Fatal("Expected invalid input error, got nil")
	} else if !apperrors.IsType(err, apperrors.ErrorTypeInvalidInput) {
		t.Errorf("Expected invalid input error type, got %v", err)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	opts := DefaultOptions().WithThreshold(120)
	opts.MinScorerSamples = 10

	g, err := NewSlideGrader(opts)
	if err != nil {
		t.Fatalf("Failed to create grader: %v", err)
	}
	defer g.Close()

	buf := createSyntheticSlide(128, 128, 10, testBlobOrigins())

	first, err := g.Grade(buf)
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}
	second, err := g.Grade(buf)
	if err != nil {
		t.Fatalf("Grade failed: %v", err)
	}

	if first.Aggregate.OverallScore != second.Aggregate.OverallScore {
		t.Errorf("Expected deterministic score, got %f vs %f",
			first.Aggregate.OverallScore, second.Aggregate.OverallScore)
	}
	if first.Aggregate.Grade != second.Aggregate.Grade {
		t.Errorf("Expected deterministic grade, got %q vs %q",
			first.Aggregate.Grade, second.Aggregate.Grade)
	}
	if first.RegionCount != second.RegionCount {
		t.Errorf("Expected deterministic region count, got %d vs %d",
			first.RegionCount, second.RegionCount)
	}
}

func TestGrade_ConcurrentRequests(t *testing.T) {
	// One grader instance serves many requests at once, as the service's
	// cached graders do.
	opts := DefaultOptions().WithThreshold(120)
	opts.MinScorerSamples = 10

	g, err := NewSlideGrader(opts)
	if err != nil {
		t.Fatalf("Failed to create grader: %v", err)
	}
	defer g.Close()

	buf := createSyntheticSlide(128, 128, 10, testBlobOrigins())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := g.Grade(buf)
			if err != nil {
				t.Errorf("Concurrent grade failed: %v", err)
				return
			}
			if result.RegionCount != 12 {
				t.Errorf("Expected 12 regions, got %d", result.RegionCount)
			}
		}()
	}
	wg.Wait()
}

func TestDensityGrid(t *testing.T) {
	regions := []pipeline.Region{
		{CentroidX: 5, CentroidY: 5},
		{CentroidX: 6, CentroidY: 4},
		{CentroidX: 95, CentroidY: 95},
	}

	samples := densityGrid(regions, 100, 100, 2)
	if len(samples) != 4 {
		t.Fatalf("Expected 4 grid cells, got %d", len(samples))
	}
	if samples[0] != 2 {
		t.Errorf("Expected 2 centroids in the top-left cell, got %f", samples[0])
	}
	if samples[3] != 1 {
		t.Errorf("Expected 1 centroid in the bottom-right cell, got %f", samples[3])
	}
	if samples[1] != 0 || samples[2] != 0 {
		t.Errorf("Expected empty cells, got %f and %f", samples[1], samples[2])
	}
}

func TestDensityGrid_CentroidOnFarEdge(t *testing.T) {
	// A centroid at the exact image edge clamps into the last cell.
	regions := []pipeline.Region{{CentroidX: 100, CentroidY: 100}}
	samples := densityGrid(regions, 100, 100, 4)
	if samples[len(samples)-1] != 1 {
		t.Errorf("Expected edge centroid in the last cell, got %v", samples)
	}
}
