package pipeline

import (
	"fmt"

	apperrors "go-histopath/internal/errors"
	"go-histopath/internal/logger"
)

// Point is a pixel coordinate inside a channel.
type Point struct {
	X int
	Y int
}

// Region is one connected component above the segmentation threshold.
// Regions are transient: they live for a single analysis pass.
type Region struct {
	Pixels        []Point
	Area          int
	CentroidX     float64
	CentroidY     float64
	MinX          int
	MinY          int
	MaxX          int
	MaxY          int
	MeanIntensity float64
	// Truncated marks a region that hit the max-pixel cap during growth.
	// The region is kept; downstream consumers see the flag.
	Truncated bool
}

// DetectorParams configures segmentation. Validated once at construction.
type DetectorParams struct {
	// Threshold is the explicit intensity cutoff; ignored when UseOtsu is set.
	Threshold byte
	// UseOtsu derives the threshold from the channel histogram instead.
	UseOtsu bool
	// MinRegionPixels discards components smaller than this after growth.
	MinRegionPixels int
	// MaxRegionPixels caps a single component's growth. Mandatory: this
	// bounds work on degenerate all-foreground inputs.
	MaxRegionPixels int
	// MaxRegions caps how many kept regions one detection pass may emit.
	MaxRegions int
	// Connectivity is 4 or 8.
	Connectivity int
}

// DefaultDetectorParams returns the segmentation defaults used by the
// standard grading profile.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		UseOtsu:         true,
		MinRegionPixels: 30,
		MaxRegionPixels: 50000,
		MaxRegions:      5000,
		Connectivity:    8,
	}
}

// RegionDetector extracts connected components from a stain channel.
type RegionDetector struct {
	params DetectorParams
}

// NewRegionDetector validates params and builds a detector.
func NewRegionDetector(params DetectorParams) (*RegionDetector, error) {
	if params.MinRegionPixels < 1 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("min region size %d must be >= 1", params.MinRegionPixels), nil)
	}
	if params.MaxRegionPixels < params.MinRegionPixels {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("max region pixels %d below min region size %d",
				params.MaxRegionPixels, params.MinRegionPixels), nil)
	}
	if params.MaxRegions < 1 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("max region count %d must be >= 1", params.MaxRegions), nil)
	}
	if params.Connectivity != 4 && params.Connectivity != 8 {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("connectivity must be 4 or 8 (got %d)", params.Connectivity), nil)
	}
	return &RegionDetector{params: params}, nil
}

var (
	neighbors4 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	neighbors8 = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// Detect segments the channel and returns every kept region. Region
// membership is independent of scan order; discovery order is row-major but
// callers must not rely on it.
func (d *RegionDetector) Detect(ch *ChannelImage) ([]Region, byte) {
	threshold := d.params.Threshold
	if d.params.UseOtsu {
		threshold = OtsuThreshold(ch)
	}

	offsets := neighbors4
	if d.params.Connectivity == 8 {
		offsets = neighbors8
	}

	width, height := ch.Width, ch.Height
	visited := make([]bool, width*height)
	var regions []Region

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if visited[idx] || ch.Pix[idx] <= threshold {
				continue
			}
			region := d.growRegion(ch, visited, x, y, threshold, offsets)
			if region.Area < d.params.MinRegionPixels {
				continue
			}
			regions = append(regions, region)
			if len(regions) >= d.params.MaxRegions {
				logger.WithComponent("region_detector").WithField("max_regions", d.params.MaxRegions).
					Warn("Region count cap reached; remaining components skipped")
				return regions, threshold
			}
		}
	}
	return regions, threshold
}

// growRegion flood-fills one component from a seed pixel using an explicit
// stack. Pixels are marked visited when pushed, so membership tests stay
// O(1) and nothing is pushed twice.
func (d *RegionDetector) growRegion(ch *ChannelImage, visited []bool, seedX, seedY int, threshold byte, offsets [][2]int) Region {
	width, height := ch.Width, ch.Height
	seedIdx := seedY*width + seedX

	stack := make([]int, 0, 64)
	stack = append(stack, seedIdx)
	visited[seedIdx] = true

	region := Region{
		MinX: seedX, MinY: seedY,
		MaxX: seedX, MaxY: seedY,
	}
	var sumX, sumY, sumIntensity int

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%width, idx/width

		region.Pixels = append(region.Pixels, Point{X: x, Y: y})
		sumX += x
		sumY += y
		sumIntensity += int(ch.Pix[idx])
		if x < region.MinX {
			region.MinX = x
		}
		if x > region.MaxX {
			region.MaxX = x
		}
		if y < region.MinY {
			region.MinY = y
		}
		if y > region.MaxY {
			region.MaxY = y
		}

		if len(region.Pixels)+len(stack) >= d.params.MaxRegionPixels {
			// Growth cap: stop pushing neighbors, drain what is queued.
			// The component is kept but flagged, never silently dropped.
			region.Truncated = true
			continue
		}

		for _, off := range offsets {
			nx, ny := x+off[0], y+off[1]
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			nIdx := ny*width + nx
			if visited[nIdx] || ch.Pix[nIdx] <= threshold {
				continue
			}
			visited[nIdx] = true
			stack = append(stack, nIdx)
		}
	}

	region.Area = len(region.Pixels)
	if region.Area > 0 {
		region.CentroidX = float64(sumX) / float64(region.Area)
		region.CentroidY = float64(sumY) / float64(region.Area)
		region.MeanIntensity = float64(sumIntensity) / float64(region.Area)
	}
	return region
}
