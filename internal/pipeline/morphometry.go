package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Texture score weighting. Contrast (stddev scaled against a 64-intensity
// reference span) and heterogeneity (1 - homogeneity) combine linearly.
const (
	textureContrastWeight      = 0.6
	textureHeterogeneityWeight = 0.4
	textureContrastScale       = 64.0
)

// Morphometry bundles the shape measurements for one region.
type Morphometry struct {
	Perimeter       int
	Hull            []Point
	HullArea        float64
	ShapeComplexity float64
}

// TextureStats summarizes a scalar sample set (intensities, local densities).
type TextureStats struct {
	Mean        float64
	Variance    float64
	StdDev      float64
	Homogeneity float64
	Score       float64
}

// AnalyzeRegion computes perimeter, convex hull and shape complexity for a
// region. Pure: identical input yields identical output.
func AnalyzeRegion(region *Region) Morphometry {
	m := Morphometry{
		Perimeter: RegionPerimeter(region),
		Hull:      ConvexHull(region.Pixels),
	}
	m.HullArea = polygonArea(m.Hull)
	m.ShapeComplexity = shapeComplexity(float64(region.Area), m.HullArea)
	return m
}

// edgeKey identifies one unit pixel edge. Horizontal edges sit above the
// pixel at (x, y); vertical edges sit to its left.
type edgeKey struct {
	x, y       int
	horizontal bool
}

// RegionPerimeter counts the boundary edges of a region. Every member pixel
// contributes its 4 edges; an edge shared between two members appears twice
// and cancels out of the set, so only boundary edges remain.
func RegionPerimeter(region *Region) int {
	edges := make(map[edgeKey]bool, len(region.Pixels)*2)
	toggle := func(k edgeKey) {
		if edges[k] {
			delete(edges, k)
		} else {
			edges[k] = true
		}
	}
	for _, p := range region.Pixels {
		toggle(edgeKey{p.X, p.Y, true})      // top
		toggle(edgeKey{p.X, p.Y + 1, true})  // bottom
		toggle(edgeKey{p.X, p.Y, false})     // left
		toggle(edgeKey{p.X + 1, p.Y, false}) // right
	}
	return len(edges)
}

// ConvexHull builds the convex hull of a point set with the monotone-chain
// construction. Fewer than 3 distinct points yield an empty hull.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	// Deduplicate; region pixel lists are already unique but the hull is
	// also used on arbitrary point sets.
	distinct := sorted[:1]
	for _, p := range sorted[1:] {
		if p != distinct[len(distinct)-1] {
			distinct = append(distinct, p)
		}
	}
	if len(distinct) < 3 {
		return nil
	}

	var lower []Point
	for _, p := range distinct {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []Point
	for i := len(distinct) - 1; i >= 0; i-- {
		p := distinct[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// Concatenate chains, dropping each chain's duplicated endpoint.
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return hull
}

// cross is the z-component of (b-a) x (c-a); positive for a left turn.
func cross(a, b, c Point) int {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// polygonArea applies the shoelace formula to an ordered vertex list.
func polygonArea(vertices []Point) float64 {
	if len(vertices) < 3 {
		return 0
	}
	sum := 0
	for i, v := range vertices {
		next := vertices[(i+1)%len(vertices)]
		sum += v.X*next.Y - next.X*v.Y
	}
	return math.Abs(float64(sum)) / 2.0
}

// shapeComplexity is 1 - area/hullArea clamped to [0, 1]: zero for a filled
// convex shape, approaching one for highly concave shapes. Hull vertices sit
// on pixel centers, so the hull area understates the pixel extent by up to
// O(perimeter); the ratio is clamped rather than left to drift negative.
func shapeComplexity(area, hullArea float64) float64 {
	if hullArea <= 0 {
		return 0
	}
	c := 1.0 - area/hullArea
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ComputeTextureStats derives the moment statistics of a sample list and the
// combined texture score. Homogeneity is 1/(1+variance); the score weights a
// scaled contrast term against heterogeneity (weights documented above).
func ComputeTextureStats(samples []float64) TextureStats {
	if len(samples) == 0 {
		return TextureStats{Homogeneity: 1}
	}
	mean, variance := stat.MeanVariance(samples, nil)
	if len(samples) == 1 {
		variance = 0
	}
	stdDev := math.Sqrt(variance)
	homogeneity := 1.0 / (1.0 + variance)

	contrast := stdDev / textureContrastScale
	if contrast > 1 {
		contrast = 1
	}
	score := textureContrastWeight*contrast + textureHeterogeneityWeight*(1.0-homogeneity)
	if score > 1 {
		score = 1
	}
	return TextureStats{
		Mean:        mean,
		Variance:    variance,
		StdDev:      stdDev,
		Homogeneity: homogeneity,
		Score:       score,
	}
}
