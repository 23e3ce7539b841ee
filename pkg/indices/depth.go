package indices

import (
	"github.com/chewxy/math32"

	"github.com/chazu/cityview/pkg/render"
)

// Linearize converts a window depth in [0, 1] to eye distance for a
// perspective projection with the given planes.
func Linearize(d, near, far float64) float64 {
	return near * far / (far - d*(far-near))
}

// WindowDepth is the inverse of Linearize.
func WindowDepth(z, near, far float64) float64 {
	return far * (z - near) / ((far - near) * z)
}

// DepthStats are the linearized extremes and mean of a depth buffer.
type DepthStats struct {
	Min, Max, Avg float64
}

func depthStats(f *render.Frame, near, far float64) DepthStats {
	if len(f.Depth) == 0 {
		return DepthStats{}
	}
	lo, hi := math32.Inf(1), math32.Inf(-1)
	var sum float64
	for _, d := range f.Depth {
		lo = math32.Min(lo, d)
		hi = math32.Max(hi, d)
		sum += float64(d)
	}
	avg := sum / float64(len(f.Depth))
	return DepthStats{
		Min: Linearize(float64(lo), near, far),
		Max: Linearize(float64(hi), near, far),
		Avg: Linearize(avg, near, far),
	}
}

func classify(f *render.Frame) [NumClasses]uint64 {
	var counts [NumClasses]uint64
	for i := 0; i+3 < len(f.Color); i += 4 {
		counts[ClassifyPixel(f.Color[i], f.Color[i+1], f.Color[i+2])]++
	}
	return counts
}
