package measure

import (
	"image"
	"math"
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/stat"

	"stardetect/internal/geomx"
)

// Intensity computes the requested statistics over the luminance of pixels
// whose centers fall inside g. img holds the pixels of the rectangle origin
// describes, in full image coordinates. Returns nil when the region covers no
// pixels.
func Intensity(img image.Image, origin image.Rectangle, g geom.Geometry, stats []Stat, prefix string) []Measurement {
	box, ok := geomx.Box(g)
	if !ok || len(stats) == 0 {
		return nil
	}

	x0 := int(math.Floor(box.MinX))
	y0 := int(math.Floor(box.MinY))
	x1 := int(math.Ceil(box.MaxX))
	y1 := int(math.Ceil(box.MaxY))
	if x0 < origin.Min.X {
		x0 = origin.Min.X
	}
	if y0 < origin.Min.Y {
		y0 = origin.Min.Y
	}
	if x1 > origin.Max.X {
		x1 = origin.Max.X
	}
	if y1 > origin.Max.Y {
		y1 = origin.Max.Y
	}

	var values []float64
	imgBounds := img.Bounds()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if !geomx.ContainsPoint(g, float64(x)+0.5, float64(y)+0.5) {
				continue
			}
			px := imgBounds.Min.X + (x - origin.Min.X)
			py := imgBounds.Min.Y + (y - origin.Min.Y)
			r, gr, b, _ := img.At(px, py).RGBA()
			lum := (19595*r + 38470*gr + 7471*b + 1<<15) >> 24
			values = append(values, float64(lum))
		}
	}
	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)
	out := make([]Measurement, 0, len(stats))
	for _, s := range stats {
		out = append(out, Measurement{
			Name:  prefixed(prefix, s.String()),
			Value: computeStat(s, values),
		})
	}
	return out
}

// computeStat evaluates one statistic over sorted values.
func computeStat(s Stat, sorted []float64) float64 {
	switch s {
	case StatMean:
		return stat.Mean(sorted, nil)
	case StatMedian:
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	case StatMin:
		return sorted[0]
	case StatMax:
		return sorted[len(sorted)-1]
	case StatStdDev:
		if len(sorted) < 2 {
			return 0
		}
		return stat.StdDev(sorted, nil)
	default:
		return math.NaN()
	}
}
