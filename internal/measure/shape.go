package measure

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"

	"stardetect/internal/geomx"
	"stardetect/pkg/geometry"
)

// Shape computes shape measurements for a region: area, perimeter,
// circularity, solidity and maximum diameter. Names are prefixed with the
// compartment (e.g. "Nucleus: Area") when prefix is non-empty.
func Shape(g geom.Geometry, prefix string) []Measurement {
	area := g.Area()
	perimeter := perimeterOf(g)

	circularity := 0.0
	if perimeter > 0 {
		circularity = 4 * math.Pi * area / (perimeter * perimeter)
	}

	hull := g.ConvexHull()
	solidity := 0.0
	if hullArea := hull.Area(); hullArea > 0 {
		solidity = area / hullArea
	}

	return []Measurement{
		{Name: prefixed(prefix, "Area"), Value: area},
		{Name: prefixed(prefix, "Perimeter"), Value: perimeter},
		{Name: prefixed(prefix, "Circularity"), Value: circularity},
		{Name: prefixed(prefix, "Solidity"), Value: solidity},
		{Name: prefixed(prefix, "Max diameter"), Value: maxDiameter(hull)},
	}
}

func perimeterOf(g geom.Geometry) float64 {
	var total float64
	for _, poly := range geomx.Polygons(g) {
		total += ringLength(poly.Shell)
		for _, hole := range poly.Holes {
			total += ringLength(hole)
		}
	}
	return total
}

func ringLength(ring []geometry.Point2D) float64 {
	n := len(ring)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += ring[i].Distance(ring[(i+1)%n])
	}
	return sum
}

// maxDiameter is the largest pairwise distance between convex hull vertices.
func maxDiameter(hull geom.Geometry) float64 {
	var pts []geometry.Point2D
	for _, poly := range geomx.Polygons(hull) {
		pts = append(pts, poly.Shell...)
	}
	var best float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if d := pts[i].Distance(pts[j]); d > best {
				best = d
			}
		}
	}
	return best
}
