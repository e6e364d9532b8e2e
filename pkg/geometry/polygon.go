package geometry

import "math"

// Rings in this package are open vertex sequences: the closing edge from the
// last vertex back to the first is implied, never stored.

// RingArea returns the unsigned area enclosed by a ring, via the shoelace
// formula.
func RingArea(ring []Point2D) float64 {
	if len(ring) < 3 {
		return 0
	}
	return math.Abs(signedRingArea(ring))
}

func signedRingArea(ring []Point2D) float64 {
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// RingCentroid returns the area-weighted centroid of a ring. Degenerate rings
// (near-zero area) fall back to the vertex average.
func RingCentroid(ring []Point2D) Point2D {
	if len(ring) == 0 {
		return Point2D{}
	}
	area := signedRingArea(ring)
	if math.Abs(area) < 1e-12 {
		var sx, sy float64
		for _, p := range ring {
			sx += p.X
			sy += p.Y
		}
		n := float64(len(ring))
		return Point2D{X: sx / n, Y: sy / n}
	}

	var cx, cy float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
		cx += (ring[i].X + ring[j].X) * cross
		cy += (ring[i].Y + ring[j].Y) * cross
	}
	return Point2D{X: cx / (6 * area), Y: cy / (6 * area)}
}

// PointInPolygon tests if a point is inside a polygon ring using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// SimplifyRing reduces ring vertices using the Visvalingam-Whyatt algorithm:
// vertices are removed in order of the triangle area they span with their
// neighbors, until every remaining vertex spans at least distance^2. A ring is
// never reduced below 3 vertices. distance <= 0 returns the ring unchanged.
func SimplifyRing(ring []Point2D, distance float64) []Point2D {
	if distance <= 0 || len(ring) <= 3 {
		return ring
	}
	areaTolerance := distance * distance

	pts := make([]Point2D, len(ring))
	copy(pts, ring)

	for len(pts) > 3 {
		minArea := math.Inf(1)
		minIdx := -1
		n := len(pts)
		for i := 0; i < n; i++ {
			prev := pts[(i+n-1)%n]
			next := pts[(i+1)%n]
			area := triangleArea(prev, pts[i], next)
			if area < minArea {
				minArea = area
				minIdx = i
			}
		}
		if minArea >= areaTolerance {
			break
		}
		pts = append(pts[:minIdx], pts[minIdx+1:]...)
	}
	return pts
}

func triangleArea(a, b, c Point2D) float64 {
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}
