// Package geomx bridges the simplefeatures geometry engine and the plain
// vertex-ring representation used by the decoding and measurement code.
package geomx

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/rtree"

	"stardetect/pkg/geometry"
)

// PolygonFromRing builds a validated polygon geometry from an open vertex
// ring. The ring is closed automatically. Construction fails for rings with
// fewer than 3 vertices or rings that do not form a valid polygon (e.g.
// self-intersections).
func PolygonFromRing(ring []geometry.Point2D) (geom.Geometry, error) {
	if len(ring) < 3 {
		return geom.Geometry{}, fmt.Errorf("ring has %d vertices, need at least 3", len(ring))
	}
	coords := make([]float64, 0, (len(ring)+1)*2)
	for _, p := range ring {
		coords = append(coords, p.X, p.Y)
	}
	coords = append(coords, ring[0].X, ring[0].Y)

	seq := geom.NewSequence(coords, geom.DimXY)
	shell := geom.NewLineString(seq)
	poly := geom.NewPolygon([]geom.LineString{shell})
	if err := poly.Validate(); err != nil {
		return geom.Geometry{}, fmt.Errorf("invalid polygon: %w", err)
	}
	return poly.AsGeometry(), nil
}

// Ring holds the vertex rings of a single polygon: one shell and zero or more
// holes. Rings are open (no closing duplicate vertex).
type Ring struct {
	Shell []geometry.Point2D
	Holes [][]geometry.Point2D
}

// Polygons extracts the polygonal parts of any geometry. Non-areal parts are
// ignored.
func Polygons(g geom.Geometry) []Ring {
	var out []Ring
	switch g.Type() {
	case geom.TypePolygon:
		out = append(out, ringsOfPolygon(g.MustAsPolygon()))
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			out = append(out, ringsOfPolygon(mp.PolygonN(i)))
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			out = append(out, Polygons(gc.GeometryN(i))...)
		}
	}
	return out
}

func ringsOfPolygon(p geom.Polygon) Ring {
	r := Ring{Shell: lineStringRing(p.ExteriorRing())}
	for i := 0; i < p.NumInteriorRings(); i++ {
		r.Holes = append(r.Holes, lineStringRing(p.InteriorRingN(i)))
	}
	return r
}

func lineStringRing(ls geom.LineString) []geometry.Point2D {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	// Drop the closing duplicate vertex.
	first := seq.GetXY(0)
	last := seq.GetXY(n - 1)
	if n > 1 && first == last {
		n--
	}
	ring := make([]geometry.Point2D, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		ring[i] = geometry.Point2D{X: xy.X, Y: xy.Y}
	}
	return ring
}

// ContainsPoint reports whether (x, y) lies inside the areal parts of g,
// holes excluded. Points exactly on a boundary may land on either side; the
// callers here tolerate that.
func ContainsPoint(g geom.Geometry, x, y float64) bool {
	p := geometry.Point2D{X: x, Y: y}
	for _, ring := range Polygons(g) {
		if !geometry.PointInPolygon(p, ring.Shell) {
			continue
		}
		inHole := false
		for _, hole := range ring.Holes {
			if geometry.PointInPolygon(p, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Box returns the bounding box of g for spatial indexing. ok is false for
// empty geometries.
func Box(g geom.Geometry) (rtree.Box, bool) {
	env := g.Envelope()
	min, max, ok := env.MinMaxXYs()
	if !ok {
		return rtree.Box{}, false
	}
	return rtree.Box{MinX: min.X, MinY: min.Y, MaxX: max.X, MaxY: max.Y}, true
}

// BoxesIntersect reports whether two boxes overlap or touch.
func BoxesIntersect(a, b rtree.Box) bool {
	return a.MinX <= b.MaxX && a.MaxX >= b.MinX &&
		a.MinY <= b.MaxY && a.MaxY >= b.MinY
}

// ExteriorRing returns the shell of g when g is a single polygon.
func ExteriorRing(g geom.Geometry) ([]geometry.Point2D, bool) {
	if g.Type() != geom.TypePolygon {
		return nil, false
	}
	return lineStringRing(g.MustAsPolygon().ExteriorRing()), true
}
