// Package cells estimates cell boundaries from detected nuclei and resolves
// overlaps between neighboring cells.
package cells

import (
	"fmt"
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/rtree"
	"github.com/rs/zerolog"

	"stardetect/internal/geomx"
	"stardetect/pkg/geometry"
)

// Cell pairs an estimated cell boundary with its nucleus. Rank orders cells
// for overlap resolution; higher ranks win disputed territory.
type Cell struct {
	Boundary geom.Geometry
	Nucleus  geom.Geometry
	Rank     float64
}

// EstimateBoundary grows a nucleus polygon outward to approximate the cell
// boundary. Each vertex moves away from the centroid by distance; when
// constrainScale > 1, a vertex never moves beyond constrainScale times its
// original centroid distance. The result always contains the nucleus.
func EstimateBoundary(nucleus geom.Geometry, distance, constrainScale float64) (geom.Geometry, error) {
	ring, ok := geomx.ExteriorRing(nucleus)
	if !ok {
		return geom.Geometry{}, fmt.Errorf("cannot expand non-polygonal nucleus (%s)", nucleus.Type())
	}
	if distance <= 0 {
		return nucleus, nil
	}

	centroid := geometry.RingCentroid(ring)
	expanded := make([]geometry.Point2D, 0, len(ring))
	for _, v := range ring {
		d := v.Sub(centroid)
		length := centroid.Distance(v)
		if length <= 0 {
			continue
		}
		newLength := length + distance
		if constrainScale > 1 && newLength > length*constrainScale {
			newLength = length * constrainScale
		}
		expanded = append(expanded, centroid.Add(d.Scale(newLength/length)))
	}

	cell, err := geomx.PolygonFromRing(expanded)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("expanded boundary: %w", err)
	}

	// Radial expansion of a star-convex ring contains the nucleus already;
	// the union guards against precision slivers at the boundary.
	if u, err := geom.Union(cell, nucleus); err == nil {
		return u, nil
	}
	return cell, nil
}

// ConstrainOverlaps resolves overlaps between cell boundaries. Cells are
// visited in descending rank order; each cell keeps the part of its boundary
// not already claimed by a higher-ranked neighbor, and always retains at
// least its own nucleus. The walk is sequential; only geometry shrinks, so
// the spatial index built up front stays valid.
func ConstrainOverlaps(cellsIn []Cell, logger zerolog.Logger) []Cell {
	out := make([]Cell, len(cellsIn))
	copy(out, cellsIn)

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return out[order[a]].Rank > out[order[b]].Rank
	})

	boxes := make([]rtree.Box, len(out))
	for i := range out {
		boxes[i], _ = geomx.Box(out[i].Boundary)
	}
	indexItems := make([]rtree.BulkItem, len(boxes))
	for i, b := range boxes {
		indexItems[i] = rtree.BulkItem{Box: b, RecordID: i}
	}
	tree := rtree.BulkLoad(indexItems)

	done := make([]bool, len(out))
	errCount := 0
	for _, i := range order {
		g := out[i].Boundary
		tree.RangeSearch(boxes[i], func(j int) error {
			if j == i || !done[j] {
				return nil
			}
			if !geom.Intersects(g, out[j].Boundary) {
				return nil
			}
			diff, err := geom.Difference(g, out[j].Boundary)
			if err != nil {
				errCount++
				return nil
			}
			g = diff
			return nil
		})

		if g.IsEmpty() {
			g = out[i].Nucleus
		} else if u, err := geom.Union(g, out[i].Nucleus); err == nil {
			g = u
		}
		out[i].Boundary = g
		done[i] = true
	}

	if errCount > 0 {
		logger.Warn().Int("errors", errCount).Msg("geometry errors while constraining cell overlaps")
	}
	return out
}
