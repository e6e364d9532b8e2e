package detect

import (
	"sort"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/peterstace/simplefeatures/rtree"
	"github.com/rs/zerolog"

	"stardetect/internal/geomx"
)

// resolveOverlaps removes overlaps between candidate nuclei. Candidates are
// visited in descending probability order (ties keep input order). A kept
// candidate subtracts itself from every overlapping unvisited neighbor; the
// neighbor survives only when the difference is still a single polygon
// covering more than half the neighbor's original area, otherwise it is
// discarded.
//
// The walk is sequential. The spatial index and cached envelopes are built
// once up front; geometry only shrinks afterwards, so a stale envelope can
// only cause a spurious candidate pair, never a missed one.
func resolveOverlaps(nuclei []*potentialNucleus, logger zerolog.Logger) []*potentialNucleus {
	if len(nuclei) <= 1 {
		return nuclei
	}

	ordered := make([]*potentialNucleus, len(nuclei))
	copy(ordered, nuclei)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].probability > ordered[b].probability
	})

	boxes := make([]rtree.Box, len(ordered))
	for i, n := range ordered {
		boxes[i], _ = geomx.Box(n.geometry)
	}
	indexItems := make([]rtree.BulkItem, len(boxes))
	for i, b := range boxes {
		indexItems[i] = rtree.BulkItem{Box: b, RecordID: i}
	}
	tree := rtree.BulkLoad(indexItems)

	kept := make([]bool, len(ordered))
	skipped := make([]bool, len(ordered))
	skipCount := 0
	skipErrCount := 0

	for i, n := range ordered {
		if skipped[i] {
			continue
		}
		kept[i] = true

		tree.RangeSearch(boxes[i], func(j int) error {
			if j == i || kept[j] || skipped[j] {
				return nil
			}
			if !geomx.BoxesIntersect(boxes[i], boxes[j]) {
				return nil
			}
			neighbor := ordered[j]
			if !geom.Intersects(n.geometry, neighbor.geometry) {
				return nil
			}
			diff, err := geom.Difference(neighbor.geometry, n.geometry)
			if err != nil {
				skipped[j] = true
				skipCount++
				skipErrCount++
				return nil
			}
			if diff.Type() == geom.TypePolygon && diff.Area() > neighbor.fullArea/2 {
				neighbor.geometry = diff
				return nil
			}
			skipped[j] = true
			skipCount++
			return nil
		})
	}

	out := ordered[:0]
	for i, n := range ordered {
		if kept[i] {
			out = append(out, n)
		}
	}

	if skipErrCount > 0 {
		logger.Warn().
			Int("errors", skipErrCount).
			Float64("percent", float64(skipErrCount)*100/float64(skipCount)).
			Msg("geometry errors while resolving nucleus overlaps")
	}
	return out
}
