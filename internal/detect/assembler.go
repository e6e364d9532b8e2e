package detect

import (
	"context"
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
	"golang.org/x/sync/errgroup"

	"stardetect/internal/cells"
	"stardetect/internal/geomx"
	"stardetect/internal/measure"
	"stardetect/pkg/geometry"
)

// simplifyGeometry reduces the vertex count of a single-polygon geometry.
// Anything that cannot be simplified safely is returned unchanged.
func simplifyGeometry(g geom.Geometry, distance float64) geom.Geometry {
	if distance <= 0 {
		return g
	}
	ring, ok := geomx.ExteriorRing(g)
	if !ok {
		return g
	}
	simplified := geometry.SimplifyRing(ring, distance)
	if len(simplified) == len(ring) {
		return g
	}
	out, err := geomx.PolygonFromRing(simplified)
	if err != nil {
		return g
	}
	return out
}

// attemptIntersection clips g to the mask, keeping g unchanged when the
// operation fails or produces nothing areal.
func attemptIntersection(g, mask geom.Geometry) geom.Geometry {
	clipped, err := geom.Intersection(g, mask)
	if err != nil || clipped.IsEmpty() {
		return g
	}
	return clipped
}

// assemble converts resolved nuclei into finalized objects. Cell expansion,
// when enabled, turns each nucleus into a composite object with an estimated
// cell boundary. Conversion runs in parallel; a nucleus whose conversion
// fails is dropped with a warning rather than failing the run.
func (d *Detector) assemble(ctx context.Context, nuclei []*potentialNucleus, mask geom.Geometry) ([]Object, error) {
	results := make([]*Object, len(nuclei))

	grp, ctx := errgroup.WithContext(ctx)
	if d.cfg.Workers > 0 {
		grp.SetLimit(d.cfg.Workers)
	}
	for i, n := range nuclei {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			obj, err := d.convertToObject(n, mask)
			if err != nil {
				d.log.Warn().Err(err).Msg("dropping detection that failed object conversion")
				return nil
			}
			results[i] = obj
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	out := make([]Object, 0, len(nuclei))
	for _, obj := range results {
		if obj != nil {
			out = append(out, *obj)
		}
	}
	return out, nil
}

// convertToObject builds one finalized object from a resolved nucleus. The
// nucleus geometry is simplified again here: overlap resolution may have
// replaced it with a raw difference result carrying extra vertices.
func (d *Detector) convertToObject(n *potentialNucleus, mask geom.Geometry) (*Object, error) {
	nucleusGeom := simplifyGeometry(n.geometry, d.cfg.SimplifyDistance)
	constrain := d.cfg.ConstrainToParent && !mask.IsEmpty()

	obj := &Object{Probability: n.probability}
	if class := d.cfg.resolveClass(n.classification); class != "" {
		obj.Class = class
	}
	if d.cfg.IncludeProbability {
		obj.Measurements = append(obj.Measurements, measure.Measurement{
			Name:  "Detection probability",
			Value: n.probability,
		})
	}

	if d.cfg.CellExpansion > 0 {
		boundary, err := cells.EstimateBoundary(nucleusGeom, d.cfg.CellExpansion, d.cfg.CellConstrainScale)
		if err != nil {
			return nil, fmt.Errorf("estimating cell boundary: %w", err)
		}
		if constrain {
			boundary = attemptIntersection(boundary, mask)
		}
		boundary = simplifyGeometry(boundary, d.cfg.SimplifyDistance)
		if boundary.IsEmpty() {
			return nil, fmt.Errorf("cell boundary vanished during clipping")
		}
		obj.Geometry = boundary
		obj.Nucleus = &nucleusGeom
		return obj, nil
	}

	if constrain {
		nucleusGeom = attemptIntersection(nucleusGeom, mask)
		if nucleusGeom.IsEmpty() {
			return nil, fmt.Errorf("nucleus vanished during clipping")
		}
	}
	obj.Geometry = nucleusGeom
	return obj, nil
}
