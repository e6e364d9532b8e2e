// Package detect implements star-convex nucleus detection: decoding model
// prediction maps into candidate polygons, resolving overlaps, tiling large
// regions, and assembling measured detection objects.
package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stardetect/internal/cells"
	imgsrc "stardetect/internal/image"
	"stardetect/internal/measure"
	"stardetect/internal/predict"
	"stardetect/internal/regions"
)

// Detector runs star-convex detection over an image source. Detectors are
// immutable once built and safe for concurrent use, bounded by the inference
// backend's own serialization.
type Detector struct {
	cfg         Config
	backend     predict.Backend
	ownsBackend bool
	log         zerolog.Logger
}

// Config returns a copy of the detector's configuration.
func (d *Detector) Config() Config { return d.cfg }

// Close releases the inference backend if the detector loaded it itself.
// Detectors sharing a backend or a model cache leave it open.
func (d *Detector) Close() error {
	if d.ownsBackend {
		return d.backend.Close()
	}
	return nil
}

// DetectAll runs detection over the entire image at the configured
// downsample, with no mask.
func (d *Detector) DetectAll(ctx context.Context, src imgsrc.Source) ([]Object, error) {
	b := src.Bounds()
	roi := regions.NewRequest(b.Min.X, b.Min.Y, b.Dx(), b.Dy(), d.cfg.Downsample)
	return d.Detect(ctx, src, roi, geom.Geometry{})
}

// Detect runs detection over one region of interest. mask, when non-empty,
// restricts detections to candidates whose nucleus centroid lies inside it
// and (unless disabled) clips the final geometries to it. Tiles are processed
// in parallel; a tile that fails to read or infer contributes no detections
// but does not fail the run.
func (d *Detector) Detect(ctx context.Context, src imgsrc.Source, roi regions.RegionRequest, mask geom.Geometry) ([]Object, error) {
	if roi.Width <= 0 || roi.Height <= 0 {
		return nil, fmt.Errorf("empty region of interest %s", roi)
	}

	tiles := regions.Tile(roi, d.cfg.TileWidth, d.cfg.TileHeight, d.cfg.Padding)
	multiTile := len(tiles) > 1
	d.log.Debug().Int("tiles", len(tiles)).Stringer("roi", roi).Msg("starting detection")

	perTile := make([][]*potentialNucleus, len(tiles))
	grp, gctx := errgroup.WithContext(ctx)
	if d.cfg.Workers > 0 {
		grp.SetLimit(d.cfg.Workers)
	}
	for i, tile := range tiles {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perTile[i] = d.detectTile(gctx, src, tile, mask, multiTile)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var nuclei []*potentialNucleus
	for _, tn := range perTile {
		nuclei = append(nuclei, tn...)
	}
	if multiTile {
		nuclei = resolveOverlaps(nuclei, d.log)
	}
	d.log.Debug().Int("nuclei", len(nuclei)).Msg("overlap resolution complete")

	objects, err := d.assemble(ctx, nuclei, mask)
	if err != nil {
		return nil, err
	}

	if d.cfg.CellExpansion > 0 && !d.cfg.IgnoreCellOverlaps {
		objects = d.constrainCells(objects)
	}

	if err := d.measureObjects(ctx, src, objects); err != nil {
		return nil, err
	}

	d.log.Info().Int("objects", len(objects)).Stringer("roi", roi).Msg("detection complete")
	return objects, nil
}

// detectTile reads, preprocesses, and infers one tile, returning its decoded
// and per-tile-resolved candidates. Failures are logged and yield no
// candidates.
func (d *Detector) detectTile(ctx context.Context, src imgsrc.Source, tile regions.RegionRequest, mask geom.Geometry, multiTile bool) []*potentialNucleus {
	img, err := src.ReadRegion(tile)
	if err != nil {
		d.log.Warn().Err(err).Stringer("tile", tile).Msg("failed to read tile")
		return nil
	}
	img = predict.ApplyOps(img, d.cfg.PreprocessOps)

	t, err := predict.TileFromImage(img, d.cfg.Channels)
	if err != nil {
		d.log.Warn().Err(err).Stringer("tile", tile).Msg("failed to convert tile")
		return nil
	}
	if d.cfg.Normalize {
		predict.NormalizePercentiles(t, d.cfg.NormalizeLow, d.cfg.NormalizeHigh)
	}

	m, err := d.backend.Infer(ctx, t)
	if err != nil {
		d.log.Warn().Err(err).Stringer("tile", tile).Msg("inference failed for tile")
		return nil
	}

	nuclei := decodeTile(m, tile, mask, &d.cfg, d.log)
	if multiTile {
		nuclei = dropBoundaryCandidates(nuclei, tile)
	}
	return resolveOverlaps(nuclei, d.log)
}

// dropBoundaryCandidates removes candidates whose envelope reaches the right
// or bottom edge of the tile. Such candidates are truncated by the tile
// boundary; the neighboring tile's padding sees them whole.
func dropBoundaryCandidates(nuclei []*potentialNucleus, tile regions.RegionRequest) []*potentialNucleus {
	maxX := float64(tile.MaxX())
	maxY := float64(tile.MaxY())
	out := nuclei[:0]
	for _, n := range nuclei {
		env := n.geometry.Envelope()
		_, max, ok := env.MinMaxXYs()
		if !ok {
			continue
		}
		if max.X >= maxX || max.Y >= maxY {
			continue
		}
		out = append(out, n)
	}
	return out
}

// constrainCells resolves overlaps between expanded cell boundaries, ranked
// by detection probability.
func (d *Detector) constrainCells(objects []Object) []Object {
	cs := make([]cells.Cell, 0, len(objects))
	idx := make([]int, 0, len(objects))
	for i := range objects {
		if objects[i].Nucleus == nil {
			continue
		}
		cs = append(cs, cells.Cell{
			Boundary: objects[i].Geometry,
			Nucleus:  *objects[i].Nucleus,
			Rank:     objects[i].Probability,
		})
		idx = append(idx, i)
	}
	if len(cs) == 0 {
		return objects
	}
	for j, c := range cells.ConstrainOverlaps(cs, d.log) {
		objects[idx[j]].Geometry = c.Boundary
	}
	return objects
}

// measureObjects attaches the configured shape and intensity measurements,
// in parallel across objects. Intensity pixels are read from src at full
// resolution.
func (d *Detector) measureObjects(ctx context.Context, src imgsrc.Source, objects []Object) error {
	if !d.cfg.MeasureShape && len(d.cfg.IntensityStats) == 0 {
		return nil
	}

	grp, gctx := errgroup.WithContext(ctx)
	if d.cfg.Workers > 0 {
		grp.SetLimit(d.cfg.Workers)
	}
	for i := range objects {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d.measureObject(src, &objects[i])
			return nil
		})
	}
	return grp.Wait()
}

func (d *Detector) measureObject(src imgsrc.Source, obj *Object) {
	composite := obj.Nucleus != nil

	if d.cfg.MeasureShape {
		if composite {
			obj.Measurements = append(obj.Measurements, measure.Shape(obj.Geometry, "Cell")...)
			obj.Measurements = append(obj.Measurements, measure.Shape(*obj.Nucleus, "Nucleus")...)
		} else {
			obj.Measurements = append(obj.Measurements, measure.Shape(obj.Geometry, "")...)
		}
	}

	if len(d.cfg.IntensityStats) == 0 {
		return
	}
	req, ok := envelopeRequest(obj.Geometry, src)
	if !ok {
		return
	}
	img, err := src.ReadRegion(req)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to read pixels for intensity measurements")
		return
	}

	if !composite {
		obj.Measurements = append(obj.Measurements,
			measure.Intensity(img, req.Bounds(), obj.Geometry, d.cfg.IntensityStats, "")...)
		return
	}
	for _, comp := range d.cfg.Compartments {
		var g geom.Geometry
		switch comp {
		case measure.CompartmentCell:
			g = obj.Geometry
		case measure.CompartmentNucleus:
			g = *obj.Nucleus
		case measure.CompartmentCytoplasm:
			diff, err := geom.Difference(obj.Geometry, *obj.Nucleus)
			if err != nil || diff.IsEmpty() {
				continue
			}
			g = diff
		default:
			continue
		}
		obj.Measurements = append(obj.Measurements,
			measure.Intensity(img, req.Bounds(), g, d.cfg.IntensityStats, comp.String())...)
	}
}

// envelopeRequest builds a full-resolution region request covering g's
// envelope, clamped to the source bounds.
func envelopeRequest(g geom.Geometry, src imgsrc.Source) (regions.RegionRequest, bool) {
	env := g.Envelope()
	min, max, ok := env.MinMaxXYs()
	if !ok {
		return regions.RegionRequest{}, false
	}
	b := src.Bounds()
	x0 := int(math.Floor(min.X))
	y0 := int(math.Floor(min.Y))
	x1 := int(math.Ceil(max.X))
	y1 := int(math.Ceil(max.Y))
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	if x1 <= x0 || y1 <= y0 {
		return regions.RegionRequest{}, false
	}
	return regions.NewRequest(x0, y0, x1-x0, y1-y0, 1), true
}
