package detect

import (
	"math"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"

	"stardetect/internal/angles"
	"stardetect/internal/geomx"
	"stardetect/internal/predict"
	"stardetect/internal/regions"
	"stardetect/pkg/geometry"
)

// minRayLength is the floor applied to every ray distance, keeping degenerate
// predictions from collapsing a polygon onto its own center.
const minRayLength = 1e-3

// makePrecise snaps a coordinate to a 1/100 pixel grid so that polygons built
// from the same pixels in different tiles compare equal.
func makePrecise(v float64) float64 {
	return math.Round(v*100) / 100
}

// decodeTile converts one prediction map into candidate nuclei, in full-image
// coordinates. Pixels with probability below the threshold are skipped
// (exactly-at-threshold pixels are kept). mask, when non-empty, drops
// candidates whose centroid falls outside it.
func decodeTile(m *predict.Map, req regions.RegionRequest, mask geom.Geometry, cfg *Config, logger zerolog.Logger) []*potentialNucleus {
	nClasses := cfg.classCount()
	nRays := m.Channels - 1 - nClasses
	if nRays < 3 {
		logger.Warn().
			Int("channels", m.Channels).
			Int("classes", nClasses).
			Msg("prediction map has too few ray channels")
		return nil
	}

	inputW, inputH := req.ScaledSize()
	scaleX := math.Round(float64(inputW) / float64(m.Width))
	scaleY := math.Round(float64(inputH) / float64(m.Height))
	if scaleX < 1 {
		scaleX = 1
	}
	if scaleY < 1 {
		scaleY = 1
	}
	if scaleX != scaleY || (scaleX != 1 && scaleX != 2) {
		logger.Warn().
			Float64("scaleX", scaleX).
			Float64("scaleY", scaleY).
			Msg("unexpected prediction output scaling")
	} else if scaleX == 2 {
		logger.Debug().Msg("prediction output at half resolution, scaling rays by 2")
	}

	table := angles.New(nRays)
	ds := req.Downsample
	threshold := float32(cfg.Threshold)
	checkMask := !mask.IsEmpty()

	var nuclei []*potentialNucleus
	ring := make([]geometry.Point2D, 0, nRays)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			prob := m.Prob(x, y)
			if prob < threshold {
				continue
			}

			ring = ring[:0]
			for a := 0; a < nRays; a++ {
				val := float64(m.Ray(x, y, a))
				if math.IsNaN(val) || math.IsInf(val, 0) {
					continue
				}
				if val < minRayLength {
					val = minRayLength
				}
				vx := makePrecise(float64(req.X) + (float64(x)*scaleX+val*table.Cos[a])*ds)
				vy := makePrecise(float64(req.Y) + (float64(y)*scaleY+val*table.Sin[a])*ds)
				v := geometry.Point2D{X: vx, Y: vy}
				if n := len(ring); n > 0 && ring[n-1] == v {
					continue
				}
				ring = append(ring, v)
			}
			// The last vertex may coincide with the first after snapping.
			if n := len(ring); n > 1 && ring[0] == ring[n-1] {
				ring = ring[:n-1]
			}
			if len(ring) < 3 {
				continue
			}

			g, err := geomx.PolygonFromRing(ring)
			if err != nil {
				logger.Debug().Err(err).Int("x", x).Int("y", y).Msg("dropping invalid candidate polygon")
				continue
			}
			g = simplifyGeometry(g, cfg.SimplifyDistance)

			if checkMask {
				c := geometry.RingCentroid(ring)
				if !geomx.ContainsPoint(mask, c.X, c.Y) {
					continue
				}
			}

			classification := -1
			if nClasses > 0 {
				best := math.Inf(-1)
				for c := 0; c < nClasses; c++ {
					if v := float64(m.Class(x, y, nRays, c)); v > best {
						best = v
						classification = c
					}
				}
				if classification == 0 && !cfg.KeepClassifiedBackground {
					continue
				}
			}

			nuclei = append(nuclei, newPotentialNucleus(g, float64(prob), classification))
		}
	}
	return nuclei
}
