package detect

import (
	"math"
	"testing"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/rs/zerolog"

	"stardetect/internal/geomx"
	"stardetect/internal/predict"
	"stardetect/internal/regions"
	"stardetect/pkg/geometry"
)

// testMap builds a prediction map with nRays ray channels and nClasses
// classification channels, all zero.
func testMap(w, h, nRays, nClasses int) *predict.Map {
	return predict.NewMap(w, h, 1+nRays+nClasses)
}

// setCandidate writes one candidate pixel: probability plus uniform rays.
func setCandidate(m *predict.Map, x, y int, prob, rayLen float32, nRays int) {
	m.Set(x, y, 0, prob)
	for a := 0; a < nRays; a++ {
		m.Set(x, y, 1+a, rayLen)
	}
}

func decoderConfig() *Config {
	return &Config{Threshold: 0.5, Downsample: 1, Channels: 1}
}

func TestDecodeRegularPolygon(t *testing.T) {
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 4, 4, 0.9, 3, 16)
	req := regions.NewRequest(0, 0, 8, 8, 1)

	nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatalf("got %d candidates, want 1", len(nuclei))
	}
	n := nuclei[0]

	// Regular 16-gon of radius 3 centered on the pixel.
	want := 0.5 * 16 * 9 * math.Sin(2*math.Pi/16)
	if math.Abs(n.geometry.Area()-want) > 0.05 {
		t.Errorf("area = %v, want ~%v", n.geometry.Area(), want)
	}
	if math.Abs(n.probability-0.9) > 1e-6 {
		t.Errorf("probability = %v", n.probability)
	}
	if n.classification != -1 {
		t.Errorf("classification = %d, want -1", n.classification)
	}

	ring, ok := geomx.ExteriorRing(n.geometry)
	if !ok {
		t.Fatal("candidate is not a polygon")
	}
	c := geometry.RingCentroid(ring)
	if math.Abs(c.X-4) > 0.05 || math.Abs(c.Y-4) > 0.05 {
		t.Errorf("centroid = %v, want (4, 4)", c)
	}
}

func TestDecodeThresholdInclusive(t *testing.T) {
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 2, 2, 0.5, 2, 16)  // exactly at threshold: kept
	setCandidate(m, 6, 6, 0.49, 2, 16) // just below: dropped
	req := regions.NewRequest(0, 0, 8, 8, 1)

	nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatalf("got %d candidates, want 1", len(nuclei))
	}
	if math.Abs(nuclei[0].probability-0.5) > 1e-6 {
		t.Errorf("kept candidate probability = %v", nuclei[0].probability)
	}
}

func TestDecodeToleratesBadRays(t *testing.T) {
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 4, 4, 0.8, 3, 16)
	m.Set(4, 4, 1+2, float32(math.NaN()))
	m.Set(4, 4, 1+7, float32(math.Inf(1)))
	req := regions.NewRequest(0, 0, 8, 8, 1)

	nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatalf("got %d candidates, want 1 (bad rays skipped)", len(nuclei))
	}
	ring, _ := geomx.ExteriorRing(nuclei[0].geometry)
	if len(ring) != 14 {
		t.Errorf("ring has %d vertices, want 14", len(ring))
	}
}

func TestDecodeCollapsedRaysDropped(t *testing.T) {
	// Zero-length rays are floored at a fraction of a pixel; after coordinate
	// snapping every vertex coincides and the candidate cannot form a polygon.
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 4, 4, 0.9, 0, 16)
	req := regions.NewRequest(0, 0, 8, 8, 1)

	if nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop()); len(nuclei) != 0 {
		t.Fatalf("got %d candidates, want 0", len(nuclei))
	}
}

func TestDecodeOffsetRegion(t *testing.T) {
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 4, 4, 0.9, 3, 16)
	req := regions.NewRequest(100, 200, 8, 8, 1)

	nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatal("expected one candidate")
	}
	ring, _ := geomx.ExteriorRing(nuclei[0].geometry)
	c := geometry.RingCentroid(ring)
	if math.Abs(c.X-104) > 0.05 || math.Abs(c.Y-204) > 0.05 {
		t.Errorf("centroid = %v, want (104, 204)", c)
	}
}

func TestDecodeMaskFiltersCentroids(t *testing.T) {
	mask, err := geomx.PolygonFromRing([]geometry.Point2D{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	})
	if err != nil {
		t.Fatal(err)
	}

	m := testMap(32, 32, 16, 0)
	setCandidate(m, 4, 4, 0.9, 2, 16)   // inside mask
	setCandidate(m, 20, 20, 0.9, 2, 16) // outside mask
	req := regions.NewRequest(0, 0, 32, 32, 1)

	nuclei := decodeTile(m, req, mask, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatalf("got %d candidates, want 1", len(nuclei))
	}
}

func TestDecodeClassification(t *testing.T) {
	cfg := decoderConfig()
	cfg.Classifications = map[int]string{0: "Background", 1: "Tumor", 2: "Stroma"}

	m := testMap(32, 32, 8, 3)
	setCandidate(m, 4, 4, 0.9, 2, 8)
	m.Set(4, 4, 1+8+0, 0.1)
	m.Set(4, 4, 1+8+1, 0.8)
	m.Set(4, 4, 1+8+2, 0.3)

	setCandidate(m, 20, 20, 0.9, 2, 8)
	m.Set(20, 20, 1+8+0, 0.9) // background wins: dropped
	m.Set(20, 20, 1+8+1, 0.1)

	req := regions.NewRequest(0, 0, 32, 32, 1)
	nuclei := decodeTile(m, req, geom.Geometry{}, cfg, zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatalf("got %d candidates, want 1", len(nuclei))
	}
	if nuclei[0].classification != 1 {
		t.Errorf("classification = %d, want 1", nuclei[0].classification)
	}

	cfg.KeepClassifiedBackground = true
	nuclei = decodeTile(m, req, geom.Geometry{}, cfg, zerolog.Nop())
	if len(nuclei) != 2 {
		t.Fatalf("got %d candidates with background kept, want 2", len(nuclei))
	}
}

func TestDecodeClassificationTieBreaksLow(t *testing.T) {
	cfg := decoderConfig()
	cfg.Classifications = map[int]string{0: "A", 1: "B"}
	cfg.KeepClassifiedBackground = true

	m := testMap(8, 8, 8, 2)
	setCandidate(m, 4, 4, 0.9, 2, 8)
	m.Set(4, 4, 1+8+0, 0.5)
	m.Set(4, 4, 1+8+1, 0.5)

	nuclei := decodeTile(m, regions.NewRequest(0, 0, 8, 8, 1), geom.Geometry{}, cfg, zerolog.Nop())
	if len(nuclei) != 1 || nuclei[0].classification != 0 {
		t.Fatalf("tie must resolve to the first class, got %+v", nuclei)
	}
}

func TestDecodeDownsampleScalesCoordinates(t *testing.T) {
	m := testMap(8, 8, 16, 0)
	setCandidate(m, 4, 4, 0.9, 3, 16)
	req := regions.NewRequest(0, 0, 16, 16, 2)

	nuclei := decodeTile(m, req, geom.Geometry{}, decoderConfig(), zerolog.Nop())
	if len(nuclei) != 1 {
		t.Fatal("expected one candidate")
	}
	ring, _ := geomx.ExteriorRing(nuclei[0].geometry)
	c := geometry.RingCentroid(ring)
	if math.Abs(c.X-8) > 0.1 || math.Abs(c.Y-8) > 0.1 {
		t.Errorf("centroid = %v, want (8, 8)", c)
	}
	// Radius 3 in downsampled pixels is 6 in image pixels.
	want := 0.5 * 16 * 36 * math.Sin(2*math.Pi/16)
	if math.Abs(nuclei[0].geometry.Area()-want) > 0.2 {
		t.Errorf("area = %v, want ~%v", nuclei[0].geometry.Area(), want)
	}
}
