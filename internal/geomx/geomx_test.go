package geomx

import (
	"math"
	"testing"

	"github.com/peterstace/simplefeatures/geom"

	"stardetect/pkg/geometry"
)

func square(x, y, side float64) []geometry.Point2D {
	return []geometry.Point2D{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

func TestPolygonFromRing(t *testing.T) {
	g, err := PolygonFromRing(square(0, 0, 10))
	if err != nil {
		t.Fatalf("PolygonFromRing: %v", err)
	}
	if got := g.Area(); math.Abs(got-100) > 1e-9 {
		t.Errorf("Area = %v, want 100", got)
	}
}

func TestPolygonFromRingTooFewVertices(t *testing.T) {
	if _, err := PolygonFromRing(square(0, 0, 1)[:2]); err == nil {
		t.Error("expected error for 2-vertex ring")
	}
}

func TestPolygonFromRingSelfIntersecting(t *testing.T) {
	bowtie := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	if _, err := PolygonFromRing(bowtie); err == nil {
		t.Error("expected error for self-intersecting ring")
	}
}

func TestRoundTripRing(t *testing.T) {
	ring := geometry.GenerateCirclePoints(5, 5, 3, 16)
	g, err := PolygonFromRing(ring)
	if err != nil {
		t.Fatalf("PolygonFromRing: %v", err)
	}
	got, ok := ExteriorRing(g)
	if !ok {
		t.Fatal("ExteriorRing failed")
	}
	if len(got) != len(ring) {
		t.Fatalf("round trip changed vertex count: %d != %d", len(got), len(ring))
	}
	for i := range ring {
		if math.Abs(got[i].X-ring[i].X) > 1e-9 || math.Abs(got[i].Y-ring[i].Y) > 1e-9 {
			t.Fatalf("vertex %d differs: %v != %v", i, got[i], ring[i])
		}
	}
}

func TestContainsPoint(t *testing.T) {
	g, err := PolygonFromRing(square(0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if !ContainsPoint(g, 5, 5) {
		t.Error("(5,5) should be inside")
	}
	if ContainsPoint(g, 20, 5) {
		t.Error("(20,5) should be outside")
	}
}

func TestBox(t *testing.T) {
	g, err := PolygonFromRing(square(2, 3, 4))
	if err != nil {
		t.Fatal(err)
	}
	box, ok := Box(g)
	if !ok {
		t.Fatal("Box failed")
	}
	if box.MinX != 2 || box.MinY != 3 || box.MaxX != 6 || box.MaxY != 7 {
		t.Errorf("box = %+v", box)
	}
}

func TestBoxesIntersect(t *testing.T) {
	a, _ := Box(mustPoly(t, square(0, 0, 10)))
	b, _ := Box(mustPoly(t, square(5, 5, 10)))
	c, _ := Box(mustPoly(t, square(20, 20, 5)))
	if !BoxesIntersect(a, b) {
		t.Error("overlapping boxes reported disjoint")
	}
	if BoxesIntersect(a, c) {
		t.Error("disjoint boxes reported overlapping")
	}
}

func mustPoly(t *testing.T, ring []geometry.Point2D) geom.Geometry {
	t.Helper()
	p, err := PolygonFromRing(ring)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
