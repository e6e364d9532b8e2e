package geometry

import (
	"math"
	"testing"
)

func TestRingArea(t *testing.T) {
	tests := []struct {
		name string
		ring []Point2D
		want float64
	}{
		{"unit square", []Point2D{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, 1},
		{"triangle", []Point2D{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"clockwise square", []Point2D{{0, 1}, {1, 1}, {1, 0}, {0, 0}}, 1},
		{"degenerate", []Point2D{{0, 0}, {1, 1}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RingArea(tt.ring); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RingArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRingCentroid(t *testing.T) {
	square := []Point2D{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	c := RingCentroid(square)
	if math.Abs(c.X-1) > 1e-12 || math.Abs(c.Y-1) > 1e-12 {
		t.Errorf("centroid = %v, want (1,1)", c)
	}

	// Circle centroid should be its center regardless of vertex count.
	circle := GenerateCirclePoints(10, -5, 3, 32)
	c = RingCentroid(circle)
	if math.Abs(c.X-10) > 1e-9 || math.Abs(c.Y+5) > 1e-9 {
		t.Errorf("circle centroid = %v, want (10,-5)", c)
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point2D{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PointInPolygon(Point2D{5, 5}, square) {
		t.Error("center should be inside")
	}
	if PointInPolygon(Point2D{15, 5}, square) {
		t.Error("outside point reported inside")
	}
	if PointInPolygon(Point2D{-1, -1}, square) {
		t.Error("corner-adjacent outside point reported inside")
	}
}

func TestSimplifyRing(t *testing.T) {
	// A square with a redundant midpoint on one edge: the midpoint spans zero
	// area and must be removed at any positive tolerance.
	ring := []Point2D{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}}
	got := SimplifyRing(ring, 0.5)
	if len(got) != 4 {
		t.Fatalf("got %d vertices, want 4", len(got))
	}
	if math.Abs(RingArea(got)-100) > 1e-9 {
		t.Errorf("area changed: %v", RingArea(got))
	}
}

func TestSimplifyRingDisabled(t *testing.T) {
	ring := GenerateCirclePoints(0, 0, 10, 32)
	got := SimplifyRing(ring, 0)
	if len(got) != 32 {
		t.Errorf("tolerance <= 0 must not simplify, got %d vertices", len(got))
	}
}

func TestSimplifyRingNeverBelowTriangle(t *testing.T) {
	ring := GenerateCirclePoints(0, 0, 0.01, 16)
	got := SimplifyRing(ring, 100)
	if len(got) < 3 {
		t.Errorf("ring reduced below 3 vertices: %d", len(got))
	}
}
