package geometry

import (
	"math"
	"testing"
)

func TestPointArithmetic(t *testing.T) {
	p := Point2D{X: 3, Y: 4}
	if d := p.Distance(Point2D{}); math.Abs(d-5) > 1e-12 {
		t.Errorf("distance = %v, want 5", d)
	}
	if got := p.Add(Point2D{X: 1, Y: 1}); got != (Point2D{X: 4, Y: 5}) {
		t.Errorf("add = %v", got)
	}
	if got := p.Sub(Point2D{X: 1, Y: 1}); got != (Point2D{X: 2, Y: 3}) {
		t.Errorf("sub = %v", got)
	}
	if got := p.Scale(2); got != (Point2D{X: 6, Y: 8}) {
		t.Errorf("scale = %v", got)
	}
}

func TestRectIntersects(t *testing.T) {
	base := NewRect(0, 0, 10, 10)
	cases := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"overlapping", NewRect(5, 5, 10, 10), true},
		{"contained", NewRect(2, 2, 3, 3), true},
		{"disjoint", NewRect(20, 20, 5, 5), false},
		{"edge touching", NewRect(10, 0, 5, 5), false},
	}
	for _, tc := range cases {
		if got := base.Intersects(tc.other); got != tc.want {
			t.Errorf("%s: Intersects = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBoundingBox(t *testing.T) {
	points := []Point2D{{X: 2, Y: 8}, {X: -1, Y: 3}, {X: 5, Y: 4}}
	bb := BoundingBox(points)
	want := Rect{X: -1, Y: 3, Width: 6, Height: 5}
	if bb != want {
		t.Errorf("bounding box = %+v, want %+v", bb, want)
	}
	if got := BoundingBox(nil); got != (Rect{}) {
		t.Errorf("empty input = %+v", got)
	}
}
