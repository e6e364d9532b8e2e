package detect

import (
	"context"
	"math"
	"testing"

	"github.com/peterstace/simplefeatures/geom"

	"stardetect/internal/geomx"
	"stardetect/pkg/geometry"
)

// denseNucleus builds a candidate whose geometry carries many vertices, as a
// resolver-shrunk neighbor does after its geometry is replaced by a raw
// difference result.
func denseNucleus(t *testing.T, prob float64) *potentialNucleus {
	t.Helper()
	g, err := geomx.PolygonFromRing(geometry.GenerateCirclePoints(50, 50, 10, 64))
	if err != nil {
		t.Fatal(err)
	}
	return newPotentialNucleus(g, prob, -1)
}

func TestAssembleSimplifiesNucleusGeometry(t *testing.T) {
	d, err := NewBuilderWithBackend(noopBackend()).Simplify(1).Build()
	if err != nil {
		t.Fatal(err)
	}

	n := denseNucleus(t, 0.9)
	objects, err := d.assemble(context.Background(), []*potentialNucleus{n}, geom.Geometry{})
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(objects))
	}

	ring, ok := geomx.ExteriorRing(objects[0].Geometry)
	if !ok {
		t.Fatal("object geometry is not a polygon")
	}
	if len(ring) >= 64 {
		t.Errorf("geometry still has %d vertices, want fewer than 64", len(ring))
	}
	if len(ring) < 3 {
		t.Errorf("simplification left %d vertices", len(ring))
	}
	if math.Abs(objects[0].Geometry.Area()-math.Pi*100) > 15 {
		t.Errorf("simplified area = %v, want ~%v", objects[0].Geometry.Area(), math.Pi*100)
	}
}

func TestAssembleSimplifiesCompositeNucleus(t *testing.T) {
	d, err := NewBuilderWithBackend(noopBackend()).Simplify(1).CellExpansion(5).Build()
	if err != nil {
		t.Fatal(err)
	}

	n := denseNucleus(t, 0.9)
	objects, err := d.assemble(context.Background(), []*potentialNucleus{n}, geom.Geometry{})
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 1 || objects[0].Nucleus == nil {
		t.Fatalf("expected one composite object, got %+v", objects)
	}

	ring, ok := geomx.ExteriorRing(*objects[0].Nucleus)
	if !ok {
		t.Fatal("child nucleus is not a polygon")
	}
	if len(ring) >= 64 {
		t.Errorf("child nucleus still has %d vertices, want fewer than 64", len(ring))
	}
}

func TestAssembleZeroSimplifyKeepsVertices(t *testing.T) {
	d, err := NewBuilderWithBackend(noopBackend()).Simplify(0).Build()
	if err != nil {
		t.Fatal(err)
	}

	n := denseNucleus(t, 0.9)
	objects, err := d.assemble(context.Background(), []*potentialNucleus{n}, geom.Geometry{})
	if err != nil {
		t.Fatal(err)
	}
	ring, _ := geomx.ExteriorRing(objects[0].Geometry)
	if len(ring) != 64 {
		t.Errorf("geometry has %d vertices, want 64 untouched", len(ring))
	}
}
