package detect

import (
	"github.com/peterstace/simplefeatures/geom"
)

// potentialNucleus is a candidate detection produced by the decoder. The
// geometry may be replaced by a geometric difference while the overlap
// resolver owns the candidate; fullArea keeps the creation-time area as the
// fragmentation reference.
type potentialNucleus struct {
	geometry       geom.Geometry
	fullArea       float64
	probability    float64
	classification int
}

func newPotentialNucleus(g geom.Geometry, probability float64, classification int) *potentialNucleus {
	return &potentialNucleus{
		geometry:       g,
		fullArea:       g.Area(),
		probability:    probability,
		classification: classification,
	}
}
