package detect

import (
	"github.com/peterstace/simplefeatures/geom"

	"stardetect/internal/measure"
)

// Object is a finalized detection. Geometry is the outer region (the cell
// boundary when cell expansion is enabled, otherwise the nucleus itself);
// Nucleus is the child nucleus region of composite cell objects, nil for
// single-region objects. Geometries marshal as GeoJSON.
type Object struct {
	Geometry     geom.Geometry         `json:"geometry"`
	Nucleus      *geom.Geometry        `json:"nucleus,omitempty"`
	Class        string                `json:"classification,omitempty"`
	Probability  float64               `json:"probability"`
	Measurements []measure.Measurement `json:"measurements,omitempty"`
}
