// Package angles precomputes ray directions for star-convex polygon decoding.
package angles

import "math"

// Table holds the sine and cosine of n equally spaced ray angles.
// Index i corresponds to the angle 2*pi*i/n.
type Table struct {
	Sin []float64
	Cos []float64
}

// New builds a table for n rays. It is cheap enough to recompute per
// detection run; the ray count depends on the model in use.
func New(n int) Table {
	t := Table{
		Sin: make([]float64, n),
		Cos: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi / float64(n) * float64(i)
		t.Sin[i] = math.Sin(theta)
		t.Cos[i] = math.Cos(theta)
	}
	return t
}

// Len returns the number of rays in the table.
func (t Table) Len() int {
	return len(t.Sin)
}
