// Package predict provides the inference backend interface, the OpenCV DNN
// implementation, and the prediction-map representation consumed by the
// nucleus decoder.
package predict

// Map is a dense multi-channel float prediction grid aligned to one tile.
// Channel layout follows the model output convention: channel 0 is the
// detection probability, followed by N ray-length channels and optionally K
// classification channels. N is model-dependent and recovered as
// Channels - 1 - K, where K is the configured classification count.
type Map struct {
	Width    int
	Height   int
	Channels int
	// Pixels is interleaved HWC: Pixels[(y*Width+x)*Channels+c].
	Pixels []float32
}

// NewMap allocates a zeroed prediction map.
func NewMap(width, height, channels int) *Map {
	return &Map{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pixels:   make([]float32, width*height*channels),
	}
}

// At returns the value of channel c at pixel (x, y).
func (m *Map) At(x, y, c int) float32 {
	return m.Pixels[(y*m.Width+x)*m.Channels+c]
}

// Set stores a value for channel c at pixel (x, y).
func (m *Map) Set(x, y, c int, v float32) {
	m.Pixels[(y*m.Width+x)*m.Channels+c] = v
}

// Prob returns the detection probability at (x, y).
func (m *Map) Prob(x, y int) float32 {
	return m.At(x, y, 0)
}

// Ray returns ray-length channel a at (x, y).
func (m *Map) Ray(x, y, a int) float32 {
	return m.At(x, y, 1+a)
}

// Class returns classification channel c at (x, y), given the number of ray
// channels in the map.
func (m *Map) Class(x, y, nRays, c int) float32 {
	return m.At(x, y, 1+nRays+c)
}
