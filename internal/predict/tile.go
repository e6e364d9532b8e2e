package predict

import (
	"fmt"
	"image"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Tile holds the float pixel data of one tile, interleaved HWC. Values are in
// the source image's native intensity range (0-255 for 8-bit input); models
// that need normalized input rely on NormalizePercentiles or preprocessing
// ops.
type Tile struct {
	Width    int
	Height   int
	Channels int
	Pixels   []float32
}

// NewTile allocates a zeroed tile.
func NewTile(width, height, channels int) *Tile {
	return &Tile{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pixels:   make([]float32, width*height*channels),
	}
}

// At returns channel c at pixel (x, y).
func (t *Tile) At(x, y, c int) float32 {
	return t.Pixels[(y*t.Width+x)*t.Channels+c]
}

// Set stores channel c at pixel (x, y).
func (t *Tile) Set(x, y, c int, v float32) {
	t.Pixels[(y*t.Width+x)*t.Channels+c] = v
}

// TileFromImage converts a decoded image into a float tile with the requested
// channel count: 1 produces luminance, 3 produces RGB.
func TileFromImage(img image.Image, channels int) (*Tile, error) {
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count %d (want 1 or 3)", channels)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t := NewTile(w, h, channels)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if channels == 1 {
				// Rec. 601 luma from 16-bit samples
				lum := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
				t.Set(x, y, 0, float32(lum))
			} else {
				t.Set(x, y, 0, float32(r>>8))
				t.Set(x, y, 1, float32(g>>8))
				t.Set(x, y, 2, float32(b>>8))
			}
		}
	}
	return t, nil
}

// NormalizePercentiles rescales each channel in place so that the low and
// high percentiles (in percent, e.g. 1 and 99) map to 0 and 1. Channels with
// no spread are left at zero.
func NormalizePercentiles(t *Tile, low, high float64) {
	n := t.Width * t.Height
	vals := make([]float64, n)
	for c := 0; c < t.Channels; c++ {
		for i := 0; i < n; i++ {
			vals[i] = float64(t.Pixels[i*t.Channels+c])
		}
		sort.Float64s(vals)
		lo := stat.Quantile(low/100, stat.Empirical, vals, nil)
		hi := stat.Quantile(high/100, stat.Empirical, vals, nil)
		span := hi - lo
		for i := 0; i < n; i++ {
			idx := i*t.Channels + c
			if span <= 0 {
				t.Pixels[idx] = 0
				continue
			}
			t.Pixels[idx] = float32((float64(t.Pixels[idx]) - lo) / span)
		}
	}
}
