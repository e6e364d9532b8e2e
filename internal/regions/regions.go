// Package regions provides region requests and tiling math for detection runs.
package regions

import (
	"fmt"
	"image"
	"math"
)

// RegionRequest identifies an axis-aligned region of the full image, together
// with the downsample factor at which pixels should be read. Coordinates are
// always in full-resolution image space.
type RegionRequest struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Downsample float64 `json:"downsample"`
}

// NewRequest creates a request covering the given rectangle at the given
// downsample. A downsample <= 0 is treated as 1 (full resolution).
func NewRequest(x, y, width, height int, downsample float64) RegionRequest {
	if downsample <= 0 {
		downsample = 1
	}
	return RegionRequest{X: x, Y: y, Width: width, Height: height, Downsample: downsample}
}

// MaxX returns the exclusive right bound of the request.
func (r RegionRequest) MaxX() int { return r.X + r.Width }

// MaxY returns the exclusive bottom bound of the request.
func (r RegionRequest) MaxY() int { return r.Y + r.Height }

// Bounds returns the request as a stdlib image.Rectangle.
func (r RegionRequest) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.MaxX(), r.MaxY())
}

// ScaledSize returns the pixel dimensions of the region once read at the
// request's downsample factor.
func (r RegionRequest) ScaledSize() (w, h int) {
	w = int(math.Round(float64(r.Width) / r.Downsample))
	h = int(math.Round(float64(r.Height) / r.Downsample))
	return w, h
}

func (r RegionRequest) String() string {
	return fmt.Sprintf("region(%d,%d %dx%d ds=%.3g)", r.X, r.Y, r.Width, r.Height, r.Downsample)
}

// Tile partitions region into overlapping tile requests. Each tile covers an
// interior of at most (tileWidth-2*pad) x (tileHeight-2*pad) pixels and is
// expanded by pad on every side, clamped to the region. The padding overlap
// lets adjacent tiles fully capture objects that straddle a seam.
//
// If the region fits in a single interior tile, the region itself is returned
// as the only request.
func Tile(region RegionRequest, tileWidth, tileHeight, pad int) []RegionRequest {
	coreW := tileWidth - 2*pad
	coreH := tileHeight - 2*pad
	if coreW <= 0 || coreH <= 0 {
		coreW = tileWidth
		coreH = tileHeight
		pad = 0
	}

	if region.Width <= coreW && region.Height <= coreH {
		return []RegionRequest{region}
	}

	var tiles []RegionRequest
	for y := region.Y; y < region.MaxY(); y += coreH {
		for x := region.X; x < region.MaxX(); x += coreW {
			x0 := x - pad
			y0 := y - pad
			x1 := x + coreW + pad
			y1 := y + coreH + pad
			if x0 < region.X {
				x0 = region.X
			}
			if y0 < region.Y {
				y0 = region.Y
			}
			if x1 > region.MaxX() {
				x1 = region.MaxX()
			}
			if y1 > region.MaxY() {
				y1 = region.MaxY()
			}
			tiles = append(tiles, RegionRequest{
				X:          x0,
				Y:          y0,
				Width:      x1 - x0,
				Height:     y1 - y0,
				Downsample: region.Downsample,
			})
		}
	}
	return tiles
}
