// Package image provides pixel sources for detection: loading whole images
// and serving region requests at arbitrary downsamples.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"

	"stardetect/internal/regions"

	_ "golang.org/x/image/tiff"
)

// Source serves pixel regions of one image. Implementations must be safe for
// concurrent reads; tiles are requested from multiple goroutines.
type Source interface {
	// Bounds returns the full-resolution pixel bounds of the image.
	Bounds() image.Rectangle
	// ReadRegion returns the pixels of the requested region, downsampled by
	// the request's downsample factor.
	ReadRegion(req regions.RegionRequest) (image.Image, error)
}

// MemorySource serves regions from a fully decoded in-memory image.
type MemorySource struct {
	img image.Image
}

// NewMemorySource wraps a decoded image.
func NewMemorySource(img image.Image) *MemorySource {
	return &MemorySource{img: img}
}

// Load decodes an image file (PNG, JPEG, or TIFF) into a MemorySource.
func Load(path string) (*MemorySource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return NewMemorySource(img), nil
}

// Bounds returns the image bounds.
func (s *MemorySource) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// ReadRegion crops the requested region and, if the request carries a
// downsample factor above 1, resizes it with a box filter.
func (s *MemorySource) ReadRegion(req regions.RegionRequest) (image.Image, error) {
	rect := req.Bounds()
	if !rect.Overlaps(s.img.Bounds()) {
		return nil, fmt.Errorf("region %v outside image bounds %v", rect, s.img.Bounds())
	}

	cropped := imaging.Crop(s.img, rect)
	if req.Downsample > 1 {
		w, h := req.ScaledSize()
		return imaging.Resize(cropped, w, h, imaging.Box), nil
	}
	return cropped, nil
}
