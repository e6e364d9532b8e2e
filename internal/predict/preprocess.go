package predict

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
)

// ImageOp transforms a tile image before it is converted to floats and sent
// to the inference backend. Ops are applied in the order they were added to
// the builder.
type ImageOp func(image.Image) image.Image

// GaussianBlur returns an op that blurs the tile with the given radius.
func GaussianBlur(radius float64) ImageOp {
	return func(img image.Image) image.Image {
		return blur.Gaussian(img, radius)
	}
}

// ApplyOps runs ops over img in order.
func ApplyOps(img image.Image, ops []ImageOp) image.Image {
	for _, op := range ops {
		img = op(img)
	}
	return img
}
