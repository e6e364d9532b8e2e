// Package render draws detection overlays onto images for review and export.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/peterstace/simplefeatures/geom"

	"stardetect/internal/detect"
	"stardetect/internal/geomx"
	"stardetect/pkg/geometry"
)

// Options configures overlay rendering.
type Options struct {
	LineWidth  int  // Outline width in pixels
	DrawNuclei bool // Whether to outline nuclei inside composite objects
	OffsetX    int  // Image-space offset of the base image's (0,0)
	OffsetY    int
}

// DefaultOptions returns default rendering options.
func DefaultOptions() Options {
	return Options{
		LineWidth:  2,
		DrawNuclei: true,
	}
}

// Palette assigns stable colors to classification labels. Colors are spaced
// around the hue wheel in order of first appearance; the empty label gets a
// fixed green.
type Palette struct {
	colors map[string]color.RGBA
}

// NewPalette creates an empty palette.
func NewPalette() *Palette {
	return &Palette{colors: make(map[string]color.RGBA)}
}

// Color returns the color for a label, assigning one on first use.
func (p *Palette) Color(label string) color.RGBA {
	if c, ok := p.colors[label]; ok {
		return c
	}
	var c color.RGBA
	if label == "" {
		c = color.RGBA{R: 50, G: 220, B: 50, A: 255}
	} else {
		// Golden-angle hue stepping keeps consecutive labels far apart.
		hue := math.Mod(float64(len(p.colors))*137.5, 360)
		r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
		c = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	p.colors[label] = c
	return c
}

// Overlay draws object outlines over a copy of base. The base image's pixel
// (0,0) corresponds to image-space coordinate (OffsetX, OffsetY).
func Overlay(base image.Image, objects []detect.Object, opts Options) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, base.Bounds().Dx(), base.Bounds().Dy()))
	draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)

	palette := NewPalette()
	for _, obj := range objects {
		c := palette.Color(obj.Class)
		drawGeometryOutline(out, obj.Geometry, c, opts)
		if opts.DrawNuclei && obj.Nucleus != nil {
			drawGeometryOutline(out, *obj.Nucleus, darken(c, 0.35), opts)
		}
	}
	return out
}

func drawGeometryOutline(img *image.RGBA, g geom.Geometry, c color.RGBA, opts Options) {
	width := opts.LineWidth
	if width < 1 {
		width = 1
	}
	for _, ring := range geomx.Polygons(g) {
		drawRing(img, ring.Shell, width, c, opts)
		for _, hole := range ring.Holes {
			drawRing(img, hole, width, c, opts)
		}
	}
}

// darken reduces the brightness of a color.
func darken(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * (1 - factor)),
		G: uint8(float64(c.G) * (1 - factor)),
		B: uint8(float64(c.B) * (1 - factor)),
		A: c.A,
	}
}

// drawRing draws the closed outline of one vertex ring. Rings entirely
// outside the canvas are skipped before any edge work.
func drawRing(img *image.RGBA, ring []geometry.Point2D, width int, c color.RGBA, opts Options) {
	if len(ring) < 2 {
		return
	}
	b := img.Bounds()
	canvas := geometry.NewRect(
		float64(opts.OffsetX), float64(opts.OffsetY),
		float64(b.Dx()), float64(b.Dy()))
	if !geometry.BoundingBox(ring).Intersects(canvas) {
		return
	}
	for i := 0; i < len(ring); i++ {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		drawThickLine(img,
			a.X-float64(opts.OffsetX), a.Y-float64(opts.OffsetY),
			b.X-float64(opts.OffsetX), b.Y-float64(opts.OffsetY),
			width, c)
	}
}

// drawThickLine draws a line with given thickness.
func drawThickLine(img *image.RGBA, x1, y1, x2, y2 float64, thickness int, c color.RGBA) {
	bounds := img.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return
	}

	// Perpendicular unit vector
	px := -dy / length
	py := dx / length

	halfThick := float64(thickness) / 2
	for t := -halfThick; t <= halfThick; t += 1.0 {
		drawLine(img,
			int(x1+px*t), int(y1+py*t),
			int(x2+px*t), int(y2+py*t),
			c, bounds)
	}
}

// drawLine draws a line using Bresenham's algorithm.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA, bounds image.Rectangle) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	var sx, sy int
	if x1 < x2 {
		sx = 1
	} else {
		sx = -1
	}
	if y1 < y2 {
		sy = 1
	} else {
		sy = -1
	}

	err := dx - dy

	for {
		if x1 >= bounds.Min.X && x1 < bounds.Max.X && y1 >= bounds.Min.Y && y1 < bounds.Max.Y {
			img.Set(x1, y1, c)
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
