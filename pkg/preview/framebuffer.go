// Package preview draws a top-down coverage map of a mission: covered and
// uncovered mesh triangles, the flight path and its collisions. Frames can
// be saved as PNG or drawn to a terminal.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/taigrr/overfly/pkg/math3d"
)

// Framebuffer is a 2D array of pixels.
// Terminal output packs two rows per cell using half-block characters.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.RGBA // Row-major pixel data
}

// NewFramebuffer creates a framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// Clear fills the framebuffer with a solid color.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
}

// SetPixel sets the pixel at (x, y). Out of bounds writes are dropped.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// Pixel returns the color at (x, y), or transparent black out of bounds.
func (fb *Framebuffer) Pixel(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// DrawLine draws a line from (x0, y0) to (x1, y1) using Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawMarker draws a filled square of the given radius centered on (x, y).
func (fb *Framebuffer) DrawMarker(x, y, radius int, c color.RGBA) {
	for py := y - radius; py <= y+radius; py++ {
		for px := x - radius; px <= x+radius; px++ {
			fb.SetPixel(px, py, c)
		}
	}
}

// FillTriangle fills the screen-space triangle (x0,y0) (x1,y1) (x2,y2).
// Pixel centers inside the triangle are set regardless of winding. It
// reports false for triangles with no screen area.
func (fb *Framebuffer) FillTriangle(x0, y0, x1, y1, x2, y2 float64, c color.RGBA) bool {
	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if math.Abs(area) < math3d.Epsilon {
		return false
	}

	minX := int(math.Max(0, math.Floor(min(x0, x1, x2))))
	maxX := int(math.Min(float64(fb.Width-1), math.Ceil(max(x0, x1, x2))))
	minY := int(math.Max(0, math.Floor(min(y0, y1, y2))))
	maxY := int(math.Min(float64(fb.Height-1), math.Ceil(max(y0, y1, y2))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			bc := barycentric(x0, y0, x1, y1, x2, y2, float64(x)+0.5, float64(y)+0.5)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}
			fb.SetPixel(x, y, c)
		}
	}
	return true
}

// barycentric calculates barycentric coordinates for point (px, py) in a
// triangle. Degenerate triangles yield negative coordinates.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	denom := dot00*dot11 - dot01*dot01
	if math.Abs(denom) < math3d.Epsilon {
		return math3d.V3(-1, -1, -1)
	}
	invDenom := 1.0 / denom
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	return math3d.V3(1-u-v, v, u)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ToImage converts the framebuffer to a standard Go image.RGBA.
func (fb *Framebuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// EncodePNG writes the framebuffer to w as PNG.
func (fb *Framebuffer) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, fb.ToImage()); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// SavePNG saves the framebuffer as a PNG file.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fb.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
