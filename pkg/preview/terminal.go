package preview

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the framebuffer to terminal cells inside area.
// Each terminal row shows two framebuffer rows: ▀ with fg=top, bg=bottom.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1
		if topY >= fb.Height {
			break
		}

		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.Pixel(x, topY)),
					Bg: rgbaToColor(fb.Pixel(x, botY)),
				},
			})
		}
	}
}

// DrawText writes s on one terminal row starting at (x, y).
func DrawText(scr uv.Screen, x, y int, s string, fg color.RGBA) {
	for _, r := range s {
		scr.SetCell(x, y, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: rgbaToColor(fg)},
		})
		x++
	}
}

// rgbaToColor maps transparent pixels to no color.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}

// Palette.
var (
	ColorBackground = RGB(24, 26, 33)
	ColorCovered    = RGB(46, 170, 90)
	ColorUncovered  = RGB(120, 120, 128)
	ColorPath       = RGB(255, 214, 10)
	ColorWaypoint   = RGB(255, 255, 255)
	ColorCollision  = RGB(230, 40, 40)
)

// RGB creates an opaque color.
func RGB(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}

// shade scales the color channels by f in [0,1].
func shade(c color.RGBA, f float64) color.RGBA {
	f = max(0, min(1, f))
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: c.A,
	}
}
