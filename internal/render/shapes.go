package render

import (
	"image"
	"image/color"
	"math"
)

func setThickPixel(img *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			px := x + dx
			py := y + dy
			if image.Pt(px, py).In(img.Bounds()) {
				img.Set(px, py, col)
			}
		}
	}
}

// drawLine is Bresenham with a square brush. Endpoints may lie outside img.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	if !lineMayCross(img.Bounds(), x0, y0, x1, y1, thick) {
		return
	}
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func lineMayCross(b image.Rectangle, x0, y0, x1, y1, thick int) bool {
	r := image.Rect(x0, y0, x1, y1).Canon().Inset(-thick - 1)
	return r.Overlaps(b)
}

func drawFilledCircle(img *image.RGBA, cx, cy, r int, col color.Color) {
	if !image.Rect(cx-r, cy-r, cx+r+1, cy+r+1).Overlaps(img.Bounds()) {
		return
	}
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				px := cx + dx
				py := cy + dy
				if image.Pt(px, py).In(img.Bounds()) {
					img.Set(px, py, col)
				}
			}
		}
	}
}
