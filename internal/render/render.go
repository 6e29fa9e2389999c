// Package render draws one frame of the contour editor. It keeps no state
// between calls: the same Frame always produces the same pixels.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/viewport"
)

// Style holds the colours and marker geometry.
type Style struct {
	Background   color.Color
	Marker       color.Color
	Highlight    color.Color
	Outline      color.Color
	Text         color.Color
	MarkerRadius float64
	ShowOutline  bool
}

// DefaultStyle matches the editor's stock look: red markers on a white
// stage.
func DefaultStyle() Style {
	return Style{
		Background:   color.White,
		Marker:       color.RGBA{255, 0, 0, 255},
		Highlight:    color.RGBA{255, 200, 0, 255},
		Outline:      color.RGBA{255, 0, 0, 160},
		Text:         color.Black,
		MarkerRadius: 3,
	}
}

// Frame is everything needed to draw the canvas.
type Frame struct {
	// Canvas is where the stage is drawn inside dst. Screen coordinates in
	// the viewport are relative to Canvas.Min.
	Canvas      image.Rectangle
	Bitmap      image.Image
	View        viewport.Viewport
	Calibration viewport.Calibration
	BaseSize    int
	Points      []contour.Point
	// Highlight is the index drawn in the highlight colour, or -1.
	Highlight int
	Loading   bool
	Style     Style
}

// Render draws f into dst.
func Render(dst *image.RGBA, f Frame) {
	canvas := f.Canvas
	if canvas.Empty() {
		canvas = dst.Bounds()
	}
	canvas = canvas.Intersect(dst.Bounds())
	if canvas.Empty() {
		return
	}
	sub := dst.SubImage(canvas).(*image.RGBA)
	st := f.Style
	if st.Background == nil {
		st = DefaultStyle()
	}

	draw.Draw(sub, canvas, image.NewUniform(st.Background), image.Point{}, draw.Src)

	if f.Bitmap != nil {
		r := f.View.ImageRect(f.BaseSize).Add(canvas.Min)
		scaler := xdraw.Interpolator(xdraw.ApproxBiLinear)
		if f.View.Zoom > 1 {
			scaler = xdraw.BiLinear
		}
		scaler.Scale(sub, r, f.Bitmap, f.Bitmap.Bounds(), draw.Over, nil)
	} else if f.Loading {
		drawCentered(sub, canvas, "Loading...", st.Text)
	}

	screen := make([]image.Point, len(f.Points))
	for i, p := range f.Points {
		s := f.View.ContourToScreen(p, f.Calibration)
		screen[i] = image.Pt(int(math.Round(s.X)), int(math.Round(s.Y))).Add(canvas.Min)
	}

	if st.ShowOutline && len(screen) > 1 {
		for i := range screen {
			a := screen[i]
			b := screen[(i+1)%len(screen)]
			if len(screen) == 2 && i == 1 {
				break
			}
			drawLine(sub, a.X, a.Y, b.X, b.Y, st.Outline, 1)
		}
	}

	r := markerRadius(st, f.View.Zoom)
	for i, p := range screen {
		col := st.Marker
		if i == f.Highlight {
			col = st.Highlight
		}
		drawFilledCircle(sub, p.X, p.Y, r, col)
	}
}

// markerRadius is the on-screen marker radius. Markers scale with zoom like
// the raster does, but never vanish.
func markerRadius(st Style, zoom float64) int {
	r := int(math.Round(st.MarkerRadius * zoom))
	if r < 1 {
		r = 1
	}
	return r
}

func drawCentered(dst *image.RGBA, rect image.Rectangle, msg string, col color.Color) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	w := d.MeasureString(msg).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	x := rect.Min.X + (rect.Dx()-w)/2
	y := rect.Min.Y + (rect.Dy()+ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(msg)
}
