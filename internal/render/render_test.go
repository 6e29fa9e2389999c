package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/example/slicecontour/internal/contour"
	"github.com/example/slicecontour/internal/viewport"
)

func frame(pts ...contour.Point) Frame {
	return Frame{
		Canvas:      image.Rect(0, 0, 100, 100),
		View:        viewport.Viewport{Zoom: 1},
		Calibration: viewport.Calibration{X: 1, Y: 1},
		BaseSize:    100,
		Points:      pts,
		Highlight:   -1,
		Style:       DefaultStyle(),
	}
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRenderMarkers(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	f := frame(contour.Pt(10, 10), contour.Pt(50, 60))
	f.Highlight = 1
	Render(dst, f)

	if got := dst.RGBAAt(10, 10); got != rgba(f.Style.Marker) {
		t.Fatalf("marker colour %v", got)
	}
	if got := dst.RGBAAt(50, 60); got != rgba(f.Style.Highlight) {
		t.Fatalf("highlight colour %v", got)
	}
	if got := dst.RGBAAt(90, 90); got != rgba(f.Style.Background) {
		t.Fatalf("background %v", got)
	}
}

func TestRenderAppliesViewport(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	f := frame(contour.Pt(10, 10))
	f.View = viewport.Viewport{Zoom: 2, Pan: viewport.Vec{X: 5, Y: -5}}
	Render(dst, f)
	if got := dst.RGBAAt(25, 15); got != rgba(f.Style.Marker) {
		t.Fatalf("marker not at transformed position: %v", got)
	}
}

func TestRenderIsStateless(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 100, 100))
	b := image.NewRGBA(image.Rect(0, 0, 100, 100))
	f := frame(contour.Pt(20, 20), contour.Pt(70, 30))
	f.Style.ShowOutline = true
	Render(a, f)
	Render(a, frame())
	Render(b, frame())
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixels from a previous frame survived at byte %d", i)
		}
	}
}

func TestRenderScalesBitmap(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	blue := color.RGBA{0, 0, 255, 255}
	for i := 0; i < len(src.Pix); i += 4 {
		copy(src.Pix[i:i+4], []uint8{blue.R, blue.G, blue.B, blue.A})
	}
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	f := frame()
	f.Bitmap = src
	f.BaseSize = 50
	Render(dst, f)
	if got := dst.RGBAAt(25, 25); got != blue {
		t.Fatalf("bitmap not drawn: %v", got)
	}
	if got := dst.RGBAAt(75, 75); got != rgba(f.Style.Background) {
		t.Fatalf("bitmap drawn outside its rect: %v", got)
	}
}

func TestRenderClipsToCanvas(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 120, 120))
	f := frame(contour.Pt(0, 0))
	f.Canvas = image.Rect(20, 20, 120, 120)
	Render(dst, f)
	if got := dst.RGBAAt(5, 5); got.A != 0 {
		t.Fatalf("drew outside canvas: %v", got)
	}
	if got := dst.RGBAAt(20, 20); got != rgba(f.Style.Marker) {
		t.Fatalf("marker not offset by canvas origin: %v", got)
	}
}
