// Package viewport tracks the zoom and pan of the editing canvas and maps
// between screen pixels and contour coordinates.
package viewport

import (
	"image"
	"math"

	"github.com/example/slicecontour/internal/contour"
)

// Defaults used when nothing is configured.
const (
	DefaultMinZoom  = 0.5
	DefaultMaxZoom  = 5.0
	DefaultZoomStep = 1.2
	DefaultBaseSize = 500
)

// Vec is a screen-space offset.
type Vec struct {
	X, Y float64
}

// Add returns v+o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v*f.
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// Calibration scales contour coordinates before the zoom is applied. It
// only affects points, never the raster.
type Calibration struct {
	X, Y float64
}

// DefaultCalibration matches the server's contour space to the 500px raster.
var DefaultCalibration = Calibration{X: 1.97, Y: 1.94}

// Limits bound the zoom factor.
type Limits struct {
	Min, Max, Step float64
}

// DefaultLimits returns the standard zoom limits.
func DefaultLimits() Limits {
	return Limits{Min: DefaultMinZoom, Max: DefaultMaxZoom, Step: DefaultZoomStep}
}

// Viewport is the current zoom and pan. The zero value is not usable; call New.
type Viewport struct {
	Zoom   float64
	Pan    Vec
	Limits Limits
}

// New returns a viewport at zoom 1 with no pan.
func New(l Limits) *Viewport {
	if l.Step <= 1 {
		l.Step = DefaultZoomStep
	}
	if l.Min <= 0 {
		l.Min = DefaultMinZoom
	}
	if l.Max < l.Min {
		l.Max = l.Min
	}
	v := &Viewport{Limits: l}
	v.Reset()
	return v
}

// Reset returns to zoom 1 and zero pan.
func (v *Viewport) Reset() {
	v.Zoom = 1
	v.Pan = Vec{}
}

// ZoomIn multiplies the zoom by the step, clamped to the maximum. The pan is
// rescaled by the same ratio.
func (v *Viewport) ZoomIn() {
	v.setZoom(math.Min(v.Zoom*v.Limits.Step, v.Limits.Max))
}

// ZoomOut divides the zoom by the step, clamped to the minimum.
func (v *Viewport) ZoomOut() {
	v.setZoom(math.Max(v.Zoom/v.Limits.Step, v.Limits.Min))
}

// StepTowards zooms in or out by whole steps until the next step would pass
// target. The limits are reachable even when they are not a power of the step.
func (v *Viewport) StepTowards(target float64) {
	const tol = 1e-9
	for v.Zoom < target {
		next := math.Min(v.Zoom*v.Limits.Step, v.Limits.Max)
		if next == v.Zoom || next > target*(1+tol) {
			break
		}
		v.ZoomIn()
	}
	for v.Zoom > target {
		next := math.Max(v.Zoom/v.Limits.Step, v.Limits.Min)
		if next == v.Zoom || next < target*(1-tol) {
			break
		}
		v.ZoomOut()
	}
}

func (v *Viewport) setZoom(z float64) {
	if v.Zoom != 0 {
		v.Pan = v.Pan.Scale(z / v.Zoom)
	}
	v.Zoom = z
}

// PanBy shifts the pan by d screen pixels.
func (v *Viewport) PanBy(d Vec) {
	v.Pan = v.Pan.Add(d)
}

// ScreenToContour maps a canvas position to contour space.
func (v *Viewport) ScreenToContour(s Vec, cal Calibration) contour.Point {
	return contour.Pt(
		(s.X-v.Pan.X)/v.Zoom/cal.X,
		(s.Y-v.Pan.Y)/v.Zoom/cal.Y,
	)
}

// ContourToScreen maps a contour point to a canvas position.
func (v *Viewport) ContourToScreen(p contour.Point, cal Calibration) Vec {
	return Vec{
		X: p.X*cal.X*v.Zoom + v.Pan.X,
		Y: p.Y*cal.Y*v.Zoom + v.Pan.Y,
	}
}

// ImageRect is where a base x base raster lands on the canvas.
func (v *Viewport) ImageRect(base int) image.Rectangle {
	if base <= 0 {
		base = DefaultBaseSize
	}
	size := float64(base) * v.Zoom
	x0 := math.Round(v.Pan.X)
	y0 := math.Round(v.Pan.Y)
	return image.Rect(int(x0), int(y0), int(x0+math.Round(size)), int(y0+math.Round(size)))
}
