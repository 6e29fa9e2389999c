package contour

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stats summarises a contour treated as a closed polygon in native space.
type Stats struct {
	Count     int
	MinX      float64
	MinY      float64
	MaxX      float64
	MaxY      float64
	Perimeter float64
	Area      float64
	Centroid  Point
}

// Summarize computes polygon statistics. Area uses the shoelace formula and
// is always non-negative; fewer than three points have zero area.
func Summarize(c *Collection) Stats {
	n := c.Len()
	st := Stats{Count: n}
	if n == 0 {
		return st
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range c.Points() {
		xs[i], ys[i] = p.X, p.Y
	}
	st.MinX, st.MaxX = floats.Min(xs), floats.Max(xs)
	st.MinY, st.MaxY = floats.Min(ys), floats.Max(ys)
	st.Centroid = Pt(floats.Sum(xs)/float64(n), floats.Sum(ys)/float64(n))
	if n < 2 {
		return st
	}

	edges := make([]float64, n)
	cross := make([]float64, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		edges[i] = math.Hypot(xs[j]-xs[i], ys[j]-ys[i])
		cross[i] = xs[i]*ys[j] - xs[j]*ys[i]
	}
	if n == 2 {
		// An open segment, not a closed loop.
		st.Perimeter = edges[0]
		return st
	}
	st.Perimeter = floats.Sum(edges)
	st.Area = math.Abs(floats.Sum(cross)) / 2
	return st
}
