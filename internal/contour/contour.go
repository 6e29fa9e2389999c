// Package contour holds the ordered point set that outlines a region of
// interest on one slice.
package contour

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrIndex is returned when an operation addresses a point that does not exist.
var ErrIndex = errors.New("point index out of range")

// Point is a coordinate in the contour's native space, not screen pixels.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// MarshalJSON encodes the point as a two element array.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two element array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw [2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

// MarshalYAML encodes the point as a flow sequence.
func (p Point) MarshalYAML() (interface{}, error) {
	return []float64{p.X, p.Y}, nil
}

// Collection is an ordered contour. Order defines the polygon traversal.
// Indices are always dense; removing a point renumbers the ones after it.
type Collection struct {
	pts []Point
}

// New returns a collection holding a copy of pts.
func New(pts ...Point) *Collection {
	c := &Collection{pts: make([]Point, len(pts))}
	copy(c.pts, pts)
	return c
}

// Len reports the number of points.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pts)
}

// At returns the point at index i.
func (c *Collection) At(i int) (Point, error) {
	if i < 0 || i >= c.Len() {
		return Point{}, fmt.Errorf("at %d: %w", i, ErrIndex)
	}
	return c.pts[i], nil
}

// Append adds p after the last point.
func (c *Collection) Append(p Point) {
	c.pts = append(c.pts, p)
}

// Update replaces the point at index i.
func (c *Collection) Update(i int, p Point) error {
	if i < 0 || i >= c.Len() {
		return fmt.Errorf("update %d: %w", i, ErrIndex)
	}
	c.pts[i] = p
	return nil
}

// Remove deletes the point at index i and shifts later points down by one.
func (c *Collection) Remove(i int) error {
	if i < 0 || i >= c.Len() {
		return fmt.Errorf("remove %d: %w", i, ErrIndex)
	}
	c.pts = append(c.pts[:i], c.pts[i+1:]...)
	return nil
}

// Reset drops every point.
func (c *Collection) Reset() {
	c.pts = c.pts[:0]
}

// Points returns a copy of the points in order. It never returns nil.
func (c *Collection) Points() []Point {
	out := make([]Point, c.Len())
	if c != nil {
		copy(out, c.pts)
	}
	return out
}

// Clone returns an independent copy.
func (c *Collection) Clone() *Collection {
	return New(c.Points()...)
}

// Equal reports whether both collections hold the same points in the same order.
func (c *Collection) Equal(o *Collection) bool {
	if c.Len() != o.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if c.pts[i] != o.pts[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the collection as an array of [x, y] pairs. An empty
// collection encodes as [] rather than null.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Points())
}

// MarshalYAML encodes the collection as a sequence of [x, y] pairs.
func (c *Collection) MarshalYAML() (interface{}, error) {
	return c.Points(), nil
}
