// Package geometry provides the planar math used by marker alignment and zone classification.
package geometry

import (
	"errors"
	"math"
)

// ErrEmpty is returned when an operation needs at least one point.
var ErrEmpty = errors.New("geometry: no points")

// Point is a 2D point. Pixel and reference-space coordinates share this type;
// y grows downward as in image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is the ordered corner set of a fiducial marker.
type Quad [4]Point

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// PointInPolygon reports whether p lies inside poly using ray casting with the
// odd-crossing rule.
//
// Edges are treated half-open: a point on a minimum-x or minimum-y edge of an
// axis-aligned polygon counts as inside, a point on a maximum-x or maximum-y
// edge counts as outside. Polygons with fewer than 3 vertices or zero area
// contain no points.
func PointInPolygon(p Point, poly []Point) bool {
	if len(poly) < 3 || PolygonArea(poly) == 0 {
		return false
	}

	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		pi, pj := poly[i], poly[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xCross := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// PolygonArea returns the absolute area of poly using the shoelace formula.
func PolygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}

	var area float64
	for i := range poly {
		j := (i + 1) % len(poly)
		area += poly[i].X * poly[j].Y
		area -= poly[j].X * poly[i].Y
	}
	return math.Abs(area) / 2
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmpty
	}

	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}, nil
}

// Center returns the centroid of the four corners.
func (q Quad) Center() Point {
	c, _ := Centroid(q[:])
	return c
}

// Size estimates the side length of the quad as the mean of the
// corner0->corner1 and corner0->corner3 distances.
func (q Quad) Size() float64 {
	width := Distance(q[0], q[1])
	height := Distance(q[0], q[3])
	return (width + height) / 2
}

// AverageQuadSize returns the mean Size of quads, or 0 when there are none.
func AverageQuadSize(quads []Quad) float64 {
	if len(quads) == 0 {
		return 0
	}

	var total float64
	for _, q := range quads {
		total += q.Size()
	}
	return total / float64(len(quads))
}

// Bounds returns the bounding box of points. An empty slice yields a zero Rect.
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}

	r := Rect{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// Size is a width/height pair, used for frame and reference canvas dimensions.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale maps p from a canvas of size from into a canvas of size to.
// A zero-sized source maps everything to the origin.
func Scale(p Point, from, to Size) Point {
	if from.Width == 0 || from.Height == 0 {
		return Point{}
	}
	return Point{
		X: p.X / from.Width * to.Width,
		Y: p.Y / from.Height * to.Height,
	}
}
