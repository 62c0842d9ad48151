// Package geom holds the 2D primitives shared by meshing, boundary mapping
// and post-processing.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// DefaultTolerance is the absolute tolerance of the point-on-segment test.
const DefaultTolerance = 1e-6

type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross is the z component of the 3D cross product of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// MarshalJSON encodes a point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return fmt.Errorf("point must be [x, y]: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// OnSegment reports whether p lies on the closed segment ab. The collinearity
// test is absolute on the raw cross product |(b-a) x (p-a)| <= tol, and the
// projection (p-a).(b-a) must fall within [0, |b-a|^2].
func OnSegment(p, a, b Point, tol float64) bool {
	ab := b.Sub(a)
	ap := p.Sub(a)
	if math.Abs(ab.Cross(ap)) > tol {
		return false
	}
	dot := ap.Dot(ab)
	return dot >= 0 && dot <= ab.Dot(ab)
}

// Project returns the scalar projection of p onto the direction a->b,
// measured from a in units of |b-a|^2.
func Project(p, a, b Point) float64 {
	ab := b.Sub(a)
	return p.Sub(a).Dot(ab)
}

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	Min, Max Point
}

// BoundsOf returns the bounding box of pts. An empty slice gives a zero box.
func BoundsOf(pts []Point) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Expand grows the box by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	return Bounds{
		Min: Point{b.Min.X - d, b.Min.Y - d},
		Max: Point{b.Max.X + d, b.Max.Y + d},
	}
}

// OnBoundary reports whether p lies on the rectangle outline within tol.
func (b Bounds) OnBoundary(p Point, tol float64) bool {
	inX := p.X >= b.Min.X-tol && p.X <= b.Max.X+tol
	inY := p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol
	if !inX || !inY {
		return false
	}
	return math.Abs(p.X-b.Min.X) <= tol || math.Abs(p.X-b.Max.X) <= tol ||
		math.Abs(p.Y-b.Min.Y) <= tol || math.Abs(p.Y-b.Max.Y) <= tol
}
