package geometry

import "math"

// Point is a 2D point in normalized image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by dx, dy.
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// AngleAt returns the angle in degrees, in [0, 180], formed at vertex by the rays
// towards p1 and p3.
// If either ray has zero length (or any coordinate is not finite) the angle is
// undefined and NaN is returned. NaN fails every ordered comparison, so callers
// using it against a threshold get false without special casing.
func AngleAt(p1, vertex, p3 Point) float64 {
	v1x, v1y := p1.X-vertex.X, p1.Y-vertex.Y
	v2x, v2y := p3.X-vertex.X, p3.Y-vertex.Y

	mag1 := math.Hypot(v1x, v1y)
	mag2 := math.Hypot(v2x, v2y)
	if mag1 == 0 || mag2 == 0 || !isFinite(mag1) || !isFinite(mag2) {
		return math.NaN()
	}

	cos := (v1x*v2x + v1y*v2y) / (mag1 * mag2)
	// rounding can push collinear vectors slightly outside acos' domain
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
