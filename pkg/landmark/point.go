// Package landmark turns a 68-point facial landmark set into the eye and mouth
// signals used for drowsiness classification.
package landmark

import "math"

// Point2D is a landmark position in image pixel space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between a and b. Non-finite
// coordinates propagate into the result.
func Distance(a, b Point2D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Mean returns the component-wise average of points. An empty input yields NaN
// coordinates.
func Mean(points []Point2D) Point2D {
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sx / n, Y: sy / n}
}
