// Package vision holds the geometric half of plate detection: polygon
// approximation of edge contours and the policy that picks the plate region.
// Raster work (blur, edges, contour tracing) lives in vision/opencv.
package vision

import (
	"image"
	"math"
)

// Contour is an ordered list of boundary points as produced by contour tracing.
type Contour []image.Point

// ArcLength returns the perimeter of a curve, including the closing segment when closed is set.
func ArcLength(curve []image.Point, closed bool) float64 {
	if len(curve) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(curve); i++ {
		total += dist(curve[i-1], curve[i])
	}
	if closed {
		total += dist(curve[len(curve)-1], curve[0])
	}
	return total
}

// ApproxPolyDP simplifies a curve with the Douglas-Peucker algorithm so that no
// dropped point lies farther than epsilon from the result. Closed curves are
// split at a pair of mutually distant points first, so the starting point of
// the trace does not survive as a spurious vertex.
func ApproxPolyDP(curve []image.Point, epsilon float64, closed bool) []image.Point {
	n := len(curve)
	if n < 3 {
		return append([]image.Point(nil), curve...)
	}
	if !closed {
		return simplify(curve, epsilon)
	}

	a := 0
	b := farthestFrom(curve, a)
	a = farthestFrom(curve, b)
	b = farthestFrom(curve, a)
	if a == b {
		return []image.Point{curve[a]}
	}

	first := simplify(arc(curve, a, b), epsilon)
	second := simplify(arc(curve, b, a), epsilon)

	out := make([]image.Point, 0, len(first)+len(second)-2)
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

// BoundingRect returns the smallest pixel rectangle containing every point.
// Max is exclusive, so a single point yields a 1x1 rectangle.
func BoundingRect(points []image.Point) image.Rectangle {
	if len(points) == 0 {
		return image.Rectangle{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// PolygonArea uses the shoelace formula; the sign of the winding is dropped.
func PolygonArea(poly []image.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	sum := 0
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

func simplify(pts []image.Point, epsilon float64) []image.Point {
	if len(pts) < 3 {
		return append([]image.Point(nil), pts...)
	}
	first, last := pts[0], pts[len(pts)-1]

	idx, maxDist := 0, -1.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], first, last); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []image.Point{first, last}
	}

	left := simplify(pts[:idx+1], epsilon)
	right := simplify(pts[idx:], epsilon)
	return append(left[:len(left)-1], right...)
}

// arc returns the points from index from to index to inclusive, wrapping around the end.
func arc(curve []image.Point, from, to int) []image.Point {
	n := len(curve)
	out := make([]image.Point, 0, (to-from+n)%n+1)
	for i := from; ; i = (i + 1) % n {
		out = append(out, curve[i])
		if i == to {
			return out
		}
	}
}

func farthestFrom(curve []image.Point, origin int) int {
	best, bestDist := origin, 0.0
	for i, p := range curve {
		if d := dist(curve[origin], p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// segmentDistance is the distance from p to the line through a and b.
func segmentDistance(p, a, b image.Point) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		return dist(p, a)
	}
	return math.Abs(dx*float64(a.Y-p.Y)-float64(a.X-p.X)*dy) / length
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}
