package vision

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	contours []Contour
	err      error
}

func (f fakeExtractor) ExternalContours(ctx context.Context, frame image.Image) ([]Contour, error) {
	return f.contours, f.err
}

// line rasterizes the segment from a to b, excluding b.
func line(a, b image.Point) []image.Point {
	steps := max(abs(b.X-a.X), abs(b.Y-a.Y))
	out := make([]image.Point, 0, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps)
		out = append(out, image.Pt(
			int(math.Round(float64(a.X)+t*float64(b.X-a.X))),
			int(math.Round(float64(a.Y)+t*float64(b.Y-a.Y))),
		))
	}
	return out
}

func polyline(vertices ...image.Point) Contour {
	var c Contour
	for i := range vertices {
		c = append(c, line(vertices[i], vertices[(i+1)%len(vertices)])...)
	}
	return c
}

func rect(x0, y0, x1, y1 int) Contour {
	return polyline(image.Pt(x0, y0), image.Pt(x1, y0), image.Pt(x1, y1), image.Pt(x0, y1))
}

func circle(cx, cy, r, n int) Contour {
	c := make(Contour, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		c = append(c, image.Pt(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a)))))
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func approx(c Contour) []image.Point {
	return ApproxPolyDP(c, DefaultEpsilonFactor*ArcLength(c, true), true)
}

func TestArcLength(t *testing.T) {
	square := []image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	require.InDelta(t, 40.0, ArcLength(square, true), 1e-9)
	require.InDelta(t, 30.0, ArcLength(square, false), 1e-9)
	require.Zero(t, ArcLength(square[:1], true))
}

func TestApproxPolyDP(t *testing.T) {
	t.Run("sparse rectangle keeps its corners", func(t *testing.T) {
		c := Contour{{10, 10}, {110, 10}, {110, 50}, {10, 50}}
		require.Len(t, approx(c), 4)
	})

	t.Run("dense rectangle collapses to four vertices", func(t *testing.T) {
		require.Len(t, approx(rect(10, 10, 110, 50)), 4)
	})

	t.Run("trace starting mid-edge does not add a vertex", func(t *testing.T) {
		c := rect(10, 10, 110, 50)
		rotated := append(append(Contour{}, c[50:]...), c[:50]...)
		poly := approx(rotated)
		require.Len(t, poly, 4)
		require.ElementsMatch(t, []image.Point{{10, 10}, {110, 10}, {110, 50}, {10, 50}}, poly)
	})

	t.Run("triangle has three vertices", func(t *testing.T) {
		c := polyline(image.Pt(0, 0), image.Pt(100, 0), image.Pt(50, 80))
		require.Len(t, approx(c), 3)
	})

	t.Run("circle is not a quadrilateral", func(t *testing.T) {
		require.Greater(t, len(approx(circle(100, 100, 50, 64))), 4)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		require.Len(t, ApproxPolyDP(Contour{{1, 1}, {2, 2}}, 1, true), 2)
		require.Len(t, ApproxPolyDP(Contour{{3, 3}, {3, 3}, {3, 3}}, 1, true), 1)
	})

	t.Run("open curve keeps endpoints", func(t *testing.T) {
		c := Contour{{0, 0}, {5, 0}, {10, 0}, {10, 5}, {10, 10}}
		require.Equal(t, []image.Point{{0, 0}, {10, 0}, {10, 10}}, ApproxPolyDP(c, 0.5, false))
	})
}

func TestBoundingRect(t *testing.T) {
	r := BoundingRect([]image.Point{{10, 10}, {110, 10}, {110, 50}, {10, 50}})
	require.Equal(t, image.Rect(10, 10, 111, 51), r)
	require.Equal(t, 101, r.Dx())
	require.True(t, BoundingRect(nil).Empty())
}

func TestPolygonArea(t *testing.T) {
	require.InDelta(t, 100.0, PolygonArea([]image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}), 1e-9)
	require.InDelta(t, 100.0, PolygonArea([]image.Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}), 1e-9)
}

func TestPlateLocator(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 400, 200))
	triangle := polyline(image.Pt(5, 5), image.Pt(60, 5), image.Pt(30, 50))
	small := rect(20, 100, 80, 130)
	large := rect(150, 40, 350, 120)
	contours := []Contour{circle(300, 160, 30, 48), triangle, small, large}

	t.Run("first quadrilateral in detection order wins", func(t *testing.T) {
		l := NewPlateLocator(fakeExtractor{contours: contours}, FirstQuadrilateral, DefaultEpsilonFactor)
		region, ok, err := l.Locate(context.Background(), frame)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, image.Rect(20, 100, 81, 131), region)
	})

	t.Run("largest policy can be swapped in", func(t *testing.T) {
		l := NewPlateLocator(fakeExtractor{contours: contours}, LargestQuadrilateral, DefaultEpsilonFactor)
		region, ok, err := l.Locate(context.Background(), frame)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, image.Rect(150, 40, 351, 121), region)
	})

	t.Run("no quadrilateral means no candidate", func(t *testing.T) {
		l := NewPlateLocator(fakeExtractor{contours: []Contour{triangle, circle(100, 100, 40, 64)}}, nil, 0)
		_, ok, err := l.Locate(context.Background(), frame)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("no contours", func(t *testing.T) {
		l := NewPlateLocator(fakeExtractor{}, nil, 0)
		_, ok, err := l.Locate(context.Background(), frame)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("region is clipped to the frame", func(t *testing.T) {
		l := NewPlateLocator(fakeExtractor{contours: []Contour{rect(350, 150, 450, 250)}}, nil, 0)
		region, ok, err := l.Locate(context.Background(), frame)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, image.Rect(350, 150, 400, 200), region)
	})

	t.Run("extractor failure is surfaced", func(t *testing.T) {
		boom := errors.New("camera buffer corrupt")
		l := NewPlateLocator(fakeExtractor{err: boom}, nil, 0)
		_, _, err := l.Locate(context.Background(), frame)
		require.ErrorIs(t, err, boom)
	})
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"", "first", "largest"} {
		p, err := PolicyByName(name)
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	_, err := PolicyByName("aspect")
	require.Error(t, err)
}
