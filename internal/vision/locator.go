package vision

import (
	"context"
	"fmt"
	"image"
)

// DefaultEpsilonFactor is the polygon tolerance as a fraction of contour perimeter.
const DefaultEpsilonFactor = 0.02

// ContourExtractor traces the external contours of edge regions in a frame,
// returned in detection order.
type ContourExtractor interface {
	ExternalContours(ctx context.Context, frame image.Image) ([]Contour, error)
}

// Candidate is one traced contour together with its simplified polygon.
type Candidate struct {
	Index   int
	Contour Contour
	Polygon []image.Point
}

// SelectionPolicy picks the plate candidate, or reports false when none qualifies.
type SelectionPolicy func(candidates []Candidate) (Candidate, bool)

// FirstQuadrilateral selects the first candidate, in detection order, whose
// polygon has exactly four vertices. No ranking by area or aspect ratio.
func FirstQuadrilateral(candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if len(c.Polygon) == 4 {
			return c, true
		}
	}
	return Candidate{}, false
}

// LargestQuadrilateral selects the four-vertex candidate with the largest
// polygon area; ties keep detection order.
func LargestQuadrilateral(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	bestArea, found := -1.0, false
	for _, c := range candidates {
		if len(c.Polygon) != 4 {
			continue
		}
		if area := PolygonArea(c.Polygon); area > bestArea {
			best, bestArea, found = c, area, true
		}
	}
	return best, found
}

// PolicyByName maps a configuration value to a selection policy.
func PolicyByName(name string) (SelectionPolicy, error) {
	switch name {
	case "", "first":
		return FirstQuadrilateral, nil
	case "largest":
		return LargestQuadrilateral, nil
	default:
		return nil, fmt.Errorf("vision: unknown selection policy %q", name)
	}
}

type PlateLocator struct {
	extractor     ContourExtractor
	policy        SelectionPolicy
	epsilonFactor float64
}

func NewPlateLocator(extractor ContourExtractor, policy SelectionPolicy, epsilonFactor float64) *PlateLocator {
	if policy == nil {
		policy = FirstQuadrilateral
	}
	if epsilonFactor <= 0 {
		epsilonFactor = DefaultEpsilonFactor
	}
	return &PlateLocator{extractor: extractor, policy: policy, epsilonFactor: epsilonFactor}
}

// Locate returns the frame region most likely to hold a plate. The boolean is
// false when no contour passes the policy.
func (l *PlateLocator) Locate(ctx context.Context, frame image.Image) (image.Rectangle, bool, error) {
	contours, err := l.extractor.ExternalContours(ctx, frame)
	if err != nil {
		return image.Rectangle{}, false, fmt.Errorf("extract contours: %w", err)
	}

	candidates := make([]Candidate, 0, len(contours))
	for i, c := range contours {
		epsilon := l.epsilonFactor * ArcLength(c, true)
		candidates = append(candidates, Candidate{Index: i, Contour: c, Polygon: ApproxPolyDP(c, epsilon, true)})
	}

	chosen, ok := l.policy(candidates)
	if !ok {
		return image.Rectangle{}, false, nil
	}
	region := BoundingRect(chosen.Polygon).Intersect(frame.Bounds())
	if region.Empty() {
		return image.Rectangle{}, false, nil
	}
	return region, true, nil
}
