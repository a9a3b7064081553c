package vectra

import "math"

// Simplify reduces the point count of a contour with the Douglas-Peucker
// algorithm. For the range between two anchor points the point with maximum
// perpendicular distance to the anchor line is found; if it exceeds
// tolerance the point is kept and both halves are simplified recursively,
// otherwise the whole range collapses to the anchors.
//
// The first and last point of the input are always preserved. Inputs with
// two points or fewer are returned unchanged. Tolerance is in pixel units.
func Simplify(contour Contour, tolerance float64) Contour {
	if len(contour) <= 2 || tolerance <= 0 {
		return contour
	}

	keep := make([]bool, len(contour))
	keep[0] = true
	keep[len(contour)-1] = true
	douglasPeucker(contour, 0, len(contour)-1, tolerance, keep)

	out := make(Contour, 0, len(contour))
	for i, k := range keep {
		if k {
			out = append(out, contour[i])
		}
	}
	return out
}

func douglasPeucker(contour Contour, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}

	maxDist, maxIdx := 0.0, -1
	for i := first + 1; i < last; i++ {
		d := perpendicularDistance(contour[i], contour[first], contour[last])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxIdx >= 0 && maxDist > tolerance {
		keep[maxIdx] = true
		douglasPeucker(contour, first, maxIdx, tolerance, keep)
		douglasPeucker(contour, maxIdx, last, tolerance, keep)
	}
}

// perpendicularDistance returns the distance from p to the line through a
// and b, falling back to point distance when the anchors coincide.
func perpendicularDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
