package vectra

// Point is a pixel-grid coordinate. Values are integer-valued in practice
// but stored as floats for the simplification math.
type Point struct {
	X, Y float64
}

// Contour is an ordered point sequence approximating a mask boundary. The
// sequence is implicitly closed: the last point connects back to the first.
//
// Point order follows BFS enqueue order, not a topological boundary walk,
// so consecutive points are not guaranteed to be geometric neighbors.
// Consumers must treat the contour as a point multiset when order matters.
type Contour []Point

// defaultMinContourPoints drops single-pixel specks and two-pixel slivers.
const defaultMinContourPoints = 3

// Tracer extracts one contour per 4-connected component of a mask.
type Tracer struct {
	// MinPoints discards contours with fewer boundary points as noise.
	// Zero means the default.
	MinPoints int
}

// Trace walks every connected component of the mask with a breadth-first
// search. A pixel is recorded into the contour when at least one of its
// 4-neighbors is unoccupied or off-grid; interior pixels are visited and
// marked but not recorded. Every occupied pixel is processed exactly once,
// so a full trace is O(pixels) and deterministic.
func (t *Tracer) Trace(mask *ColorMask) []Contour {
	minPoints := t.MinPoints
	if minPoints <= 0 {
		minPoints = defaultMinContourPoints
	}

	total := mask.Width * mask.Height
	visited := make([]bool, total)
	var contours []Contour
	queue := make([]int, 0, 64)

	for start := 0; start < total; start++ {
		if visited[start] || !mask.Get(start) {
			continue
		}

		var contour Contour
		queue = append(queue[:0], start)
		visited[start] = true

		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]

			x, y := idx%mask.Width, idx/mask.Width
			if isBoundary(mask, x, y) {
				contour = append(contour, Point{X: float64(x), Y: float64(y)})
			}

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= mask.Width || ny >= mask.Height {
					continue
				}
				ni := ny*mask.Width + nx
				if visited[ni] || !mask.Get(ni) {
					continue
				}
				visited[ni] = true
				queue = append(queue, ni)
			}
		}

		if len(contour) >= minPoints {
			contours = append(contours, contour)
		}
	}
	return contours
}

// isBoundary reports whether the occupied pixel at (x, y) touches an
// unoccupied or off-grid 4-neighbor.
func isBoundary(mask *ColorMask, x, y int) bool {
	return !mask.At(x-1, y) || !mask.At(x+1, y) || !mask.At(x, y-1) || !mask.At(x, y+1)
}
