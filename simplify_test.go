package vectra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify_ShortInputsAreReturnedUnchanged(t *testing.T) {
	assert := assert.New(t)

	for _, c := range []Contour{
		nil,
		{{0, 0}},
		{{0, 0}, {5, 5}},
	} {
		out := Simplify(c, 1.0)
		assert.Equal(c, out)
	}
}

func TestSimplify_ZeroToleranceDisablesSimplification(t *testing.T) {
	assert := assert.New(t)

	c := Contour{{0, 0}, {1, 0.4}, {2, 0}, {3, 0.4}, {4, 0}}
	assert.Equal(c, Simplify(c, 0))
	assert.Equal(c, Simplify(c, -1))
}

func TestSimplify_CollinearPointsCollapseToEndpoints(t *testing.T) {
	assert := assert.New(t)

	c := Contour{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}}
	out := Simplify(c, 0.5)

	assert.Len(out, 2)
	assert.Equal(Point{0, 0}, out[0])
	assert.Equal(Point{4, 4}, out[1])
}

func TestSimplify_EndpointsAlwaysSurvive(t *testing.T) {
	assert := assert.New(t)

	c := Contour{{3, 7}, {4, 7.1}, {5, 6.9}, {6, 7}, {9, 2}}
	out := Simplify(c, 100)

	assert.GreaterOrEqual(len(out), 2)
	assert.Equal(c[0], out[0])
	assert.Equal(c[len(c)-1], out[len(out)-1])
}

func TestSimplify_DeviationAboveToleranceIsKept(t *testing.T) {
	assert := assert.New(t)

	// The middle point sits 5 units off the baseline.
	c := Contour{{0, 0}, {5, 5}, {10, 0}}
	out := Simplify(c, 1.0)
	assert.Len(out, 3)

	out = Simplify(c, 6.0)
	assert.Len(out, 2)
}

func TestSimplify_PointCountIsMonotoneInTolerance(t *testing.T) {
	assert := assert.New(t)

	c := Contour{
		{0, 0}, {1, 2}, {2, 1}, {3, 4}, {4, 0},
		{5, 3}, {6, 1}, {7, 5}, {8, 2}, {9, 0},
	}

	prev := len(c)
	for _, tol := range []float64{0.1, 0.5, 1.0, 2.0, 4.0, 8.0} {
		n := len(Simplify(c, tol))
		assert.LessOrEqual(n, prev, "tolerance %v grew the contour", tol)
		prev = n
	}
}
