package vectra

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorMask_SetGetCount(t *testing.T) {
	assert := assert.New(t)

	mask := NewColorMask(9, 7)
	assert.Equal(0, mask.Count())

	for _, i := range []int{0, 1, 62, 63, 64, 9*7 - 1} {
		mask.Set(i)
		assert.True(mask.Get(i))
	}
	assert.Equal(6, mask.Count())
	assert.False(mask.Get(2))
}

func TestColorMask_AtTreatsOutOfBoundsAsUnoccupied(t *testing.T) {
	assert := assert.New(t)

	mask := NewColorMask(4, 4)
	mask.Set(0)

	assert.True(mask.At(0, 0))
	assert.False(mask.At(-1, 0))
	assert.False(mask.At(0, -1))
	assert.False(mask.At(4, 0))
	assert.False(mask.At(0, 4))
}

func TestAssignPalette_NearestEntryWins(t *testing.T) {
	assert := assert.New(t)

	buf := bufferFromColors(t, 2, 1, func(x, y int) color.NRGBA {
		if x == 0 {
			return color.NRGBA{250, 5, 5, 255}
		}
		return color.NRGBA{5, 5, 250, 255}
	})
	palette := []PaletteEntry{
		{R: 255, G: 0, B: 0},
		{R: 0, G: 0, B: 255},
	}

	assign := AssignPalette(buf, palette)
	assert.Equal([]int{0, 1}, assign)
}

func TestAssignPalette_TiesGoToFirstEntry(t *testing.T) {
	assert := assert.New(t)

	buf := bufferFromColors(t, 1, 1, func(x, y int) color.NRGBA {
		return color.NRGBA{128, 128, 128, 255}
	})
	// Both entries are equidistant from mid gray.
	palette := []PaletteEntry{
		{R: 130, G: 128, B: 128},
		{R: 126, G: 128, B: 128},
	}

	assign := AssignPalette(buf, palette)
	assert.Equal([]int{0}, assign)
}

func TestAssignPalette_TransparentPixelsGetNoEntry(t *testing.T) {
	assert := assert.New(t)

	buf := bufferFromColors(t, 2, 2, func(x, y int) color.NRGBA {
		if x == y {
			return color.NRGBA{255, 0, 0, 0}
		}
		return color.NRGBA{255, 0, 0, 255}
	})
	palette := []PaletteEntry{{R: 255}}

	assign := AssignPalette(buf, palette)
	assert.Equal([]int{-1, 0, 0, -1}, assign)

	mask := BuildMask(buf, 0, assign)
	assert.Equal(2, mask.Count())
	assert.False(mask.At(0, 0))
	assert.True(mask.At(1, 0))
}

func TestBuildMask_SelectsOnlyTheRequestedEntry(t *testing.T) {
	assert := assert.New(t)

	buf := bufferFromColors(t, 4, 1, func(x, y int) color.NRGBA {
		if x%2 == 0 {
			return color.NRGBA{0, 0, 0, 255}
		}
		return color.NRGBA{255, 255, 255, 255}
	})
	palette := []PaletteEntry{{}, {R: 255, G: 255, B: 255}}
	assign := AssignPalette(buf, palette)

	black := BuildMask(buf, 0, assign)
	white := BuildMask(buf, 1, assign)
	assert.Equal(2, black.Count())
	assert.Equal(2, white.Count())
	assert.True(black.At(0, 0))
	assert.True(white.At(1, 0))
	assert.False(black.At(1, 0))
}
