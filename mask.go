package vectra

// ColorMask is a binary occupancy bitmap for one palette entry. Masks are
// short-lived: one exists per palette entry while its contours are traced
// and is discarded afterwards.
type ColorMask struct {
	Width  int
	Height int
	bits   []uint64
}

// NewColorMask returns an empty mask with the given dimensions.
func NewColorMask(width, height int) *ColorMask {
	return &ColorMask{
		Width:  width,
		Height: height,
		bits:   make([]uint64, (width*height+63)/64),
	}
}

// Set marks the pixel at index i as occupied.
func (m *ColorMask) Set(i int) {
	m.bits[i/64] |= 1 << (uint(i) % 64)
}

// Get reports whether the pixel at index i is occupied.
func (m *ColorMask) Get(i int) bool {
	return m.bits[i/64]&(1<<(uint(i)%64)) != 0
}

// At reports whether the pixel at (x, y) is occupied. Coordinates outside
// the mask count as unoccupied.
func (m *ColorMask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Get(y*m.Width + x)
}

// Count returns the number of occupied pixels.
func (m *ColorMask) Count() int {
	n := 0
	for _, w := range m.bits {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// AssignPalette maps every pixel of buf to the index of its nearest palette
// entry by squared RGB distance. Ties go to the first entry in palette
// order, so the assignment is deterministic. Transparent pixels get -1 and
// never appear in any mask.
func AssignPalette(buf *PixelBuffer, palette []PaletteEntry) []int {
	assign := make([]int, buf.Width*buf.Height)
	for i := range assign {
		if !buf.Opaque(i) {
			assign[i] = -1
			continue
		}
		o := i * 4
		r, g, b := int(buf.Pix[o]), int(buf.Pix[o+1]), int(buf.Pix[o+2])

		best, bestDist := 0, int(^uint(0)>>1)
		for pi, entry := range palette {
			dr := r - int(entry.R)
			dg := g - int(entry.G)
			db := b - int(entry.B)
			dist := dr*dr + dg*dg + db*db
			if dist < bestDist {
				bestDist = dist
				best = pi
			}
		}
		assign[i] = best
	}
	return assign
}

// BuildMask derives the occupancy mask of one palette entry from a
// palette-wide assignment produced by AssignPalette.
func BuildMask(buf *PixelBuffer, entryIndex int, assign []int) *ColorMask {
	mask := NewColorMask(buf.Width, buf.Height)
	for i, a := range assign {
		if a == entryIndex {
			mask.Set(i)
		}
	}
	return mask
}
