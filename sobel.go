package vectra

import "math"

type kernel [][]int32

var (
	kernelX = kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}

	kernelY = kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// DetectEdges flags the pixels whose Sobel gradient magnitude exceeds
// threshold. The buffer is converted to BT.601 luma first and the 3x3
// kernels are applied on both axes. Border pixels have no full
// neighborhood and are never flagged.
//
// The edge map does not gate tracing; the engine consults it when deciding
// whether a small region is worth keeping during recovery.
// See https://en.wikipedia.org/wiki/Sobel_operator
func DetectEdges(buf *PixelBuffer, threshold float64) []bool {
	edges := make([]bool, buf.Width*buf.Height)
	if buf.Width < 3 || buf.Height < 3 {
		return edges
	}

	gray := buf.Grayscale()
	var sumX, sumY int32

	for y := 1; y < buf.Height-1; y++ {
		for x := 1; x < buf.Width-1; x++ {
			sumX, sumY = 0, 0
			for ky := 0; ky < 3; ky++ {
				for kx := 0; kx < 3; kx++ {
					px := int32(gray[(y+ky-1)*buf.Width+(x+kx-1)])
					sumX += px * kernelX[ky][kx]
					sumY += px * kernelY[ky][kx]
				}
			}
			magnitude := math.Sqrt(float64(sumX*sumX) + float64(sumY*sumY))
			if magnitude > threshold {
				edges[y*buf.Width+x] = true
			}
		}
	}
	return edges
}
