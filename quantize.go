package vectra

import (
	"math"
	"math/rand"
	"sort"
)

// PaletteEntry is one representative color produced by quantization,
// weighted by the number of pixels assigned to it.
type PaletteEntry struct {
	R, G, B    uint8
	PixelCount uint64
	ID         string
}

const (
	minPaletteSize = 2
	maxPaletteSize = 256

	// maxClusterSamples bounds the number of pixels fed into clustering.
	// Larger images are subsampled with a fixed stride; the final
	// pixel-to-palette assignment still covers the full buffer.
	maxClusterSamples = 10000

	// maxLloydIterations bounds the k-means refinement loop.
	maxLloydIterations = 16
)

type rgb struct {
	r, g, b uint8
}

// colorBox is one region of the RGB space during median-cut partitioning.
type colorBox struct {
	pixels []rgb

	rMin, rMax, gMin, gMax, bMin, bMax int
}

// Quantizer reduces the color space of a PixelBuffer to a bounded palette.
//
// The base algorithm is a median-cut partition: the box with the widest
// channel range is split at the median of that channel until MaxColors
// boxes exist. With Refine enabled the median-cut means seed a k-means++
// initialization followed by bounded Lloyd iteration.
type Quantizer struct {
	// MaxColors is clamped to [2, 256].
	MaxColors int

	// Refine enables k-means refinement of the median-cut result.
	Refine bool

	// Seed drives the k-means++ centroid choice. A fixed seed makes
	// refinement reproducible.
	Seed int64
}

// Quantize returns the palette for buf. Fewer entries than MaxColors are
// returned when the image holds fewer distinct colors. A buffer without a
// single opaque pixel yields a STAGE_ERROR.
func (q *Quantizer) Quantize(buf *PixelBuffer) ([]PaletteEntry, error) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 {
		return nil, NewError(ErrCodeInvalidInput, "empty pixel buffer")
	}
	maxColors := q.MaxColors
	if maxColors < minPaletteSize {
		maxColors = minPaletteSize
	}
	if maxColors > maxPaletteSize {
		maxColors = maxPaletteSize
	}

	samples := q.collectSamples(buf)
	if len(samples) == 0 {
		return nil, NewError(ErrCodeStage, "no opaque pixels to quantize")
	}

	centroids := medianCut(samples, maxColors)
	if q.Refine && len(centroids) > 1 {
		centroids = q.kmeans(samples, centroids)
	}
	centroids = dedupeCentroids(centroids)

	entries := make([]PaletteEntry, 0, len(centroids))
	counts := countNearest(samples, centroids)
	for i, c := range centroids {
		entries = append(entries, PaletteEntry{
			R:          uint8(math.Round(c[0])),
			G:          uint8(math.Round(c[1])),
			B:          uint8(math.Round(c[2])),
			PixelCount: counts[i],
			ID:         newLayerID(),
		})
	}
	return entries, nil
}

// collectSamples gathers the opaque pixels, subsampling with a fixed stride
// when the buffer exceeds the clustering budget.
func (q *Quantizer) collectSamples(buf *PixelBuffer) []rgb {
	total := buf.Width * buf.Height
	stride := 1
	if total > maxClusterSamples {
		stride = total / maxClusterSamples
	}

	samples := make([]rgb, 0, maxClusterSamples+1)
	for i := 0; i < total; i += stride {
		if !buf.Opaque(i) {
			continue
		}
		o := i * 4
		samples = append(samples, rgb{buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2]})
	}
	return samples
}

// medianCut partitions the samples into up to maxColors boxes and returns
// the mean color of each box.
func medianCut(samples []rgb, maxColors int) [][3]float64 {
	initial := &colorBox{pixels: samples}
	initial.computeRange()
	boxes := []*colorBox{initial}

	for len(boxes) < maxColors {
		// Split the box with the widest channel range.
		var toSplit *colorBox
		splitIdx, maxRange := -1, 0
		for i, box := range boxes {
			if len(box.pixels) < 2 {
				continue
			}
			r := box.widestRange()
			if r > maxRange {
				maxRange = r
				toSplit = box
				splitIdx = i
			}
		}
		if toSplit == nil || maxRange == 0 {
			break
		}

		left, right := toSplit.split()
		boxes[splitIdx] = left
		boxes = append(boxes, right)
	}

	centroids := make([][3]float64, 0, len(boxes))
	for _, box := range boxes {
		if len(box.pixels) == 0 {
			continue
		}
		centroids = append(centroids, box.mean())
	}
	return centroids
}

func (b *colorBox) computeRange() {
	if len(b.pixels) == 0 {
		return
	}
	b.rMin, b.rMax = 255, 0
	b.gMin, b.gMax = 255, 0
	b.bMin, b.bMax = 255, 0
	for _, p := range b.pixels {
		b.rMin, b.rMax = min(b.rMin, int(p.r)), max(b.rMax, int(p.r))
		b.gMin, b.gMax = min(b.gMin, int(p.g)), max(b.gMax, int(p.g))
		b.bMin, b.bMax = min(b.bMin, int(p.b)), max(b.bMax, int(p.b))
	}
}

func (b *colorBox) widestRange() int {
	return max(b.rMax-b.rMin, max(b.gMax-b.gMin, b.bMax-b.bMin))
}

// split sorts the box along its widest channel and cuts it at the median.
func (b *colorBox) split() (*colorBox, *colorBox) {
	rRange := b.rMax - b.rMin
	gRange := b.gMax - b.gMin
	bRange := b.bMax - b.bMin

	var key func(p rgb) uint8
	switch {
	case rRange >= gRange && rRange >= bRange:
		key = func(p rgb) uint8 { return p.r }
	case gRange >= rRange && gRange >= bRange:
		key = func(p rgb) uint8 { return p.g }
	default:
		key = func(p rgb) uint8 { return p.b }
	}

	sort.Slice(b.pixels, func(i, j int) bool {
		return key(b.pixels[i]) < key(b.pixels[j])
	})

	// Cut at the value boundary nearest the median so that equal channel
	// values never straddle two boxes. Without this an unbalanced
	// two-color image would blend both colors into one box mean.
	median := len(b.pixels) / 2
	lo := median
	for lo > 0 && key(b.pixels[lo]) == key(b.pixels[lo-1]) {
		lo--
	}
	hi := median
	for hi < len(b.pixels) && key(b.pixels[hi]) == key(b.pixels[hi-1]) {
		hi++
	}
	switch {
	case lo == 0:
		median = hi
	case hi == len(b.pixels):
		median = lo
	case median-lo <= hi-median:
		median = lo
	default:
		median = hi
	}

	left := &colorBox{pixels: b.pixels[:median]}
	right := &colorBox{pixels: b.pixels[median:]}
	left.computeRange()
	right.computeRange()
	return left, right
}

func (b *colorBox) mean() [3]float64 {
	var rSum, gSum, bSum float64
	for _, p := range b.pixels {
		rSum += float64(p.r)
		gSum += float64(p.g)
		bSum += float64(p.b)
	}
	n := float64(len(b.pixels))
	return [3]float64{rSum / n, gSum / n, bSum / n}
}

// kmeans refines the median-cut result: k-means++ style seeding over the
// samples followed by Lloyd iteration until assignments settle or the
// iteration budget runs out.
func (q *Quantizer) kmeans(samples []rgb, seeds [][3]float64) [][3]float64 {
	k := len(seeds)
	rng := rand.New(rand.NewSource(q.Seed))

	centroids := make([][3]float64, 0, k)
	first := samples[rng.Intn(len(samples))]
	centroids = append(centroids, [3]float64{float64(first.r), float64(first.g), float64(first.b)})

	// Each further centroid is picked with probability proportional to the
	// squared distance from its nearest existing centroid.
	dists := make([]float64, len(samples))
	for len(centroids) < k {
		var total float64
		for i, s := range samples {
			dists[i] = nearestDistSq(s, centroids)
			total += dists[i]
		}
		if total == 0 {
			break
		}
		target := rng.Float64() * total
		idx := len(samples) - 1
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		s := samples[idx]
		centroids = append(centroids, [3]float64{float64(s.r), float64(s.g), float64(s.b)})
	}

	assign := make([]int, len(samples))
	for i := range assign {
		assign[i] = -1
	}
	for iter := 0; iter < maxLloydIterations; iter++ {
		changed := false
		for i, s := range samples {
			best := nearestCentroid(s, centroids)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][3]float64, len(centroids))
		counts := make([]float64, len(centroids))
		for i, s := range samples {
			c := assign[i]
			sums[c][0] += float64(s.r)
			sums[c][1] += float64(s.g)
			sums[c][2] += float64(s.b)
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			centroids[c] = [3]float64{
				sums[c][0] / counts[c],
				sums[c][1] / counts[c],
				sums[c][2] / counts[c],
			}
		}
	}
	return centroids
}

func distSq(s rgb, c [3]float64) float64 {
	dr := float64(s.r) - c[0]
	dg := float64(s.g) - c[1]
	db := float64(s.b) - c[2]
	return dr*dr + dg*dg + db*db
}

func nearestDistSq(s rgb, centroids [][3]float64) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		if d := distSq(s, c); d < best {
			best = d
		}
	}
	return best
}

func nearestCentroid(s rgb, centroids [][3]float64) int {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range centroids {
		if d := distSq(s, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func countNearest(samples []rgb, centroids [][3]float64) []uint64 {
	counts := make([]uint64, len(centroids))
	for _, s := range samples {
		counts[nearestCentroid(s, centroids)]++
	}
	return counts
}

// dedupeCentroids merges centroids that round to the same RGB triple, which
// happens when the image holds fewer distinct colors than requested.
func dedupeCentroids(centroids [][3]float64) [][3]float64 {
	seen := make(map[[3]int]struct{}, len(centroids))
	out := centroids[:0]
	for _, c := range centroids {
		key := [3]int{
			int(math.Round(c[0])),
			int(math.Round(c[1])),
			int(math.Round(c[2])),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
