package vectra

import (
	"image"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
)

// ColorMode selects between full color quantization and a single
// luma-thresholded layer.
type ColorMode int

const (
	// ColorModeColor quantizes the image and emits one layer per palette
	// entry.
	ColorModeColor ColorMode = iota
	// ColorModeMonochrome bypasses quantization: pixels darker than the
	// luma threshold form one black layer.
	ColorModeMonochrome
)

// Default conversion parameters, applied when the corresponding Processor
// field is zero.
const (
	DefaultMaxColors         = 8
	DefaultSimplifyTolerance = 1.0
	DefaultMaxImageSize      = 1024
	DefaultMonoThreshold     = 128
	DefaultEdgeThreshold     = 60.0
)

// faceDetailFactor shrinks the simplification tolerance inside detected
// face regions.
const faceDetailFactor = 0.25

// Processor options. The zero value plus ColorMode/MaxColors is a working
// configuration; zero numeric fields fall back to the defaults above.
type Processor struct {
	ColorMode         ColorMode
	MaxColors         int
	SimplifyTolerance float64
	BlurRadius        int
	StrokeWidth       float64
	EnableLayers      bool
	LayerNaming       LayerNaming
	MaxImageSize      int
	Dialect           Dialect
	Refine            bool
	MonoThreshold     int
	MonoInvert        bool
	EdgeThreshold     float64
	MinRegionPoints   int
	FaceDetect        bool
	FaceAngle         float64
	Classifier        string
	Seed              int64

	// Logger receives diagnostics for absorbed stage failures. Nil
	// discards them.
	Logger *log.Logger

	// OnProgress is invoked at the fixed stage milestones with a
	// monotonically increasing percentage. It must not block.
	OnProgress func(stage string, percent int)

	busy    atomic.Bool
	lastPct int
}

// Vectorize converts a decoded image into a layered vector document.
//
// The pipeline runs pre-blur, optional downscale, quantization (or the
// monochrome threshold), per-color tracing and simplification, and layer
// assembly. Stage failures are absorbed: the engine retries quantization
// once with relaxed parameters and finally degrades to a single
// full-canvas layer, so any non-INVALID_INPUT call yields a renderable
// document. Only one conversion may be in flight per Processor; a second
// call returns a BUSY error.
func (p *Processor) Vectorize(img image.Image) (*VectorDocument, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, NewError(ErrCodeBusy, "a conversion is already in flight")
	}
	defer p.busy.Store(false)
	p.lastPct = 0

	logger := p.logger()
	start := time.Now()

	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, NewError(ErrCodeInvalidInput, "source image has no pixels")
	}
	p.progress("load", 5)

	buf, err := p.preprocess(img)
	if err != nil {
		return nil, err
	}
	p.progress("preprocess", 15)

	dialect := p.Dialect
	if !p.EnableLayers {
		// Editor-specific layer markers only matter when the caller wants
		// independently toggleable layers.
		dialect = DialectPlain
	}
	doc := &VectorDocument{Width: buf.Width, Height: buf.Height, Dialect: dialect}

	var faces []image.Rectangle
	if p.FaceDetect && p.Classifier != "" {
		faces, err = detectFaces(buf, p.Classifier, p.FaceAngle)
		if err != nil {
			logger.Warn("face detection skipped", "err", err)
		}
	}

	var layers []Layer
	if p.ColorMode == ColorModeMonochrome {
		layers = p.monochromeLayers(buf, faces)
	} else {
		layers, err = p.colorLayers(buf, faces, false)
		if err != nil {
			logger.Warn("quantization failed, retrying relaxed", "err", err)
		}
		if len(layers) == 0 {
			layers, err = p.colorLayers(buf, faces, true)
			if err != nil {
				logger.Warn("relaxed quantization failed", "err", err)
			}
		}
	}

	if len(layers) == 0 {
		logger.Warn("no traceable regions, emitting full-canvas layer")
		layers = []Layer{p.fallbackLayer(buf)}
	}
	doc.Layers = layers
	p.progress("assemble", 95)

	var paths, points int
	for _, l := range doc.Layers {
		paths += len(l.Paths)
		for _, c := range l.Paths {
			points += len(c)
		}
	}
	logger.Debug("vectorized image",
		"size", doc.Width*doc.Height,
		"layers", len(doc.Layers),
		"paths", paths,
		"points", points,
		"duration", time.Since(start).Round(time.Millisecond))
	return doc, nil
}

// Process decodes an image from r, vectorizes it and writes the serialized
// document to w. When even serialization degenerates, a minimal valid
// document is written instead of failing.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return WrapError(ErrCodeInvalidInput, err, "decoding source image")
	}

	doc, err := p.Vectorize(src)
	if err != nil {
		return err
	}

	s := Serializer{StrokeWidth: p.StrokeWidth}
	text, err := s.Serialize(doc)
	if err != nil {
		p.logger().Warn("serialization degenerated", "err", err)
		text = minimalDocument(doc.Width, doc.Height, "no drawable layers")
	}
	p.progress("serialize", 100)

	_, err = io.WriteString(w, text)
	return err
}

// preprocess applies the optional blur and the aspect-preserving downscale,
// then converts the result into the conversion-owned pixel buffer.
func (p *Processor) preprocess(img image.Image) (*PixelBuffer, error) {
	if p.BlurRadius > 0 {
		img = imaging.Blur(img, float64(p.BlurRadius))
	}

	maxSize := p.MaxImageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	if img.Bounds().Dx() > maxSize || img.Bounds().Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	return NewPixelBuffer(img)
}

// colorLayers runs quantize -> mask -> trace -> simplify per palette entry,
// largest pixel count first. The relaxed pass doubles the color budget,
// lowers the minimum region size and forces k-means refinement; the edge
// map rescues small but detailed regions that the region filter would
// otherwise discard.
func (p *Processor) colorLayers(buf *PixelBuffer, faces []image.Rectangle, relaxed bool) ([]Layer, error) {
	maxColors := p.MaxColors
	if maxColors <= 0 {
		maxColors = DefaultMaxColors
	}
	minPoints := p.MinRegionPoints
	if minPoints < defaultMinContourPoints {
		minPoints = defaultMinContourPoints
	}
	refine := p.Refine
	if relaxed {
		maxColors = min(maxColors*2, maxPaletteSize)
		minPoints = defaultMinContourPoints
		refine = true
	}

	q := &Quantizer{MaxColors: maxColors, Refine: refine, Seed: p.Seed}
	palette, err := q.Quantize(buf)
	if err != nil {
		return nil, err
	}
	p.logger().Debug("quantized palette",
		"colors", len(palette),
		"spread", paletteSpread(palette),
		"relaxed", relaxed)
	p.progress("quantize", 30)

	assign := AssignPalette(buf, palette)
	recountPalette(palette, assign)

	// Back-to-front: the dominant color is painted first so smaller
	// regions render on top of it.
	order := make([]int, len(palette))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return palette[order[a]].PixelCount > palette[order[b]].PixelCount
	})

	edgeThreshold := p.EdgeThreshold
	if edgeThreshold <= 0 {
		edgeThreshold = DefaultEdgeThreshold
	}
	var edges []bool
	if minPoints > defaultMinContourPoints {
		edges = DetectEdges(buf, edgeThreshold)
	}

	tracer := &Tracer{MinPoints: defaultMinContourPoints}
	var layers []Layer
	for n, idx := range order {
		entry := palette[idx]
		if entry.PixelCount == 0 {
			continue
		}

		mask := BuildMask(buf, idx, assign)
		var kept []Contour
		for _, contour := range tracer.Trace(mask) {
			if len(contour) < minPoints && !edgeDense(contour, edges, buf.Width) {
				continue
			}
			simplified := Simplify(contour, p.tolerance(contour, faces))
			if len(simplified) >= defaultMinContourPoints {
				kept = append(kept, simplified)
			}
		}
		if len(kept) > 0 {
			layers = append(layers, assembleLayer(entry, kept, p.LayerNaming, len(layers)))
		}
		p.progress("trace", 30+(n+1)*60/len(order))
	}
	return layers, nil
}

// monochromeLayers produces a single black layer from a fixed luma
// threshold, skipping quantization entirely.
func (p *Processor) monochromeLayers(buf *PixelBuffer, faces []image.Rectangle) []Layer {
	threshold := p.MonoThreshold
	if threshold <= 0 {
		threshold = DefaultMonoThreshold
	}

	gray := buf.Grayscale()
	mask := NewColorMask(buf.Width, buf.Height)
	var count uint64
	for i, lum := range gray {
		dark := int(lum) < threshold
		if dark != p.MonoInvert && buf.Opaque(i) {
			mask.Set(i)
			count++
		}
	}
	p.progress("trace", 40)

	minPoints := p.MinRegionPoints
	if minPoints < defaultMinContourPoints {
		minPoints = defaultMinContourPoints
	}
	tracer := &Tracer{MinPoints: minPoints}

	var kept []Contour
	for _, contour := range tracer.Trace(mask) {
		simplified := Simplify(contour, p.tolerance(contour, faces))
		if len(simplified) >= defaultMinContourPoints {
			kept = append(kept, simplified)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	// Inverted mode selects the light pixels, so the layer paints white.
	entry := PaletteEntry{PixelCount: count, ID: newLayerID()}
	if p.MonoInvert {
		entry.R, entry.G, entry.B = 255, 255, 255
	}
	return []Layer{assembleLayer(entry, kept, p.LayerNaming, 0)}
}

// tolerance returns the simplification tolerance for one contour, tightened
// inside detected face regions.
func (p *Processor) tolerance(c Contour, faces []image.Rectangle) float64 {
	tol := p.SimplifyTolerance
	if tol <= 0 {
		tol = DefaultSimplifyTolerance
	}
	if len(faces) > 0 && inDetailRegion(c, faces) {
		tol *= faceDetailFactor
	}
	return tol
}

// fallbackLayer guarantees a non-empty document: one rectangle covering the
// whole canvas, filled with the buffer's mean opaque color.
func (p *Processor) fallbackLayer(buf *PixelBuffer) Layer {
	var rSum, gSum, bSum, n uint64
	for i := 0; i < buf.Width*buf.Height; i++ {
		if !buf.Opaque(i) {
			continue
		}
		o := i * 4
		rSum += uint64(buf.Pix[o])
		gSum += uint64(buf.Pix[o+1])
		bSum += uint64(buf.Pix[o+2])
		n++
	}
	entry := PaletteEntry{R: 255, G: 255, B: 255, PixelCount: n, ID: newLayerID()}
	if n > 0 {
		entry.R = uint8(rSum / n)
		entry.G = uint8(gSum / n)
		entry.B = uint8(bSum / n)
	}

	w, h := float64(buf.Width), float64(buf.Height)
	canvasRect := Contour{{0, 0}, {w, 0}, {w, h}, {0, h}}
	return assembleLayer(entry, []Contour{canvasRect}, p.LayerNaming, 0)
}

// recountPalette replaces the sample-based weights with exact counts from
// the full-buffer assignment.
func recountPalette(palette []PaletteEntry, assign []int) {
	for i := range palette {
		palette[i].PixelCount = 0
	}
	for _, a := range assign {
		if a >= 0 {
			palette[a].PixelCount++
		}
	}
}

// edgeDense reports whether at least a third of the contour's points sit on
// Sobel edge pixels. Used to rescue small regions during recovery.
func edgeDense(c Contour, edges []bool, width int) bool {
	if len(edges) == 0 || len(c) == 0 {
		return false
	}
	hits := 0
	for _, p := range c {
		if edges[int(p.Y)*width+int(p.X)] {
			hits++
		}
	}
	return hits*3 >= len(c)
}

// progress reports a stage milestone, clamped so the sequence never goes
// backwards.
func (p *Processor) progress(stage string, percent int) {
	if percent < p.lastPct {
		percent = p.lastPct
	}
	if percent > 100 {
		percent = 100
	}
	p.lastPct = percent
	if p.OnProgress != nil {
		p.OnProgress(stage, percent)
	}
}

func (p *Processor) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.NewWithOptions(io.Discard, log.Options{})
}
