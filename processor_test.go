package vectra

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

// redWhiteImage is a 4x4 canvas with a red 2x2 block in the top-left corner
// over a white background.
func redWhiteImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	white := color.NRGBA{255, 255, 255, 255}
	red := color.NRGBA{255, 0, 0, 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, white)
		}
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, red)
		}
	}
	return img
}

func TestProcessor_TwoColorImageYieldsTwoOrderedLayers(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{
		MaxColors:         2,
		SimplifyTolerance: 0.5,
		EnableLayers:      true,
	}
	doc, err := p.Vectorize(redWhiteImage())
	assert.NoError(err)
	assert.Equal(4, doc.Width)
	assert.Equal(4, doc.Height)
	assert.Len(doc.Layers, 2)

	// The dominant white region paints first so red renders on top.
	assert.Equal("#ffffff", doc.Layers[0].ColorHex)
	assert.Equal("White", doc.Layers[0].Name)
	assert.Equal("#ff0000", doc.Layers[1].ColorHex)
	assert.Equal("Red", doc.Layers[1].Name)

	// The red contour stays inside the 2x2 block.
	assert.Len(doc.Layers[1].Paths, 1)
	for _, pt := range doc.Layers[1].Paths[0] {
		assert.LessOrEqual(pt.X, 1.0)
		assert.LessOrEqual(pt.Y, 1.0)
	}
}

func TestProcessor_SinglePixelFallsBackToFullCanvasLayer(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 255, 255})

	p := &Processor{MaxColors: 4}
	doc, err := p.Vectorize(img)
	assert.NoError(err)
	assert.Len(doc.Layers, 1)

	layer := doc.Layers[0]
	assert.Equal("#0000ff", layer.ColorHex)
	assert.Len(layer.Paths, 1)
	assert.Equal(Contour{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, layer.Paths[0])
}

func TestProcessor_TransparentImageFallsBackToWhite(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	p := &Processor{}
	doc, err := p.Vectorize(img)
	assert.NoError(err)
	assert.Len(doc.Layers, 1)
	assert.Equal("#ffffff", doc.Layers[0].ColorHex)
}

func TestProcessor_InvalidInput(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{}
	_, err := p.Vectorize(nil)
	assert.True(IsCode(err, ErrCodeInvalidInput))

	_, err = p.Vectorize(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(IsCode(err, ErrCodeInvalidInput))
}

func TestProcessor_ConcurrentConversionIsRejected(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{MaxColors: 2, SimplifyTolerance: 0.5}
	var reentrant error
	checked := false
	p.OnProgress = func(stage string, percent int) {
		if checked {
			return
		}
		checked = true
		_, reentrant = p.Vectorize(redWhiteImage())
	}

	_, err := p.Vectorize(redWhiteImage())
	assert.NoError(err)
	assert.True(checked)
	assert.True(IsCode(reentrant, ErrCodeBusy))

	// The slot frees up once the first conversion returns.
	_, err = p.Vectorize(redWhiteImage())
	assert.NoError(err)
}

func TestProcessor_ProgressIsMonotone(t *testing.T) {
	assert := assert.New(t)

	var stages []string
	var percents []int
	p := &Processor{
		MaxColors:         2,
		SimplifyTolerance: 0.5,
		OnProgress: func(stage string, percent int) {
			stages = append(stages, stage)
			percents = append(percents, percent)
		},
	}
	_, err := p.Vectorize(redWhiteImage())
	assert.NoError(err)

	assert.Equal("load", stages[0])
	assert.Equal("assemble", stages[len(stages)-1])
	assert.Equal(95, percents[len(percents)-1])
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(percents[i], percents[i-1])
	}
}

func TestProcessor_MonochromeModeEmitsSingleBlackLayer(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	white := color.NRGBA{255, 255, 255, 255}
	black := color.NRGBA{0, 0, 0, 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, white)
		}
	}
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			img.SetNRGBA(x, y, black)
		}
	}

	p := &Processor{
		ColorMode:         ColorModeMonochrome,
		SimplifyTolerance: 0.5,
	}
	doc, err := p.Vectorize(img)
	assert.NoError(err)
	assert.Len(doc.Layers, 1)
	assert.Equal("#000000", doc.Layers[0].ColorHex)
	assert.Equal("Black", doc.Layers[0].Name)
	assert.NotEmpty(doc.Layers[0].Paths)
}

func TestProcessor_MonochromeInvertTracesTheLightPixels(t *testing.T) {
	assert := assert.New(t)

	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	white := color.NRGBA{255, 255, 255, 255}
	black := color.NRGBA{0, 0, 0, 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, black)
		}
	}
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			img.SetNRGBA(x, y, white)
		}
	}

	p := &Processor{
		ColorMode:         ColorModeMonochrome,
		MonoInvert:        true,
		SimplifyTolerance: 0.5,
	}
	doc, err := p.Vectorize(img)
	assert.NoError(err)
	assert.Len(doc.Layers, 1)
	assert.Equal("#ffffff", doc.Layers[0].ColorHex)
	assert.Equal("White", doc.Layers[0].Name)
}

func TestProcessor_LayerMarkersRequireEnableLayers(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{MaxColors: 2, SimplifyTolerance: 0.5, Dialect: DialectIllustrator}
	doc, err := p.Vectorize(redWhiteImage())
	assert.NoError(err)
	assert.Equal(DialectPlain, doc.Dialect)

	p = &Processor{MaxColors: 2, SimplifyTolerance: 0.5, Dialect: DialectIllustrator, EnableLayers: true}
	doc, err = p.Vectorize(redWhiteImage())
	assert.NoError(err)
	assert.Equal(DialectIllustrator, doc.Dialect)
}

func TestProcessor_ProcessWritesSerializedDocument(t *testing.T) {
	assert := assert.New(t)

	var encoded bytes.Buffer
	assert.NoError(png.Encode(&encoded, redWhiteImage()))

	var out bytes.Buffer
	p := &Processor{MaxColors: 2, SimplifyTolerance: 0.5, EnableLayers: true}
	assert.NoError(p.Process(&encoded, &out))

	text := out.String()
	assert.Contains(text, "<svg")
	assert.Contains(text, "#ffffff")
	assert.Contains(text, "#ff0000")

	layers, err := Parse(text)
	assert.NoError(err)
	assert.Len(layers, 2)
}

func TestProcessor_ProcessRejectsUndecodableInput(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{}
	err := p.Process(bytes.NewBufferString("not an image"), new(bytes.Buffer))
	assert.True(IsCode(err, ErrCodeInvalidInput))
}

func TestProcessor_NamingByIndex(t *testing.T) {
	assert := assert.New(t)

	p := &Processor{MaxColors: 2, SimplifyTolerance: 0.5, LayerNaming: NamingIndex}
	doc, err := p.Vectorize(redWhiteImage())
	assert.NoError(err)
	assert.Len(doc.Layers, 2)
	assert.Equal("Layer 1", doc.Layers[0].Name)
	assert.Equal("Layer 2", doc.Layers[1].Name)
}
