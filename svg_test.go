package vectra

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDocument(dialect Dialect) *VectorDocument {
	return &VectorDocument{
		Width:   64,
		Height:  48,
		Dialect: dialect,
		Layers: []Layer{
			{
				ID:       "layer-bg",
				Name:     "White",
				ColorHex: "#ffffff",
				Visible:  true,
				Paths: []Contour{
					{{0, 0}, {64, 0}, {64, 48}, {0, 48}},
				},
			},
			{
				ID:       "layer-accent",
				Name:     "Crimson",
				ColorHex: "#dc143c",
				Visible:  false,
				Paths: []Contour{
					{{10, 10}, {20, 10}, {20, 20}},
					{{30, 30}, {40, 30}, {35, 40}},
				},
			},
		},
	}
}

func TestSerializer_RoundTripPreservesLayersInEveryDialect(t *testing.T) {
	for _, dialect := range []Dialect{DialectPlain, DialectIllustrator, DialectPhotopea} {
		t.Run(dialect.String(), func(t *testing.T) {
			assert := assert.New(t)

			doc := testDocument(dialect)
			text, err := Serialize(doc)
			assert.NoError(err)
			assert.Contains(text, `viewBox="0 0 64 48"`)

			layers, err := Parse(text)
			assert.NoError(err)
			assert.Len(layers, len(doc.Layers))

			for i, want := range doc.Layers {
				got := layers[i]
				assert.Equal(want.ID, got.ID)
				assert.Equal(want.Name, got.Name)
				assert.Equal(want.ColorHex, got.ColorHex)
				assert.Equal(want.Visible, got.Visible)
				assert.Len(got.Paths, len(want.Paths))
				for j := range want.Paths {
					assert.Equal(want.Paths[j], got.Paths[j])
				}
			}
		})
	}
}

func TestSerializer_DialectIsDetectedWithoutHint(t *testing.T) {
	assert := assert.New(t)

	var s Serializer
	for _, dialect := range []Dialect{DialectPlain, DialectIllustrator, DialectPhotopea} {
		text, err := Serialize(testDocument(dialect))
		assert.NoError(err)

		parsed, err := s.parseDocument(text)
		assert.NoError(err)
		assert.Equal(dialect, parsed.Dialect)
		assert.Equal(64, parsed.Width)
		assert.Equal(48, parsed.Height)
	}
}

func TestSerializer_DialectMarkers(t *testing.T) {
	assert := assert.New(t)

	plain, err := Serialize(testDocument(DialectPlain))
	assert.NoError(err)
	assert.NotContains(plain, "i:layer")
	assert.NotContains(plain, photopeaRootID)

	ai, err := Serialize(testDocument(DialectIllustrator))
	assert.NoError(err)
	assert.Contains(ai, `i:layer="yes"`)
	assert.Contains(ai, illustratorNS)
	assert.Contains(ai, "<metadata>")

	pp, err := Serialize(testDocument(DialectPhotopea))
	assert.NoError(err)
	assert.Contains(pp, photopeaRootID)
	assert.Contains(pp, `data-color="#dc143c"`)
}

func TestSerializer_SetVisibilityRoundTrips(t *testing.T) {
	for _, dialect := range []Dialect{DialectPlain, DialectIllustrator, DialectPhotopea} {
		t.Run(dialect.String(), func(t *testing.T) {
			assert := assert.New(t)

			original, err := Serialize(testDocument(dialect))
			assert.NoError(err)

			hidden, err := SetVisibility(original, "layer-bg", false)
			assert.NoError(err)

			layers, err := Parse(hidden)
			assert.NoError(err)
			assert.False(layers[0].Visible)
			assert.False(layers[1].Visible, "untouched layer changed")

			restored, err := SetVisibility(hidden, "layer-bg", true)
			assert.NoError(err)
			assert.Equal(original, restored)
		})
	}
}

func TestSerializer_SetColorRewritesGroupAndPaths(t *testing.T) {
	assert := assert.New(t)

	original, err := Serialize(testDocument(DialectPlain))
	assert.NoError(err)

	recolored, err := SetColor(original, "layer-accent", "#00FF00")
	assert.NoError(err)
	assert.NotContains(recolored, "#dc143c")
	// Group fill plus one fill per path.
	assert.Equal(3, strings.Count(recolored, "#00ff00"))

	layers, err := Parse(recolored)
	assert.NoError(err)
	assert.Equal("#00ff00", layers[1].ColorHex)
	assert.Equal("#ffffff", layers[0].ColorHex)
}

func TestSerializer_UnknownLayerIsANoOp(t *testing.T) {
	assert := assert.New(t)

	original, err := Serialize(testDocument(DialectPhotopea))
	assert.NoError(err)

	out, err := SetVisibility(original, "layer-missing", false)
	assert.NoError(err)
	assert.Equal(original, out)

	out, err = SetColor(original, "layer-missing", "#123456")
	assert.NoError(err)
	assert.Equal(original, out)
}

func TestSerializer_SetColorRejectsMalformedColor(t *testing.T) {
	assert := assert.New(t)

	original, err := Serialize(testDocument(DialectPlain))
	assert.NoError(err)

	out, err := SetColor(original, "layer-bg", "not-a-color")
	assert.Error(err)
	assert.True(IsCode(err, ErrCodeInvalidInput))
	assert.Equal(original, out)
}

func TestSerializer_ShortHexColorsAreNormalized(t *testing.T) {
	assert := assert.New(t)

	text := `<svg width="4" height="4" xmlns="http://www.w3.org/2000/svg">` +
		`<g id="l1" data-name="Red" display="inline" fill="#f00">` +
		`<path d="M0 0L4 0L4 4Z" fill="#f00"/></g></svg>`

	layers, err := Parse(text)
	assert.NoError(err)
	assert.Len(layers, 1)
	assert.Equal("#ff0000", layers[0].ColorHex)
}

func TestSerializer_ParseRejectsGarbage(t *testing.T) {
	assert := assert.New(t)

	_, err := Parse("this is not markup")
	assert.True(IsCode(err, ErrCodeInvalidInput))

	_, err = Parse("<html></html>")
	assert.True(IsCode(err, ErrCodeInvalidInput))
}

func TestSerializer_RejectsCurveCommands(t *testing.T) {
	assert := assert.New(t)

	_, err := parsePathData("M0 0C1 1 2 2 3 3Z")
	assert.True(IsCode(err, ErrCodeStage))
}

func TestSerializer_StrokeWidthAddsStrokeAttributes(t *testing.T) {
	assert := assert.New(t)

	s := Serializer{StrokeWidth: 1.5}
	text, err := s.Serialize(testDocument(DialectPlain))
	assert.NoError(err)
	assert.Contains(text, `stroke-width="1.5"`)
	assert.Contains(text, `stroke="#ffffff"`)
}

func TestSerializer_EmptyDocumentFails(t *testing.T) {
	assert := assert.New(t)

	_, err := Serialize(nil)
	assert.True(IsCode(err, ErrCodeStage))

	_, err = Serialize(&VectorDocument{Width: 0, Height: 10})
	assert.True(IsCode(err, ErrCodeStage))
}

func TestMinimalDocument_IsValidMarkup(t *testing.T) {
	assert := assert.New(t)

	text := minimalDocument(32, 32, "no drawable layers")
	assert.Contains(text, "<svg")
	assert.Contains(text, "no drawable layers")

	layers, err := Parse(text)
	assert.NoError(err)
	assert.Empty(layers)
}
