package vectra

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// newLayerID mints an id that stays stable for the lifetime of one
// conversion and is safe to use as an XML id attribute.
func newLayerID() string {
	return "layer-" + uuid.NewString()
}

// Layer is a named, colored, independently toggleable set of simplified
// contours. Layers are created by the assembler and mutated only through
// the serializer's visibility/color operations.
type Layer struct {
	ID       string
	Name     string
	ColorHex string
	Visible  bool
	Paths    []Contour
}

// LayerInfo is the flat manifest record handed to presentation layers.
type LayerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ColorHex string `json:"color"`
	Visible  bool   `json:"visible"`
}

// VectorDocument is the authoritative in-memory representation of a
// conversion result. Layers are ordered back-to-front: the largest color
// region is painted first so smaller regions render on top.
type VectorDocument struct {
	Width   int
	Height  int
	Layers  []Layer
	Dialect Dialect
}

// Manifest returns the flat layer listing for presentation.
func (d *VectorDocument) Manifest() []LayerInfo {
	infos := make([]LayerInfo, len(d.Layers))
	for i, l := range d.Layers {
		infos[i] = LayerInfo{
			ID:       l.ID,
			Name:     l.Name,
			ColorHex: l.ColorHex,
			Visible:  l.Visible,
		}
	}
	return infos
}

// LayerNaming selects how assembled layers are named.
type LayerNaming int

const (
	// NamingColorName names layers after the nearest SVG 1.1 color name.
	NamingColorName LayerNaming = iota
	// NamingIndex names layers by their ordinal position.
	NamingIndex
)

// assembleLayer builds a Layer from one palette entry and its simplified
// contours. The entry id carries over so mask, polygons and layer stay
// correlated for the lifetime of the conversion.
func assembleLayer(entry PaletteEntry, contours []Contour, naming LayerNaming, index int) Layer {
	return Layer{
		ID:       entry.ID,
		Name:     layerName(naming, index, entry.R, entry.G, entry.B),
		ColorHex: hexColor(entry.R, entry.G, entry.B),
		Visible:  true,
		Paths:    contours,
	}
}

func layerName(naming LayerNaming, index int, r, g, b uint8) string {
	if naming == NamingIndex {
		return fmt.Sprintf("Layer %d", index+1)
	}
	return nearestColorName(r, g, b)
}

// nearestColorName finds the SVG color name with the smallest perceptual
// (Lab) distance to the given color.
func nearestColorName(r, g, b uint8) string {
	target := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}

	best, bestDist := "black", -1.0
	for _, name := range colornames.Names {
		c := colornames.Map[name]
		candidate := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
		d := target.DistanceLab(candidate)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = name
		}
	}
	return strings.ToUpper(best[:1]) + best[1:]
}

// paletteSpread returns the largest pairwise perceptual (Lab) distance
// between palette entries. Reported in debug logs as a rough measure of how
// well the quantizer separated the color space.
func paletteSpread(palette []PaletteEntry) float64 {
	var spread float64
	for i := range palette {
		a := colorful.Color{
			R: float64(palette[i].R) / 255,
			G: float64(palette[i].G) / 255,
			B: float64(palette[i].B) / 255,
		}
		for j := i + 1; j < len(palette); j++ {
			b := colorful.Color{
				R: float64(palette[j].R) / 255,
				G: float64(palette[j].G) / 255,
				B: float64(palette[j].B) / 255,
			}
			if d := a.DistanceLab(b); d > spread {
				spread = d
			}
		}
	}
	return spread
}

// hexColor formats an RGB triple as "#rrggbb".
func hexColor(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// parseHexColor parses "#rrggbb" (case insensitive). The short "#rgb" form
// produced by hand-edited documents is accepted too.
func parseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return 0, 0, 0, NewError(ErrCodeInvalidInput, "malformed color %q", s)
	}
	v, perr := strconv.ParseUint(hex, 16, 32)
	if perr != nil {
		return 0, 0, 0, WrapError(ErrCodeInvalidInput, perr, "malformed color %q", s)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
