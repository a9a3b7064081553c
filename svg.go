package vectra

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// Dialect selects one of the structurally distinct but semantically
// equivalent encodings of a vector document. All dialects carry the same
// geometry; they differ in how layer groups are tagged so that external
// editors recognize them as independently toggleable layers.
type Dialect int

const (
	// DialectPlain tags each layer as a plain group with id, data-name,
	// display and fill attributes.
	DialectPlain Dialect = iota

	// DialectIllustrator adds the Adobe Illustrator namespaced layer
	// marker, a nested name-carrying sub-group and a metadata block.
	DialectIllustrator

	// DialectPhotopea wraps all layers in a root marker group and tags
	// each layer group with data-name/data-color plus inline fill styling.
	DialectPhotopea
)

const (
	illustratorNS  = "http://ns.adobe.com/AdobeIllustrator/10.0/"
	dublinCoreNS   = "http://purl.org/dc/elements/1.1/"
	photopeaRootID = "photopea-layer-root"
)

// String returns the flag-level name of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectIllustrator:
		return "illustrator"
	case DialectPhotopea:
		return "photopea"
	default:
		return "plain"
	}
}

// ParseDialect maps a flag value onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return DialectPlain, nil
	case "illustrator", "ai":
		return DialectIllustrator, nil
	case "photopea":
		return DialectPhotopea, nil
	default:
		return DialectPlain, NewError(ErrCodeUnsupported, "unknown dialect %q", s)
	}
}

// Serializer renders vector documents to text and parses them back.
// The zero value is ready to use.
type Serializer struct {
	// StrokeWidth adds stroke attributes to every path when positive.
	StrokeWidth float64
}

// Serialize renders doc in its dialect. The output root carries the canvas
// width/height and a matching viewBox; every path is an absolute M/L...Z
// command string. No curve commands are emitted.
func (s *Serializer) Serialize(doc *VectorDocument) (string, error) {
	if doc == nil || doc.Width <= 0 || doc.Height <= 0 {
		return "", NewError(ErrCodeStage, "document has no drawable canvas")
	}

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)

	rootAttrs := []string{fmt.Sprintf(`viewBox="0 0 %d %d"`, doc.Width, doc.Height)}
	if doc.Dialect == DialectIllustrator {
		rootAttrs = append(rootAttrs,
			fmt.Sprintf(`xmlns:i=%q`, illustratorNS),
			fmt.Sprintf(`xmlns:dc=%q`, dublinCoreNS))
	}
	canvas.Start(doc.Width, doc.Height, rootAttrs...)

	if doc.Dialect == DialectIllustrator {
		writeMetadata(buf, doc)
	}
	if doc.Dialect == DialectPhotopea {
		canvas.Group(fmt.Sprintf(`id=%q`, photopeaRootID))
	}

	for _, layer := range doc.Layers {
		s.writeLayer(canvas, doc.Dialect, layer)
	}

	if doc.Dialect == DialectPhotopea {
		canvas.Gend()
	}
	canvas.End()
	return buf.String(), nil
}

// writeMetadata emits the Illustrator-style metadata block.
func writeMetadata(buf *bytes.Buffer, doc *VectorDocument) {
	fmt.Fprintf(buf, "<metadata><dc:title>Layered vector trace</dc:title>"+
		"<dc:creator>vectra</dc:creator>"+
		"<dc:subject>%d color layers</dc:subject></metadata>\n", len(doc.Layers))
}

func (s *Serializer) writeLayer(canvas *svg.SVG, dialect Dialect, layer Layer) {
	display := "inline"
	if !layer.Visible {
		display = "none"
	}

	switch dialect {
	case DialectIllustrator:
		canvas.Group(
			fmt.Sprintf(`id=%q`, layer.ID),
			`i:layer="yes"`,
			fmt.Sprintf(`display=%q`, display))
		canvas.Group(fmt.Sprintf(`data-name=%q`, layer.Name))
		s.writePaths(canvas, layer)
		canvas.Gend()
		canvas.Gend()

	case DialectPhotopea:
		canvas.Group(
			fmt.Sprintf(`id=%q`, layer.ID),
			fmt.Sprintf(`data-name=%q`, layer.Name),
			fmt.Sprintf(`data-color=%q`, layer.ColorHex),
			fmt.Sprintf(`style="fill:%s;display:%s"`, layer.ColorHex, display))
		s.writePaths(canvas, layer)
		canvas.Gend()

	default:
		canvas.Group(
			fmt.Sprintf(`id=%q`, layer.ID),
			fmt.Sprintf(`data-name=%q`, layer.Name),
			fmt.Sprintf(`display=%q`, display),
			fmt.Sprintf(`fill=%q`, layer.ColorHex))
		s.writePaths(canvas, layer)
		canvas.Gend()
	}
}

func (s *Serializer) writePaths(canvas *svg.SVG, layer Layer) {
	attrs := []string{fmt.Sprintf(`fill=%q`, layer.ColorHex)}
	if s.StrokeWidth > 0 {
		attrs = append(attrs,
			fmt.Sprintf(`stroke=%q`, layer.ColorHex),
			fmt.Sprintf(`stroke-width="%s"`, formatCoord(s.StrokeWidth)))
	}
	for _, contour := range layer.Paths {
		canvas.Path(pathData(contour), attrs...)
	}
}

// pathData renders a contour as an absolute moveto/lineto/closepath string.
func pathData(c Contour) string {
	var b strings.Builder
	for i, p := range c {
		if i == 0 {
			b.WriteByte('M')
		} else {
			b.WriteByte('L')
		}
		b.WriteString(formatCoord(p.X))
		b.WriteByte(' ')
		b.WriteString(formatCoord(p.Y))
	}
	b.WriteByte('Z')
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parsePathData reads the coordinates back out of an M/L...Z command
// string. Commands other than moveto/lineto/closepath are rejected.
func parsePathData(d string) (Contour, error) {
	var contour Contour
	var num strings.Builder
	coords := make([]float64, 0, 2)

	flush := func() error {
		if num.Len() == 0 {
			return nil
		}
		v, err := strconv.ParseFloat(num.String(), 64)
		if err != nil {
			return WrapError(ErrCodeStage, err, "malformed path data %q", d)
		}
		num.Reset()
		coords = append(coords, v)
		if len(coords) == 2 {
			contour = append(contour, Point{X: coords[0], Y: coords[1]})
			coords = coords[:0]
		}
		return nil
	}

	for _, r := range d {
		switch {
		case r == 'M' || r == 'L' || r == 'Z' || r == 'z':
			if err := flush(); err != nil {
				return nil, err
			}
		case r == ' ' || r == ',' || r == '\t' || r == '\n':
			if err := flush(); err != nil {
				return nil, err
			}
		case (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E':
			num.WriteRune(r)
		default:
			return nil, NewError(ErrCodeStage, "unsupported path command %q in %q", r, d)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(coords) != 0 {
		return nil, NewError(ErrCodeStage, "dangling coordinate in path data %q", d)
	}
	return contour, nil
}

// xmlNode is a generic element used to walk serialized documents without
// committing to one dialect's structure.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == local && (a.Name.Space == "" || a.Name.Space == "http://www.w3.org/2000/svg") {
			return a.Value, true
		}
	}
	return "", false
}

func (n *xmlNode) attrNS(space, local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Parse reconstructs the layer records of a serialized document. The
// dialect is detected from its marker structure; no hint is needed.
func (s *Serializer) Parse(text string) ([]Layer, error) {
	doc, err := s.parseDocument(text)
	if err != nil {
		return nil, err
	}
	return doc.Layers, nil
}

// parseDocument rebuilds the full document, including canvas dimensions
// and the detected dialect, so mutations can re-serialize faithfully.
func (s *Serializer) parseDocument(text string) (*VectorDocument, error) {
	var root xmlNode
	if err := xml.Unmarshal([]byte(text), &root); err != nil {
		return nil, WrapError(ErrCodeInvalidInput, err, "unparseable document")
	}
	if root.XMLName.Local != "svg" {
		return nil, NewError(ErrCodeInvalidInput, "not a vector document (root <%s>)", root.XMLName.Local)
	}

	doc := &VectorDocument{}
	if w, ok := root.attr("width"); ok {
		doc.Width, _ = strconv.Atoi(strings.TrimSuffix(w, "px"))
	}
	if h, ok := root.attr("height"); ok {
		doc.Height, _ = strconv.Atoi(strings.TrimSuffix(h, "px"))
	}

	groups := childGroups(&root)
	doc.Dialect = detectDialect(groups)

	layerGroups := groups
	if doc.Dialect == DialectPhotopea {
		layerGroups = nil
		for i := range groups {
			if id, ok := groups[i].attr("id"); ok && id == photopeaRootID {
				layerGroups = childGroups(&groups[i])
				break
			}
		}
	}

	for i := range layerGroups {
		layer, err := parseLayerGroup(&layerGroups[i], doc.Dialect)
		if err != nil {
			return nil, err
		}
		doc.Layers = append(doc.Layers, layer)
	}
	return doc, nil
}

func childGroups(n *xmlNode) []xmlNode {
	var groups []xmlNode
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == "g" {
			groups = append(groups, n.Nodes[i])
		}
	}
	return groups
}

// detectDialect looks for the dialect-specific markers: the namespaced
// Illustrator layer attribute, then the Photopea root group.
func detectDialect(groups []xmlNode) Dialect {
	for i := range groups {
		if _, ok := groups[i].attrNS(illustratorNS, "layer"); ok {
			return DialectIllustrator
		}
		if id, ok := groups[i].attr("id"); ok && id == photopeaRootID {
			return DialectPhotopea
		}
	}
	return DialectPlain
}

func parseLayerGroup(g *xmlNode, dialect Dialect) (Layer, error) {
	layer := Layer{Visible: true}
	layer.ID, _ = g.attr("id")

	switch dialect {
	case DialectIllustrator:
		if inner := childGroups(g); len(inner) > 0 {
			layer.Name, _ = inner[0].attr("data-name")
		}
	default:
		layer.Name, _ = g.attr("data-name")
	}

	if display, ok := g.attr("display"); ok {
		layer.Visible = display != "none"
	}
	if style, ok := g.attr("style"); ok {
		if fill := styleProperty(style, "fill"); fill != "" {
			layer.ColorHex = fill
		}
		if d := styleProperty(style, "display"); d != "" {
			layer.Visible = d != "none"
		}
	}
	if layer.ColorHex == "" {
		if c, ok := g.attr("data-color"); ok {
			layer.ColorHex = c
		}
	}
	if layer.ColorHex == "" {
		if fill, ok := g.attr("fill"); ok {
			layer.ColorHex = fill
		}
	}

	if err := collectPaths(g, &layer); err != nil {
		return Layer{}, err
	}
	if layer.ColorHex != "" {
		r, gr, b, err := parseHexColor(layer.ColorHex)
		if err != nil {
			return Layer{}, err
		}
		layer.ColorHex = hexColor(r, gr, b)
	}
	return layer, nil
}

// collectPaths gathers every path element nested under g, in document order.
func collectPaths(g *xmlNode, layer *Layer) error {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.XMLName.Local {
		case "path":
			d, ok := n.attr("d")
			if !ok {
				continue
			}
			contour, err := parsePathData(d)
			if err != nil {
				return err
			}
			layer.Paths = append(layer.Paths, contour)
			if layer.ColorHex == "" {
				if fill, ok := n.attr("fill"); ok {
					layer.ColorHex = fill
				}
			}
		case "g":
			if err := collectPaths(n, layer); err != nil {
				return err
			}
		}
	}
	return nil
}

func styleProperty(style, name string) string {
	for _, part := range strings.Split(style, ";") {
		key, value, found := strings.Cut(part, ":")
		if found && strings.TrimSpace(key) == name {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SetVisibility toggles the visibility marker of the layer with the given
// id and returns the re-rendered document. An unknown id is a lookup miss,
// not an error: callers may race a stale id against a regenerated
// document, so the input text comes back unchanged.
func (s *Serializer) SetVisibility(text, layerID string, visible bool) (string, error) {
	if layerID == "" || !strings.Contains(text, layerID) {
		return text, nil
	}
	doc, err := s.parseDocument(text)
	if err != nil {
		return text, err
	}
	if !mutateLayer(doc, layerID, func(l *Layer) { l.Visible = visible }) {
		return text, nil
	}
	return s.Serialize(doc)
}

// SetColor rewrites the fill of the matching layer group and of every path
// nested in it. Unknown ids are a no-op, like SetVisibility.
func (s *Serializer) SetColor(text, layerID, colorHex string) (string, error) {
	r, g, b, err := parseHexColor(colorHex)
	if err != nil {
		return text, err
	}
	if layerID == "" || !strings.Contains(text, layerID) {
		return text, nil
	}
	doc, perr := s.parseDocument(text)
	if perr != nil {
		return text, perr
	}
	if !mutateLayer(doc, layerID, func(l *Layer) { l.ColorHex = hexColor(r, g, b) }) {
		return text, nil
	}
	return s.Serialize(doc)
}

func mutateLayer(doc *VectorDocument, layerID string, fn func(*Layer)) bool {
	for i := range doc.Layers {
		if doc.Layers[i].ID == layerID {
			fn(&doc.Layers[i])
			return true
		}
	}
	return false
}

// Serialize renders doc with default serializer settings.
func Serialize(doc *VectorDocument) (string, error) {
	var s Serializer
	return s.Serialize(doc)
}

// Parse reconstructs the layers of a serialized document in any dialect.
func Parse(text string) ([]Layer, error) {
	var s Serializer
	return s.Parse(text)
}

// SetVisibility toggles a layer's visibility in serialized form.
func SetVisibility(text, layerID string, visible bool) (string, error) {
	var s Serializer
	return s.SetVisibility(text, layerID, visible)
}

// SetColor rewrites a layer's fill color in serialized form.
func SetColor(text, layerID, colorHex string) (string, error) {
	var s Serializer
	return s.SetColor(text, layerID, colorHex)
}

// minimalDocument renders the smallest valid output: a background
// rectangle and an explanatory label. It is the last resort when even the
// assembled document cannot be serialized.
func minimalDocument(width, height int, label string) string {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(width, height, fmt.Sprintf(`viewBox="0 0 %d %d"`, width, height))
	canvas.Rect(0, 0, width, height, `fill="#ffffff"`)
	canvas.Text(width/2, height/2, label, `text-anchor="middle"`, `fill="#000000"`)
	canvas.End()
	return buf.String()
}
