package vectra

import (
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/vectra-dev/vectra/utils"
)

// minFaceQuality filters out low-confidence detections.
const minFaceQuality = 5.0

// detectFaces runs the pigo cascade classifier over the buffer and returns
// the clustered face rectangles. Contours intersecting these regions are
// simplified with a reduced tolerance so facial detail survives.
func detectFaces(buf *PixelBuffer, classifier string, angle float64) ([]image.Rectangle, error) {
	cascade, err := os.ReadFile(classifier)
	if err != nil {
		return nil, WrapError(ErrCodeStage, err, "reading cascade file %s", classifier)
	}

	faceDetector, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, WrapError(ErrCodeStage, err, "unpacking the cascade file")
	}

	cParams := pigo.CascadeParams{
		MinSize:     20,
		MaxSize:     utils.Max(buf.Width, buf.Height),
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,

		ImageParams: pigo.ImageParams{
			Pixels: buf.Grayscale(),
			Rows:   buf.Height,
			Cols:   buf.Width,
			Dim:    buf.Width,
		},
	}

	faces := faceDetector.RunCascade(cParams, angle)
	faces = faceDetector.ClusterDetections(faces, 0.2)

	var regions []image.Rectangle
	for _, face := range faces {
		if face.Q < minFaceQuality {
			continue
		}
		half := face.Scale / 2
		regions = append(regions, image.Rect(
			face.Col-half, face.Row-half,
			face.Col+half, face.Row+half,
		))
	}
	return regions, nil
}

// inDetailRegion reports whether any contour point falls inside one of the
// detected regions.
func inDetailRegion(c Contour, regions []image.Rectangle) bool {
	for _, p := range c {
		pt := image.Pt(int(p.X), int(p.Y))
		for _, r := range regions {
			if pt.In(r) {
				return true
			}
		}
	}
	return false
}
