package vectra

import (
	"image"
	"image/color"
)

// alphaCutoff is the minimum alpha value a pixel needs to take part in
// quantization and mask building. Anything below is treated as transparent.
const alphaCutoff = 16

// PixelBuffer holds a decoded image as row-major RGBA samples. Buffers are
// never mutated by the pipeline; derived data (masks, edge maps) is always
// allocated separately.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer converts any image type to a PixelBuffer with the origin
// at (0, 0). It returns an INVALID_INPUT error for nil or zero-area images.
func NewPixelBuffer(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, NewError(ErrCodeInvalidInput, "nil source image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, NewError(ErrCodeInvalidInput, "zero-area source image (%dx%d)", b.Dx(), b.Dy())
	}
	nrgba := imgToNRGBA(img)
	dx, dy := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()

	buf := &PixelBuffer{
		Width:  dx,
		Height: dy,
		Pix:    make([]uint8, dx*dy*4),
	}
	for y := 0; y < dy; y++ {
		copy(buf.Pix[y*dx*4:(y+1)*dx*4], nrgba.Pix[y*nrgba.Stride:y*nrgba.Stride+dx*4])
	}
	return buf, nil
}

// At returns the RGBA sample at pixel coordinates (x, y).
func (b *PixelBuffer) At(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Opaque reports whether the pixel at index i (in pixel units, not bytes)
// is above the transparency cutoff.
func (b *PixelBuffer) Opaque(i int) bool {
	return b.Pix[i*4+3] >= alphaCutoff
}

// Grayscale converts the buffer to one luma byte per pixel using the
// BT.601 weights.
func (b *PixelBuffer) Grayscale() []uint8 {
	gray := make([]uint8, b.Width*b.Height)
	for i := 0; i < len(gray); i++ {
		o := i * 4
		gray[i] = uint8(0.299*float64(b.Pix[o]) +
			0.587*float64(b.Pix[o+1]) +
			0.114*float64(b.Pix[o+2]))
	}
	return gray
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := srcBounds.Dx() * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}
