// Package imaging turns uploaded image bytes into RGB frames for the detectors.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/vision"
)

// DefaultMaxPixels caps the declared size of an upload before any pixel is decoded.
const DefaultMaxPixels = 40_000_000

// Decode reads an encoded image, converts it to RGB and shrinks it to maxWidth x maxHeight
// when it is larger in either dimension. It returns the frame and the detected format.
// Images declaring more than maxPixels pixels are rejected from the header alone;
// maxPixels <= 0 means DefaultMaxPixels.
func Decode(data []byte, maxWidth, maxHeight, maxPixels int) (vision.Frame, string, error) {
	if len(data) == 0 {
		return vision.Frame{}, "", fmt.Errorf("%w: empty image", produce.ErrInvalidInput)
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	// Сжатый файл может объявить гигапиксельный размер, поэтому сначала только заголовок.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return vision.Frame{}, "", fmt.Errorf("%w: failed to read image header: %v", produce.ErrInvalidInput, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return vision.Frame{}, "", fmt.Errorf("%w: image has zero area", produce.ErrInvalidInput)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return vision.Frame{}, "", fmt.Errorf("%w: image is %dx%d, more than %d pixels", produce.ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return vision.Frame{}, "", fmt.Errorf("%w: failed to decode image: %v", produce.ErrInvalidInput, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return vision.Frame{}, format, fmt.Errorf("%w: image has zero area", produce.ErrInvalidInput)
	}

	if maxWidth > 0 && maxHeight > 0 && (b.Dx() > maxWidth || b.Dy() > maxHeight) {
		img = Resize(img, maxWidth, maxHeight)
	}

	return FromImage(img), format, nil
}

// Resize scales img to exactly width x height.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func FromImage(img image.Image) vision.Frame {
	b := img.Bounds()
	frame := vision.NewFrame(b.Dx(), b.Dy())

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < frame.Height; y++ {
			for x := 0; x < frame.Width; x++ {
				i := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
				frame.Set(x, y, rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2])
			}
		}
		return frame
	}

	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			frame.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return frame
}

func ToImage(frame vision.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			r, g, b := frame.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 0xff
		}
	}
	return img
}

func EncodeJPEG(frame vision.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, ToImage(frame), &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
