package entity

import (
	"fmt"
	"image"
)

type ColorMode string

const (
	ColorModeRGB  ColorMode = "RGB"
	ColorModeRGBA ColorMode = "RGBA"
)

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatBMP  ImageFormat = "bmp"
)

func IsSupportedFormat(format string) bool {
	switch ImageFormat(format) {
	case FormatJPEG, FormatPNG, FormatBMP:
		return true
	default:
		return false
	}
}

// BoundingBox is a crop region in pixel coordinates. Max edges are exclusive.
type BoundingBox struct {
	XMin int `json:"x_min" validate:"min=0"`
	YMin int `json:"y_min" validate:"min=0"`
	XMax int `json:"x_max" validate:"gtfield=XMin"`
	YMax int `json:"y_max" validate:"gtfield=YMin"`
}

func (b BoundingBox) Width() int {
	return b.XMax - b.XMin
}

func (b BoundingBox) Height() int {
	return b.YMax - b.YMin
}

func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

// Validate checks the box against the real dimensions of the image it will crop.
func (b BoundingBox) Validate(width, height int) error {
	switch {
	case b.XMin < 0 || b.YMin < 0:
		return fmt.Errorf("x_min (%d) and y_min (%d) must not be negative", b.XMin, b.YMin)
	case b.Width() <= 0:
		return fmt.Errorf("x_max (%d) must be greater than x_min (%d)", b.XMax, b.XMin)
	case b.Height() <= 0:
		return fmt.Errorf("y_max (%d) must be greater than y_min (%d)", b.YMax, b.YMin)
	case b.XMax > width:
		return fmt.Errorf("x_max (%d) exceeds image width (%d)", b.XMax, width)
	case b.YMax > height:
		return fmt.Errorf("y_max (%d) exceeds image height (%d)", b.YMax, height)
	}
	return nil
}

// SourceImage is a downloaded and decoded image. It belongs to a single request.
type SourceImage struct {
	Image     image.Image
	Format    ImageFormat
	Width     int
	Height    int
	ColorMode ColorMode
}

func NewSourceImage(img image.Image, format string) *SourceImage {
	bounds := img.Bounds()
	return &SourceImage{
		Image:     img,
		Format:    ImageFormat(format),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		ColorMode: DetectColorMode(img),
	}
}

// DetectColorMode reports RGBA for images whose model carries alpha and that
// are not fully opaque.
func DetectColorMode(img image.Image) ColorMode {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
	default:
		return ColorModeRGB
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return ColorModeRGB
	}
	return ColorModeRGBA
}

// StoredObject is an uploaded artifact. It is never updated once created.
type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
