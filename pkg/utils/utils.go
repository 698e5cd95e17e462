package utils

import (
	"crypto/rand"
	"image"
	"time"

	"BackgroundRemovalAPI/internal/entity"

	"github.com/disintegration/imaging"
	"github.com/oklog/ulid/v2"
	"golang.org/x/image/draw"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	CropImage(img image.Image, box entity.BoundingBox) *image.NRGBA
	ToRGBA(img image.Image) *image.RGBA
	EncodePNG(img image.Image) ([]byte, error)
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// CropImage cuts box out of img. The box is relative to the image origin and
// the result always starts at (0,0).
func (u *utils) CropImage(img image.Image, box entity.BoundingBox) *image.NRGBA {
	rect := box.Rect().Add(img.Bounds().Min)
	return imaging.Crop(img, rect)
}

func (u *utils) ToRGBA(img image.Image) *image.RGBA {
	return ToRGBA(img)
}

func (u *utils) EncodePNG(img image.Image) ([]byte, error) {
	return EncodeRGBAPNG(img)
}

// ToRGBA returns img as an *image.RGBA anchored at (0,0), copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) {
		return nrgba
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
