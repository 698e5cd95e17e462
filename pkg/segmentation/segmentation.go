package segmentation

import (
	"errors"
	"fmt"
	"image"

	"BackgroundRemovalAPI/internal/entity"
	"BackgroundRemovalAPI/pkg/utils"

	"golang.org/x/net/context"
)

const rgbaChannels = 4

var (
	ErrUnexpectedOutput = errors.New("segmentation model returned an unexpected output shape")
	ErrNotConfigured    = errors.New("segmentation model endpoint is not configured")
)

// Remover delegates foreground/background classification to an external
// pretrained model and returns the alpha-masked image.
type Remover interface {
	Remove(ctx context.Context, img *image.RGBA) (*image.RGBA, error)
	Close() error
}

// FromResult rebuilds an RGBA image from a raw model output. The output must
// be a 4-channel array with the same dimensions as the input.
func FromResult(result *entity.SegmentationResult, width, height int) (*image.RGBA, error) {
	if result.Channels != rgbaChannels {
		return nil, fmt.Errorf("%w: got %d channels, want %d", ErrUnexpectedOutput, result.Channels, rgbaChannels)
	}
	if result.Width != width || result.Height != height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrUnexpectedOutput, result.Width, result.Height, width, height)
	}
	if want := width * height * rgbaChannels; len(result.Data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrUnexpectedOutput, len(result.Data), want)
	}

	// Model output is straight alpha.
	nrgba := &image.NRGBA{
		Pix:    result.Data,
		Stride: width * rgbaChannels,
		Rect:   image.Rect(0, 0, width, height),
	}
	return utils.ToRGBA(nrgba), nil
}

// FromDecoded checks that a decoded PNG model output carries an alpha channel
// and matches the input dimensions. The PNG decoder only yields NRGBA images
// for color types with alpha.
func FromDecoded(img image.Image, width, height int) (*image.RGBA, error) {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64:
	default:
		return nil, fmt.Errorf("%w: output has no alpha channel (%T)", ErrUnexpectedOutput, img)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrUnexpectedOutput, bounds.Dx(), bounds.Dy(), width, height)
	}

	return utils.ToRGBA(img), nil
}
