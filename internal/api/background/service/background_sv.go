package backgroundService

import (
	"errors"
	"image"
	"time"

	"BackgroundRemovalAPI/internal/api/background"
	"BackgroundRemovalAPI/pkg/downloader"
	"BackgroundRemovalAPI/pkg/log"
	"BackgroundRemovalAPI/pkg/response"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *backgroundService) ProcessImage(ctx context.Context, req background.ProcessRequest) (*background.ProcessResponse, error) {
	logger := log.WithRequestID(ctx, s.log)
	start := time.Now()

	source, err := s.downloader.Download(ctx, req.ImageURL)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"image_url": req.ImageURL,
			"error":     err.Error(),
		}).Warn("Failed to download image")
		return nil, translateDownloadError(err)
	}

	logger.WithFields(logrus.Fields{
		"format":     source.Format,
		"width":      source.Width,
		"height":     source.Height,
		"color_mode": source.ColorMode,
	}).Debug("Image downloaded")

	if err := req.BoundingBox.Validate(source.Width, source.Height); err != nil {
		logger.WithFields(logrus.Fields{
			"bounding_box": req.BoundingBox,
			"width":        source.Width,
			"height":       source.Height,
		}).Warn("Bounding box out of image bounds")
		return nil, response.WithDetail(background.ErrInvalidBoundingBox, "%s", err.Error())
	}

	cropped := s.utils.CropImage(source.Image, req.BoundingBox)

	processed, err := s.removeBackground(ctx, cropped)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to remove background")
		return nil, response.WithDetail(background.ErrBackgroundRemoval, "%s", err.Error())
	}

	data, err := s.utils.EncodePNG(processed)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to encode processed image")
		return nil, response.WithDetail(background.ErrEncodeImage, "%s", err.Error())
	}

	stored, err := s.s3.UploadImage(ctx, data)
	if err != nil {
		logger.WithField("error", err.Error()).Error("Failed to upload processed image")
		return nil, response.WithDetail(background.ErrUploadFailed, "%s", err.Error())
	}

	logger.WithFields(logrus.Fields{
		"key":        stored.Key,
		"size":       len(data),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Processed image uploaded")

	return &background.ProcessResponse{
		OriginalImageURL:  req.ImageURL,
		ProcessedImageURL: stored.URL,
	}, nil
}

func (s *backgroundService) removeBackground(ctx context.Context, img image.Image) (*image.RGBA, error) {
	return s.remover.Remove(ctx, s.utils.ToRGBA(img))
}

func translateDownloadError(err error) error {
	switch {
	case errors.Is(err, downloader.ErrInvalidURL):
		return response.WithDetail(background.ErrInvalidImageURL, "%s", err.Error())
	case errors.Is(err, downloader.ErrTooLarge):
		return response.WithDetail(background.ErrImageTooLarge, "%s", err.Error())
	case errors.Is(err, downloader.ErrUnsupportedFormat), errors.Is(err, downloader.ErrCorruptImage):
		return response.WithDetail(background.ErrUnsupportedFormat, "%s", err.Error())
	default:
		return response.WithDetail(background.ErrDownloadFailed, "%s", err.Error())
	}
}
