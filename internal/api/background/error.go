package background

import (
	"BackgroundRemovalAPI/pkg/response"
	"net/http"
)

var (
	ErrInvalidRequestBody = response.NewError(http.StatusBadRequest, "invalid request body")
	ErrInvalidImageURL    = response.NewError(http.StatusBadRequest, "invalid image url")
	ErrDownloadFailed     = response.NewError(http.StatusBadRequest, "failed to download image")
	ErrUnsupportedFormat  = response.NewError(http.StatusBadRequest, "unsupported image format")
	ErrInvalidBoundingBox = response.NewError(http.StatusBadRequest, "invalid bounding box")
	ErrImageTooLarge      = response.NewError(http.StatusBadRequest, "image too large")
	ErrBackgroundRemoval  = response.NewError(http.StatusInternalServerError, "background removal failed")
	ErrEncodeImage        = response.NewError(http.StatusInternalServerError, "failed to encode processed image")
	ErrUploadFailed       = response.NewError(http.StatusInternalServerError, "failed to upload processed image")
)
