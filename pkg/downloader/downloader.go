package downloader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"BackgroundRemovalAPI/internal/entity"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/net/context"
)

var (
	ErrInvalidURL        = errors.New("image url must be an absolute http(s) url")
	ErrUnsupportedFormat = errors.New("unsupported image format, expected jpeg, png or bmp")
	ErrCorruptImage      = errors.New("image data is corrupt or truncated")
	ErrTooLarge          = errors.New("image exceeds the maximum allowed size")
	ErrTooManyPixels     = fmt.Errorf("%w: decoded dimensions over the pixel limit", ErrTooLarge)
)

// DefaultMaxPixels matches the decompression bomb threshold of common
// imaging libraries (about 89.5 megapixels).
const DefaultMaxPixels = 1024 * 1024 * 1024 / 4 / 3

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.StatusCode)
}

type IDownloader interface {
	Download(ctx context.Context, imageURL string) (*entity.SourceImage, error)
}

type Config struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	MaxBytes   int64
	MaxPixels  int64
}

type downloader struct {
	client *http.Client
	cfg    Config
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IDownloader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 25 << 20
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}

	return &downloader{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		log:    log,
	}
}

// Download fetches and decodes imageURL. Transport failures are retried
// cfg.Retries times with a fixed delay; the last error is returned as is.
// Decode failures are not retried.
func (d *downloader) Download(ctx context.Context, imageURL string) (*entity.SourceImage, error) {
	if err := validateURL(imageURL); err != nil {
		return nil, err
	}

	attempts := d.cfg.Retries + 1

	var (
		body []byte
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err = d.fetch(ctx, imageURL)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}

		d.log.WithFields(logrus.Fields{
			"url":      imageURL,
			"attempt":  attempt,
			"attempts": attempts,
			"error":    err.Error(),
		}).Warn("Image download attempt failed")

		if attempt == attempts {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(d.cfg.RetryDelay):
		}
	}

	return d.decode(body)
}

func (d *downloader) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.cfg.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > d.cfg.MaxBytes {
		return nil, ErrTooLarge
	}

	return data, nil
}

// decode checks the header before allocating pixels, so a small payload
// declaring huge dimensions is refused up front.
func (d *downloader) decode(data []byte) (*entity.SourceImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	if !entity.IsSupportedFormat(format) {
		return nil, ErrUnsupportedFormat
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > d.cfg.MaxPixels {
		return nil, fmt.Errorf("%w (%dx%d, limit %d)", ErrTooManyPixels, cfg.Width, cfg.Height, d.cfg.MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	return entity.NewSourceImage(img, format), nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
