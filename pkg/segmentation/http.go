package segmentation

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"BackgroundRemovalAPI/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const removePath = "/api/remove"

type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
}

// httpRemover talks to a rembg style server: the image is posted as a
// multipart "file" field and the cut-out comes back as a PNG body.
type httpRemover struct {
	endpoint string
	client   *http.Client
	log      *logrus.Logger
}

func NewHTTPRemover(cfg HTTPConfig, log *logrus.Logger) (Remover, error) {
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &httpRemover{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + removePath,
		client:   &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}, nil
}

func (h *httpRemover) Remove(ctx context.Context, img *image.RGBA) (*image.RGBA, error) {
	frame, err := utils.EncodeRGBAPNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	h.log.WithFields(logrus.Fields{
		"endpoint":   h.endpoint,
		"frame_size": len(frame),
	}).Debug("Sending image to segmentation model")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("segmentation request failed with status %d: %s", resp.StatusCode, truncate(payload, 256))
	}

	out, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode model output: %v", ErrUnexpectedOutput, err)
	}

	bounds := img.Bounds()
	return FromDecoded(out, bounds.Dx(), bounds.Dy())
}

func (h *httpRemover) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
