package downloader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"BackgroundRemovalAPI/internal/entity"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func encoded(t *testing.T, format string, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "bmp":
		err = bmp.Encode(&buf, img)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func serve(body []byte, status int, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
}

func newTestDownloader(retries int) IDownloader {
	return New(Config{
		Timeout:    time.Second,
		Retries:    retries,
		RetryDelay: 5 * time.Millisecond,
	}, testLogger())
}

func TestDownload_SupportedFormats(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "bmp"} {
		t.Run(format, func(t *testing.T) {
			server := serve(encoded(t, format, 32, 24), http.StatusOK, nil)
			defer server.Close()

			src, err := newTestDownloader(0).Download(context.Background(), server.URL)
			require.NoError(t, err)

			assert.Equal(t, entity.ImageFormat(format), src.Format)
			assert.Equal(t, 32, src.Width)
			assert.Equal(t, 24, src.Height)
			assert.Equal(t, entity.ColorModeRGB, src.ColorMode)
		})
	}
}

func TestDownload_RejectsNonImage(t *testing.T) {
	var hits int32
	server := serve([]byte("<html>not an image</html>"), http.StatusOK, &hits)
	defer server.Close()

	_, err := newTestDownloader(3).Download(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownload_RejectsCorruptImage(t *testing.T) {
	data := encoded(t, "png", 64, 64)
	server := serve(data[:len(data)/2], http.StatusOK, nil)
	defer server.Close()

	_, err := newTestDownloader(0).Download(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrCorruptImage)
}

func TestDownload_RetriesExactlyConfiguredTimes(t *testing.T) {
	for _, retries := range []int{0, 1, 3} {
		var hits int32
		server := serve([]byte("unavailable"), http.StatusServiceUnavailable, &hits)

		_, err := newTestDownloader(retries).Download(context.Background(), server.URL)
		server.Close()

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
		assert.Equal(t, int32(retries+1), atomic.LoadInt32(&hits), "retries=%d", retries)
	}
}

func TestDownload_RecoversAfterTransientFailure(t *testing.T) {
	var hits int32
	body := encoded(t, "png", 10, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(body)
	}))
	defer server.Close()

	src, err := newTestDownloader(2).Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 10, src.Width)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestDownload_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := New(Config{Timeout: 50 * time.Millisecond}, testLogger())
	_, err := d.Download(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client.Timeout")
}

func TestDownload_InvalidURL(t *testing.T) {
	d := newTestDownloader(2)

	for _, raw := range []string{"", "not a url", "ftp://example.com/a.png", "/relative/path.png", "http://"} {
		_, err := d.Download(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestDownload_TooLarge(t *testing.T) {
	var hits int32
	server := serve(encoded(t, "png", 64, 64), http.StatusOK, &hits)
	defer server.Close()

	d := New(Config{Timeout: time.Second, Retries: 2, MaxBytes: 16}, testLogger())
	_, err := d.Download(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

// withDimensions rewrites the IHDR of a PNG to declare w x h.
func withDimensions(data []byte, w, h uint32) []byte {
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDownload_RejectsHugeDimensions(t *testing.T) {
	var hits int32
	server := serve(withDimensions(encoded(t, "png", 8, 8), 16000, 16000), http.StatusOK, &hits)
	defer server.Close()

	_, err := newTestDownloader(2).Download(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrTooManyPixels)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "16000x16000")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownload_PixelLimitIsConfigurable(t *testing.T) {
	server := serve(encoded(t, "png", 64, 64), http.StatusOK, nil)
	defer server.Close()

	d := New(Config{Timeout: time.Second, MaxPixels: 64 * 63}, testLogger())
	_, err := d.Download(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrTooManyPixels)

	d = New(Config{Timeout: time.Second, MaxPixels: 64 * 64}, testLogger())
	src, err := d.Download(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 64, src.Width)
}
