package segmentation

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"BackgroundRemovalAPI/internal/entity"
	"BackgroundRemovalAPI/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// halfAndHalf has a dark left half and a bright right half.
func halfAndHalf(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(20)
			if x >= w/2 {
				v = 230
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// fakeModel keeps bright pixels and clears the alpha of dark ones.
func fakeModel(t *testing.T, frame []byte) *image.NRGBA {
	t.Helper()

	decoded, err := png.Decode(bytes.NewReader(frame))
	require.NoError(t, err)

	bounds := decoded.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(decoded.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			if c.R < 128 {
				c.A = 0
			}
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

func TestFromResult(t *testing.T) {
	tests := []struct {
		name    string
		result  entity.SegmentationResult
		wantErr bool
	}{
		{name: "valid", result: entity.SegmentationResult{Width: 2, Height: 1, Channels: 4, Data: make([]byte, 8)}},
		{name: "three channels", result: entity.SegmentationResult{Width: 2, Height: 1, Channels: 3, Data: make([]byte, 6)}, wantErr: true},
		{name: "wrong size", result: entity.SegmentationResult{Width: 3, Height: 1, Channels: 4, Data: make([]byte, 12)}, wantErr: true},
		{name: "short data", result: entity.SegmentationResult{Width: 2, Height: 1, Channels: 4, Data: make([]byte, 7)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := FromResult(&tt.result, 2, 1)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnexpectedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
		})
	}
}

func TestFromDecoded_RequiresAlpha(t *testing.T) {
	_, err := FromDecoded(image.NewRGBA(image.Rect(0, 0, 2, 2)), 2, 2)
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	_, err = FromDecoded(image.NewGray(image.Rect(0, 0, 2, 2)), 2, 2)
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	_, err = FromDecoded(image.NewNRGBA(image.Rect(0, 0, 3, 2)), 2, 2)
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	out, err := FromDecoded(image.NewNRGBA(image.Rect(0, 0, 2, 2)), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Bounds().Dx())
}

func newModelServer(t *testing.T, reply func(frame []byte) interface{}) *httptest.Server {
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			messageType, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			if err := conn.WriteJSON(reply(frame)); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebsocketRemover_Remove(t *testing.T) {
	server := newModelServer(t, func(frame []byte) interface{} {
		out := fakeModel(t, frame)
		return entity.SegmentationResult{
			Width:    out.Rect.Dx(),
			Height:   out.Rect.Dy(),
			Channels: 4,
			Data:     out.Pix,
		}
	})
	defer server.Close()

	remover, err := NewWebsocketRemover(WebsocketConfig{URL: wsURL(server), ReadTimeout: 2 * time.Second}, testLogger())
	require.NoError(t, err)
	defer remover.Close()

	for i := 0; i < 2; i++ {
		out, err := remover.Remove(context.Background(), halfAndHalf(8, 4))
		require.NoError(t, err)

		assert.Equal(t, image.Rect(0, 0, 8, 4), out.Bounds())
		assert.Equal(t, uint8(0), out.RGBAAt(0, 0).A)
		assert.Equal(t, color.RGBA{R: 230, G: 230, B: 230, A: 255}, out.RGBAAt(7, 3))
	}
}

func TestWebsocketRemover_UnexpectedShape(t *testing.T) {
	server := newModelServer(t, func(frame []byte) interface{} {
		return entity.SegmentationResult{Width: 8, Height: 4, Channels: 3, Data: make([]byte, 8*4*3)}
	})
	defer server.Close()

	remover, err := NewWebsocketRemover(WebsocketConfig{URL: wsURL(server)}, testLogger())
	require.NoError(t, err)
	defer remover.Close()

	_, err = remover.Remove(context.Background(), halfAndHalf(8, 4))
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
}

func TestWebsocketRemover_ModelError(t *testing.T) {
	server := newModelServer(t, func(frame []byte) interface{} {
		return entity.SegmentationResult{Error: "model not loaded"}
	})
	defer server.Close()

	remover, err := NewWebsocketRemover(WebsocketConfig{URL: wsURL(server)}, testLogger())
	require.NoError(t, err)
	defer remover.Close()

	_, err = remover.Remove(context.Background(), halfAndHalf(4, 4))
	assert.ErrorContains(t, err, "model not loaded")
}

func TestWebsocketRemover_Unreachable(t *testing.T) {
	remover, err := NewWebsocketRemover(WebsocketConfig{URL: "ws://127.0.0.1:1/ws", HandshakeTimeout: 200 * time.Millisecond}, testLogger())
	require.NoError(t, err)
	defer remover.Close()

	_, err = remover.Remove(context.Background(), halfAndHalf(4, 4))
	assert.ErrorContains(t, err, "cannot connect to segmentation model")
}

func TestNewRemovers_NotConfigured(t *testing.T) {
	_, err := NewWebsocketRemover(WebsocketConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewHTTPRemover(HTTPConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func newRembgServer(t *testing.T, respond func(w http.ResponseWriter, frame []byte)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/remove", r.URL.Path)

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		frame, err := io.ReadAll(file)
		require.NoError(t, err)
		respond(w, frame)
	}))
}

func TestHTTPRemover_Remove(t *testing.T) {
	server := newRembgServer(t, func(w http.ResponseWriter, frame []byte) {
		data, err := utils.EncodeRGBAPNG(fakeModel(t, frame))
		require.NoError(t, err)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	})
	defer server.Close()

	remover, err := NewHTTPRemover(HTTPConfig{BaseURL: server.URL + "/"}, testLogger())
	require.NoError(t, err)
	defer remover.Close()

	out, err := remover.Remove(context.Background(), halfAndHalf(6, 2))
	require.NoError(t, err)

	assert.Equal(t, uint8(0), out.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), out.RGBAAt(5, 1).A)
}

func TestHTTPRemover_OutputWithoutAlpha(t *testing.T) {
	server := newRembgServer(t, func(w http.ResponseWriter, frame []byte) {
		_ = png.Encode(w, halfAndHalf(6, 2))
	})
	defer server.Close()

	remover, err := NewHTTPRemover(HTTPConfig{BaseURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = remover.Remove(context.Background(), halfAndHalf(6, 2))
	assert.ErrorIs(t, err, ErrUnexpectedOutput)
}

func TestHTTPRemover_ErrorStatus(t *testing.T) {
	server := newRembgServer(t, func(w http.ResponseWriter, frame []byte) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("out of memory"))
	})
	defer server.Close()

	remover, err := NewHTTPRemover(HTTPConfig{BaseURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = remover.Remove(context.Background(), halfAndHalf(6, 2))
	assert.ErrorContains(t, err, "status 500")
	assert.ErrorContains(t, err, "out of memory")
}
