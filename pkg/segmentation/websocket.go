package segmentation

import (
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"BackgroundRemovalAPI/internal/entity"
	"BackgroundRemovalAPI/pkg/utils"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type WebsocketConfig struct {
	URL              string
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration
}

// websocketRemover keeps one connection to the model server. Frames are
// PNG-encoded RGBA images; replies are JSON segmentation results.
type websocketRemover struct {
	cfg WebsocketConfig
	log *logrus.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}

	// one frame in flight per connection
	roundTrip sync.Mutex
}

func NewWebsocketRemover(cfg WebsocketConfig, log *logrus.Logger) (Remover, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	r := &websocketRemover{
		cfg: cfg,
		log: log,
	}

	go r.connectInBackground()

	return r, nil
}

func (r *websocketRemover) connectInBackground() {
	r.roundTrip.Lock()
	defer r.roundTrip.Unlock()

	if _, err := r.getConnection(); err == nil {
		return
	}

	if err := r.Reconnect(); err != nil {
		r.log.WithFields(logrus.Fields{
			"url":   r.cfg.URL,
			"error": err.Error(),
		}).Warn("Initial connection to segmentation model failed, will retry on demand")
		return
	}
	r.log.WithField("url", r.cfg.URL).Info("Connected to segmentation model")
}

func (r *websocketRemover) Reconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: r.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.Dial(r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", r.cfg.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(r.cfg.WriteTimeout))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			r.log.WithField("error", err.Error()).Warn("Error sending pong to segmentation model")
		}
		return nil
	})

	done := make(chan struct{})
	r.conn = conn
	r.done = done

	go r.keepAlive(conn, done)

	return nil
}

func (r *websocketRemover) keepAlive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(r.cfg.WriteTimeout))
			if err != nil {
				r.log.WithField("error", err.Error()).Warn("Ping to segmentation model failed, marking connection as dead")
				r.drop(conn)
				return
			}
		}
	}
}

func (r *websocketRemover) getConnection() (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil, errors.New("not connected to segmentation model")
	}
	return r.conn, nil
}

// drop forgets conn if it is still the current connection.
func (r *websocketRemover) drop(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == conn {
		r.closeLocked()
		return
	}
	_ = conn.Close()
}

func (r *websocketRemover) closeLocked() {
	if r.conn == nil {
		return
	}
	close(r.done)
	_ = r.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = r.conn.Close()
	r.conn = nil
	r.done = nil
}

func (r *websocketRemover) Remove(ctx context.Context, img *image.RGBA) (*image.RGBA, error) {
	frame, err := utils.EncodeRGBAPNG(img)
	if err != nil {
		return nil, fmt.Errorf("error encoding frame: %w", err)
	}

	r.roundTrip.Lock()
	defer r.roundTrip.Unlock()

	conn, err := r.getConnection()
	if err != nil {
		if err := r.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to segmentation model: %w", err)
		}
		conn, err = r.getConnection()
		if err != nil {
			return nil, err
		}
	}

	writeDeadline := time.Now().Add(r.cfg.WriteTimeout)
	readDeadline := time.Now().Add(r.cfg.ReadTimeout)
	if d, ok := ctx.Deadline(); ok {
		if d.Before(writeDeadline) {
			writeDeadline = d
		}
		if d.Before(readDeadline) {
			readDeadline = d
		}
	}

	_ = conn.SetWriteDeadline(writeDeadline)

	r.log.WithField("frame_size", len(frame)).Debug("Sending frame to segmentation model")
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		r.drop(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	_ = conn.SetReadDeadline(readDeadline)

	_, message, err := conn.ReadMessage()
	if err != nil {
		r.drop(conn)
		return nil, fmt.Errorf("error reading segmentation result: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})

	var result entity.SegmentationResult
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling segmentation result: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("segmentation model error: %s", result.Error)
	}

	bounds := img.Bounds()
	return FromResult(&result, bounds.Dx(), bounds.Dy())
}

func (r *websocketRemover) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()
	return nil
}
