package config

import (
	"BackgroundRemovalAPI/pkg/downloader"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	SegmentationModeWebsocket = "websocket"
	SegmentationModeHTTP      = "http"
)

type Env struct {
	AppPort string
	AppEnv  string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSBucketName      string
	AWSRegion          string

	DownloadTimeout    time.Duration
	DownloadRetries    int
	DownloadRetryDelay time.Duration
	DownloadMaxBytes   int64
	DownloadMaxPixels  int64

	SegmentationMode    string
	SegmentationWSURL   string
	SegmentationHTTPURL string
	SegmentationTimeout time.Duration
}

// LoadEnv reads the process environment. Unset keys fall back to defaults;
// malformed values are reported.
func LoadEnv() (*Env, error) {
	env := &Env{
		AppPort:             firstOf("APP_PORT", "PORT", "8000"),
		AppEnv:              firstOf("APP_ENV", "", "development"),
		AWSAccessKeyID:      firstOf("AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY", ""),
		AWSSecretAccessKey:  firstOf("AWS_SECRET_ACCESS_KEY", "AWS_SECRET_KEY", ""),
		AWSBucketName:       firstOf("AWS_BUCKET_NAME", "", "background-removal-bucket"),
		AWSRegion:           firstOf("AWS_REGION", "", "us-east-1"),
		SegmentationMode:    firstOf("SEGMENTATION_MODE", "", SegmentationModeWebsocket),
		SegmentationWSURL:   os.Getenv("SEGMENTATION_WS_URL"),
		SegmentationHTTPURL: os.Getenv("SEGMENTATION_HTTP_URL"),
	}

	var err error
	if env.DownloadTimeout, err = durationOf("DOWNLOAD_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if env.DownloadRetryDelay, err = durationOf("DOWNLOAD_RETRY_DELAY", time.Second); err != nil {
		return nil, err
	}
	if env.SegmentationTimeout, err = durationOf("SEGMENTATION_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	retries, err := intOf("DOWNLOAD_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("DOWNLOAD_RETRIES must not be negative, got %d", retries)
	}
	env.DownloadRetries = retries

	maxBytes, err := intOf("DOWNLOAD_MAX_BYTES", 25<<20)
	if err != nil {
		return nil, err
	}
	env.DownloadMaxBytes = int64(maxBytes)

	maxPixels, err := intOf("DOWNLOAD_MAX_PIXELS", downloader.DefaultMaxPixels)
	if err != nil {
		return nil, err
	}
	env.DownloadMaxPixels = int64(maxPixels)

	switch env.SegmentationMode {
	case SegmentationModeWebsocket, SegmentationModeHTTP:
	default:
		return nil, fmt.Errorf("SEGMENTATION_MODE must be %q or %q, got %q",
			SegmentationModeWebsocket, SegmentationModeHTTP, env.SegmentationMode)
	}

	return env, nil
}

func firstOf(key, fallbackKey, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fallbackKey != "" {
		if v := os.Getenv(fallbackKey); v != "" {
			return v
		}
	}
	return def
}

// durationOf accepts Go durations ("1500ms") or a bare number of seconds.
func durationOf(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func intOf(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
