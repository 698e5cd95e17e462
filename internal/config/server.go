package config

import (
	backgroundHandler "BackgroundRemovalAPI/internal/api/background/handler"
	backgroundService "BackgroundRemovalAPI/internal/api/background/service"
	"BackgroundRemovalAPI/internal/middleware"
	"BackgroundRemovalAPI/pkg/downloader"
	"BackgroundRemovalAPI/pkg/s3"
	"BackgroundRemovalAPI/pkg/segmentation"
	"BackgroundRemovalAPI/pkg/utils"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	s3Client   s3.ItfS3
	downloader downloader.IDownloader
	remover    segmentation.Remover
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client(env *Env) ServerOption {
	return func(s *Server) error {
		client, err := s3.New(s3.Config{
			AccessKeyID:     env.AWSAccessKeyID,
			SecretAccessKey: env.AWSSecretAccessKey,
			BucketName:      env.AWSBucketName,
			Region:          env.AWSRegion,
		})
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithStorage injects an already built storage client.
func WithStorage(client s3.ItfS3) ServerOption {
	return func(s *Server) error {
		s.s3Client = client
		return nil
	}
}

func WithDownloader(env *Env) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before downloader")
		}
		s.downloader = downloader.New(downloader.Config{
			Timeout:    env.DownloadTimeout,
			Retries:    env.DownloadRetries,
			RetryDelay: env.DownloadRetryDelay,
			MaxBytes:   env.DownloadMaxBytes,
			MaxPixels:  env.DownloadMaxPixels,
		}, s.log)
		return nil
	}
}

func WithRemover(env *Env) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before remover")
		}

		var (
			remover segmentation.Remover
			err     error
		)
		switch env.SegmentationMode {
		case SegmentationModeHTTP:
			remover, err = segmentation.NewHTTPRemover(segmentation.HTTPConfig{
				BaseURL: env.SegmentationHTTPURL,
				Timeout: env.SegmentationTimeout,
			}, s.log)
		default:
			remover, err = segmentation.NewWebsocketRemover(segmentation.WebsocketConfig{
				URL:         env.SegmentationWSURL,
				ReadTimeout: env.SegmentationTimeout,
			}, s.log)
		}
		if err != nil {
			s.log.Errorf("Failed to initialize %s segmentation client: %v", env.SegmentationMode, err)
			return fmt.Errorf("failed to create segmentation client: %w", err)
		}

		s.remover = remover
		return nil
	}
}

// WithSegmentationRemover injects an already built remover.
func WithSegmentationRemover(remover segmentation.Remover) ServerOption {
	return func(s *Server) error {
		s.remover = remover
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	if s.downloader == nil || s.remover == nil || s.s3Client == nil {
		return fmt.Errorf("downloader, remover and storage are required")
	}

	backgroundServices := backgroundService.NewBackgroundService(s.log, s.downloader, s.remover, s.s3Client, s.utils)
	backgroundHandlers := backgroundHandler.New(s.log, s.validator, s.middleware, backgroundServices)

	s.engine.Use(recover.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()
	s.handlers = append(s.handlers, backgroundHandlers)

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	return nil
}

func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run(port string) error {
	if port == "" {
		port = "8000"
	}

	s.log.Infof("Listening on :%s", port)
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if s.remover != nil {
		if closeErr := s.remover.Close(); closeErr != nil {
			s.log.Warnf("Failed to close segmentation client: %v", closeErr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
