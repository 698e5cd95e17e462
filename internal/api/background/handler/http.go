package backgroundHandler

import (
	backgroundService "BackgroundRemovalAPI/internal/api/background/service"
	"BackgroundRemovalAPI/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type BackgroundHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	backgroundService backgroundService.IBackgroundService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	bs backgroundService.IBackgroundService,
) *BackgroundHandler {
	return &BackgroundHandler{
		log:               log,
		validator:         validator,
		middleware:        middleware,
		backgroundService: bs,
	}
}

func (h *BackgroundHandler) Start(srv fiber.Router) {
	srv.Get("/", h.Welcome)
	srv.Post("/process", h.ProcessImage)
	srv.Post("/remove-background", h.ProcessImage)
}
