package config

import (
	contextPkg "BackgroundRemovalAPI/pkg/context"
	"BackgroundRemovalAPI/pkg/handlerUtil"
	"errors"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func NewFiber(logger *logrus.Logger) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:               "Background Removal API",
			BodyLimit:             1 * 1024 * 1024,
			DisableKeepalive:      false,
			StrictRouting:         false,
			CaseSensitive:         true,
			DisableStartupMessage: true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
			ErrorHandler:          newErrorHandler(logger),
		})

	return app
}

// newErrorHandler answers errors that escape the handlers (unknown routes,
// oversized bodies, recovered panics) with the same JSON shape.
func newErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		requestID, _ := c.Locals(contextPkg.RequestIDHeader).(string)

		if code >= fiber.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"path":       c.Path(),
				"error":      err.Error(),
			}).Error("Unhandled error")

			return c.Status(code).JSON(handlerUtil.ErrorResponse{
				Error:   "Internal server error",
				TraceID: requestID,
			})
		}

		return c.Status(code).JSON(handlerUtil.ErrorResponse{Error: fe.Message})
	}
}
