package backgroundHandler

import (
	"BackgroundRemovalAPI/internal/api/background"
	contextPkg "BackgroundRemovalAPI/pkg/context"
	"BackgroundRemovalAPI/pkg/handlerUtil"
	"BackgroundRemovalAPI/pkg/log"
	"BackgroundRemovalAPI/pkg/response"
	"github.com/gofiber/fiber/v2"
)

func (h *BackgroundHandler) Welcome(ctx *fiber.Ctx) error {
	return ctx.JSON(background.WelcomeResponse{
		Message: background.WelcomeMessage,
	})
}

func (h *BackgroundHandler) ProcessImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	var req background.ProcessRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, response.WithDetail(background.ErrInvalidRequestBody, "%s", err.Error()), ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id":   requestID,
		"path":         ctx.Path(),
		"bounding_box": req.BoundingBox,
	}).Debug("Processing background removal request")

	result, err := h.backgroundService.ProcessImage(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_image")
	}

	h.log.WithFields(log.Fields{
		"request_id":          requestID,
		"path":                ctx.Path(),
		"processed_image_url": result.ProcessedImageURL,
	}).Info("Background removal successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}
