package drowsinessHandler

import (
	"time"

	"DrowsyGuard/internal/api/drowsiness"
	contextPkg "DrowsyGuard/pkg/context"
	"DrowsyGuard/pkg/handlerUtil"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *DrowsinessHandler) LastAlert(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req drowsiness.LastAlertRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	alert, err := h.drowsinessService.LastAlert(c, req.Source)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "last_alert")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, alert)
	}
}
