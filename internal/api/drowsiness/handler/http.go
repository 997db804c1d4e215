package drowsinessHandler

import (
	drowsinessService "DrowsyGuard/internal/api/drowsiness/service"
	"DrowsyGuard/internal/middleware"
	"DrowsyGuard/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const sourceLocalsKey = "source"

type DrowsinessHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	drowsinessService drowsinessService.IDrowsinessService
	utils             utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds drowsinessService.IDrowsinessService,
	utils utils.IUtils,
) *DrowsinessHandler {
	return &DrowsinessHandler{
		drowsinessService: ds,
		log:               log,
		validator:         validator,
		middleware:        middleware,
		utils:             utils,
	}
}

func (h *DrowsinessHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(sourceLocalsKey, frameSource(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	drowsiness := srv.Group("/drowsiness")

	drowsiness.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
	drowsiness.Get("/status", h.Status)

	drowsiness.Use("/ws", h.middleware.NewRateLimiter, wsMiddleware)
	drowsiness.Get("/ws", websocket.New(h.handleWebSocket))

	drowsiness.Post("/logs", h.middleware.NewTokenMiddleware, h.CreateLog)
	drowsiness.Get("/logs", h.middleware.NewTokenMiddleware, h.ListLogs)

	drowsiness.Get("/alerts/last", h.middleware.NewTokenMiddleware, h.LastAlert)
}

// frameSource names the camera a frame came from: the source query
// parameter, else the client IP.
func frameSource(c *fiber.Ctx) string {
	return c.Query("source", c.IP())
}
