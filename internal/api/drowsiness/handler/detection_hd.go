package drowsinessHandler

import (
	"strconv"
	"time"

	"DrowsyGuard/internal/api/drowsiness"
	contextPkg "DrowsyGuard/pkg/context"
	"DrowsyGuard/pkg/handlerUtil"
	"DrowsyGuard/pkg/log"
	"DrowsyGuard/pkg/response"
	"DrowsyGuard/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const (
	frameFormField = "frame"
	frameTimeout   = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
)

func (h *DrowsinessHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), frameTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile(frameFormField)
	if err != nil {
		return errHandler.Handle(ctx, requestID, utils.ErrNoFile, ctx.Path(), "read_frame")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing detection request")

	if err := h.utils.ValidateImageFile(file); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_frame")
	}

	data, err := h.utils.ReadMultipartFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_frame")
	}

	result, err := h.drowsinessService.Detect(c, data, drowsiness.AnalyzeOptions{
		Annotate: ctx.QueryBool("annotate"),
		Source:   frameSource(ctx),
	})
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	// Detect enforces the deadline itself; a result it returns may already
	// have raised an alert and is always delivered.
	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"status":     result.Status,
		"face_count": result.FaceCount,
	}).Info("Frame classified")
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
}

func (h *DrowsinessHandler) Status(ctx *fiber.Ctx) error {
	th := h.drowsinessService.Thresholds()
	resp := drowsiness.StatusResponse{
		Status: "ready",
		Thresholds: drowsiness.ThresholdResponse{
			EyeAspectRatio: th.EyeAspectRatio,
			YawnDistance:   th.YawnDistance,
		},
	}

	if err := h.drowsinessService.Readiness(); err != nil {
		resp.Status = "not_ready"
		resp.Error = err.Error()
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}

	return ctx.Status(fiber.StatusOK).JSON(resp)
}

// handleWebSocket classifies every binary message as one frame and answers
// with one JSON message per frame. Errors are reported in-band and keep the
// connection open.
func (h *DrowsinessHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(contextPkg.RequestIDHeader).(string)
	source, _ := c.Locals(sourceLocalsKey).(string)

	fields := log.Fields{
		"request_id": requestID,
		"source":     source,
	}

	h.log.WithFields(fields).Info("Drowsiness WebSocket client connected")
	defer h.log.WithFields(fields).Info("Drowsiness WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.WithFields(fields).Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	annotate := c.Query("annotate") == "true"
	frames := 0

	for {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			h.log.WithFields(fields).Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithFields(fields).Errorf("Drowsiness WebSocket error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.WithFields(fields).Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		frames++
		var reply interface{}

		fc, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), frameTimeout)
		result, err := h.drowsinessService.Detect(fc, message, drowsiness.AnalyzeOptions{
			Annotate: annotate,
			Source:   source,
		})
		cancel()

		if err != nil {
			h.log.WithFields(fields).WithField("frame", frames).Warnf("Error processing frame: %v", err)
			reply = frameError(err)
		} else {
			reply = result
		}

		if err := c.SetWriteDeadline(time.Now().Add(frameTimeout)); err != nil {
			h.log.WithFields(fields).Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(reply); err != nil {
			h.log.WithFields(fields).Errorf("Error writing JSON response: %v", err)
			break
		}
	}
}

// frameError is the in-band error message sent for a frame that failed.
func frameError(err error) handlerUtil.ErrorResponse {
	return handlerUtil.ErrorResponse{
		Error: response.Message(err),
		Code:  strconv.Itoa(response.StatusCode(err)),
	}
}
