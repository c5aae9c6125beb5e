package handlers

import (
	"errors"

	"autoparts/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

const msgInternal = "Internal server error"

// ErrorHandler renders handler errors as failure envelopes. Internal errors
// are logged and their cause is never sent to the client.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Response{Error: fe.Message})
		}

		ae, ok := apperr.As(err)
		if !ok {
			ae = apperr.Internal(msgInternal, err)
		}
		if ae.Kind == apperr.KindInternal {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
				zap.Error(err),
			)
		}
		return c.Status(ae.Kind.Status()).JSON(Response{Error: ae.Message})
	}
}

// NotFound answers requests no route matched.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   "Endpoint not found",
		"path":    c.Path(),
	})
}

// TooManyRequests answers requests rejected by the rate limiter.
func TooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(Response{Error: "Too many requests, please try again later"})
}
