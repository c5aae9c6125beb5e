package middleware

import (
	"errors"
	"strconv"
	"time"

	"autoparts/internal/apperr"
	"autoparts/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// HTTPMetrics records the count and latency of every request by route
// pattern.
func HTTPMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		m.ObserveRequest(c.Method(), c.Route().Path, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

// statusOf predicts the status the error handler will answer err with.
func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.KindOf(err).Status()
}
