package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleHealth reports that the API is up.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"service":   "Auto Parts API",
	})
}

// HandleIndex describes the API entry points.
func HandleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Auto Parts Inventory API",
		"version": "1.0.0",
		"endpoints": fiber.Map{
			"auth":   "/api/auth",
			"parts":  "/api/parts",
			"health": "/api/health",
		},
	})
}
