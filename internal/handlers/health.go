package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health reports liveness.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
