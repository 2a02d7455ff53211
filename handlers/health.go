package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func SetupHealthRoutes(app fiber.Router, dataSource string, started time.Time) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"data_source": dataSource,
			"uptime":      time.Since(started).Round(time.Second).String(),
		})
	})
}
