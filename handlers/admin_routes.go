package handlers

import (
	"fitquest-api/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes mounts internal endpoints behind guard (the service token).
func SetupAdminRoutes(app fiber.Router, progressionService *services.ProgressionService, guard fiber.Handler) {
	admin := app.Group("/admin", guard)

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		if len(req.Reason) > 255 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reason: at most 255 characters",
				"field": "reason",
			})
		}

		u, err := progressionService.AwardXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
			"level":   u.Level,
			"user":    u,
		})
	})
}
