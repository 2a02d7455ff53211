package handlers

import (
	"strconv"

	"fitquest-api/services"
	"fitquest-api/store"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(app fiber.Router, missionService *services.MissionService) {
	missions := app.Group("/missions")

	missions.Get("/", func(c *fiber.Ctx) error {
		var f store.MissionFilter
		if raw := c.Query("is_active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "is_active: must be true or false",
					"field": "is_active",
				})
			}
			f.IsActive = &active
		}
		if userID := c.Query("user_id"); userID != "" {
			f.UserID = &userID
		}
		list, err := missionService.List(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	missions.Get("/:id", func(c *fiber.Ctx) error {
		m, err := missionService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(m)
	})

	missions.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateMissionInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		m, err := missionService.Create(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	missions.Patch("/:id", func(c *fiber.Ctx) error {
		var patch services.MissionPatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		res, err := missionService.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	missions.Post("/:id/accept", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badBody(c, err)
			}
		}
		res, err := missionService.Accept(c.UserContext(), c.Params("id"), req.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	missions.Delete("/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := missionService.Delete(c.UserContext(), id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "mission deleted",
			"id":      id,
		})
	})
}
