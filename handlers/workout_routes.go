package handlers

import (
	"fitquest-api/models"
	"fitquest-api/services"
	"fitquest-api/store"

	"github.com/gofiber/fiber/v2"
)

func SetupWorkoutRoutes(app fiber.Router, workoutService *services.WorkoutService) {
	workouts := app.Group("/workouts")

	workouts.Get("/", func(c *fiber.Ctx) error {
		f := store.WorkoutFilter{
			Difficulty: models.WorkoutDifficulty(c.Query("difficulty")),
			Category:   c.Query("category"),
		}
		list, err := workoutService.List(c.UserContext(), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	// registered before /:id so "complete" is not taken for an id
	workouts.Post("/complete", func(c *fiber.Ctx) error {
		var in services.CompleteWorkoutInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		res, err := workoutService.Complete(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	workouts.Get("/:id", func(c *fiber.Ctx) error {
		w, err := workoutService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(w)
	})

	workouts.Post("/", func(c *fiber.Ctx) error {
		var in services.CreateWorkoutInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		w, err := workoutService.Create(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(w)
	})

	workouts.Patch("/:id", func(c *fiber.Ctx) error {
		var patch services.WorkoutPatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		w, err := workoutService.Update(c.UserContext(), c.Params("id"), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(w)
	})
}
