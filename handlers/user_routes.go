package handlers

import (
	"strconv"

	"fitquest-api/middleware"
	"fitquest-api/services"

	"github.com/gofiber/fiber/v2"
)

func isSelf(c *fiber.Ctx) bool {
	return middleware.UserID(c) == c.Params("id")
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "token does not belong to this user",
	})
}

func SetupUserRoutes(
	app fiber.Router,
	userService *services.UserService,
	achievementService *services.AchievementService,
	stepService *services.StepService,
	sessions *services.Sessions,
	auth fiber.Handler,
) {
	users := app.Group("/users")

	users.Get("/", func(c *fiber.Ctx) error {
		if email := c.Query("email"); email != "" {
			u, err := userService.GetByEmail(c.UserContext(), email)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(u)
		}
		list, err := userService.List(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	users.Post("/", func(c *fiber.Ctx) error {
		var in services.RegisterInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		u, err := userService.Register(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	})

	users.Patch("/", func(c *fiber.Ctx) error {
		var patch services.UserPatch
		if err := c.BodyParser(&patch); err != nil {
			return badBody(c, err)
		}
		u, err := userService.UpdateByEmail(c.UserContext(), patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(u)
	})

	users.Post("/login", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		res, err := userService.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	users.Post("/logout", auth, func(c *fiber.Ctx) error {
		sessions.End(middleware.UserID(c))
		return c.JSON(fiber.Map{"message": "logged out"})
	})

	users.Get("/:id", func(c *fiber.Ctx) error {
		u, err := userService.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(u)
	})

	users.Get("/:id/achievements", func(c *fiber.Ctx) error {
		list, err := achievementService.List(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	users.Get("/:id/completed-missions", func(c *fiber.Ctx) error {
		list, err := userService.CompletedMissions(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(list)
	})

	users.Get("/:id/progress", func(c *fiber.Ctx) error {
		days, err := strconv.Atoi(c.Query("days", "7"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "days: must be a number",
				"field": "days",
			})
		}
		points, err := userService.ProgressChart(c.UserContext(), c.Params("id"), days)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(points)
	})

	users.Post("/:id/steps", auth, func(c *fiber.Ctx) error {
		if !isSelf(c) {
			return forbidden(c)
		}
		var in services.StepInput
		if err := c.BodyParser(&in); err != nil {
			return badBody(c, err)
		}
		res, err := stepService.Ingest(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	users.Post("/:id/avatar", auth, func(c *fiber.Ctx) error {
		if !isSelf(c) {
			return forbidden(c)
		}
		fh, err := c.FormFile("photo")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "photo: multipart file is required",
				"field": "photo",
			})
		}
		f, err := fh.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to read photo",
				"cause": err.Error(),
			})
		}
		defer f.Close()

		u, err := userService.UploadAvatar(c.UserContext(), c.Params("id"), fh.Filename, fh.Header.Get(fiber.HeaderContentType), f)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(u)
	})
}
