package handlers

import (
	"strings"
	"time"

	"fitquest-api/middleware"
	"fitquest-api/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Deps struct {
	Missions     *services.MissionService
	Workouts     *services.WorkoutService
	Users        *services.UserService
	Achievements *services.AchievementService
	Steps        *services.StepService
	Progression  *services.ProgressionService
	Sessions     *services.Sessions
	Hub          *services.Hub
	Tokens       middleware.TokenParser

	DataSource     string
	ServiceToken   string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewApp builds the fiber app with every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "fitquest-api",
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: !containsWildcard(d.AllowedOrigins),
		MaxAge:           86400,
	}))
	app.Use(middleware.RequestLogger(d.Logger.Named("http")))

	auth := middleware.UserAuth(d.Tokens, false, d.Logger.Named("auth"))
	streamAuth := middleware.UserAuth(d.Tokens, true, d.Logger.Named("auth"))

	SetupHealthRoutes(app, d.DataSource, time.Now())
	SetupMissionRoutes(app, d.Missions)
	SetupWorkoutRoutes(app, d.Workouts)
	SetupUserRoutes(app, d.Users, d.Achievements, d.Steps, d.Sessions, auth)
	SetupEventRoutes(app, d.Hub, streamAuth, d.Logger)
	SetupAdminRoutes(app, d.Progression, middleware.ServiceToken(d.ServiceToken, d.Logger.Named("gateway")))
	return app
}

// fiber refuses AllowCredentials with a "*" origin.
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
