package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const HeaderServiceToken = "X-Service-Token"

// ServiceToken guards internal routes (admin) with a shared secret sent in
// X-Service-Token or as "Bearer <token>". An empty expected token disables
// those routes entirely.
func ServiceToken(expected string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "service token not configured",
			})
		}
		token := strings.TrimSpace(c.Get(HeaderServiceToken))
		if token == "" {
			token = bearer(c)
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service authentication token missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Warn("invalid service token", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service authentication token",
			})
		}
		return c.Next()
	}
}
