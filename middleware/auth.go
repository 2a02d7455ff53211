package middleware

import (
	"strings"

	"fitquest-api/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalUserID = "user_id"
	LocalEmail  = "email"
)

// TokenParser verifies a session token.
type TokenParser interface {
	Parse(raw string) (*utils.Claims, error)
}

func bearer(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UserAuth requires a valid session token and stores the user id and email
// in Locals. With allowQuery the token may also come from ?token=, which
// EventSource clients need since they cannot set headers.
func UserAuth(tokens TokenParser, allowQuery bool, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearer(c)
		if raw == "" && allowQuery {
			raw = strings.TrimSpace(c.Query("token"))
		}
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization token missing",
			})
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			logger.Debug("rejected token", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalEmail, claims.Email)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" on public routes.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
