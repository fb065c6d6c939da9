package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/ManuelReschke/CourseFox/internal/pkg/security"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// RequireAPIAuth authenticates API requests by the login cookie or a bearer
// token and returns JSON 401 when neither verifies.
func RequireAPIAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractAuthToken(c)
		if token == "" {
			return unauthorized(c, "User not authenticated")
		}

		claims, err := security.VerifyAuthToken(token, secret)
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("Rejected auth token")
			return unauthorized(c, "Invalid token")
		}

		usercontext.SetUserContext(c, claims.UserID)
		return c.Next()
	}
}

func extractAuthToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(usercontext.AuthCookieName)); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
