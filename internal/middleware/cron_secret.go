package middleware

import (
	"strings"

	"carimport-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// CronSecret accepts requests whose "Authorization: Bearer <secret>" matches
// the bcrypt hash. An empty hash rejects everything.
func CronSecret(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret, ok := bearer(c.Get(fiber.HeaderAuthorization))
		if !ok || hash == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
