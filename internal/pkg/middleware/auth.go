package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MemberGate/internal/pkg/usercontext"
)

// RequireAPISessionAuth ensures a valid session for API routes and returns JSON 401 otherwise.
// It expects UserContextMiddleware to have run.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if uc.IsLoggedIn {
		return c.Next()
	}
	if uc.InvalidToken {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
}
