package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
	"github.com/ManuelReschke/MemberGate/internal/pkg/usercontext"
)

// UserContextMiddleware decodes the session cookie for every request and
// stores the result as the user context. It never rejects a request.
func UserContextMiddleware(codec *session.Codec) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := codec.FromRequest(c)
		switch {
		case err == nil:
			usercontext.Set(c, usercontext.FromClaims(claims))
		case errors.Is(err, session.ErrNoSession):
			usercontext.Set(c, usercontext.UserContext{})
		default:
			usercontext.Set(c, usercontext.UserContext{InvalidToken: true})
		}
		return c.Next()
	}
}
