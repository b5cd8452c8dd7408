package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
)

// UserContext represents the session state of a request
type UserContext struct {
	User         session.User `json:"user"`
	AccessToken  string       `json:"-"`
	RefreshToken string       `json:"-"`
	IsLoggedIn   bool         `json:"is_logged_in"`
	// InvalidToken is set when a session cookie was sent but failed verification.
	InvalidToken bool `json:"-"`
}

func FromClaims(claims *session.Claims) UserContext {
	return UserContext{
		User:         claims.User,
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		IsLoggedIn:   true,
	}
}

// Set stores uc in the request locals
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	if uc.IsLoggedIn {
		c.Locals(KeyUserID, uc.User.ID)
		c.Locals(KeyUsername, uc.User.Username)
	}
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's Whop id, or empty string if not logged in
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).User.ID
}

// GetUsername returns the current user's username, or empty string if not logged in
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).User.Username
}
