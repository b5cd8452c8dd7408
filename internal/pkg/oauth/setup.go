package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/markbates/goth"

	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

const (
	StateCookieName = "whop_oauth_state"
	StateTTL        = 10 * time.Minute
	stateBytes      = 24
)

// Setup registers the Whop provider with goth and returns it.
// It is safe to call multiple times; the provider will just be re-registered.
func Setup(client *whop.Client) goth.Provider {
	provider := whop.NewProvider(client)
	goth.UseProviders(provider)
	return provider
}

// GenerateState returns 24 random bytes encoded as unpadded base64url.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func SetStateCookie(c *fiber.Ctx, state string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func ClearStateCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// StateFromCookie returns the state stored by SetStateCookie.
func StateFromCookie(c *fiber.Ctx) string {
	return c.Cookies(StateCookieName)
}
