package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/MemberGate/app/controllers"
	"github.com/ManuelReschke/MemberGate/internal/pkg/middleware"
	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
)

const (
	defaultRateLimit       = 120
	defaultRateLimitWindow = time.Minute
)

// Dependencies carries the controllers and settings the routers need.
type Dependencies struct {
	Codec *session.Codec

	Auth        *controllers.AuthController
	Webhooks    *controllers.WebhookController
	Memberships *controllers.MembershipController
	Profiles    *controllers.ProfileController
	Companies   *controllers.CompanyController
	Health      *controllers.HealthController

	// OperatorAPIKey guards the operator endpoints. Empty leaves them open.
	OperatorAPIKey string
	// AllowOrigins is the CORS origin list for the API. Empty disables CORS.
	AllowOrigins string

	// LimiterStorage backs the API rate limiter. Nil keeps counters in memory.
	LimiterStorage  fiber.Storage
	RateLimit       int
	RateLimitWindow time.Duration
}

type HttpRouter struct {
	deps Dependencies
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.deps.Codec))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"name": "membergate", "docs": "/docs/api/v1"})
	})
	if h.deps.Health != nil {
		app.Get("/healthz", h.deps.Health.HandleHealth)
	}
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{deps: deps}
}
