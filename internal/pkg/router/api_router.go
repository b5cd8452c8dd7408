package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/MemberGate/internal/pkg/middleware"
)

const webhookPath = "/api/webhooks/whop"

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	handlers := []fiber.Handler{h.rateLimiter()}
	if h.deps.AllowOrigins != "" {
		handlers = append(handlers, cors.New(cors.Config{
			AllowOrigins:     h.deps.AllowOrigins,
			AllowMethods:     "GET,POST,PUT,OPTIONS",
			AllowCredentials: true,
		}))
	}
	api := app.Group("/api", handlers...)

	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Webhooks
	api.Post("/webhooks/whop", h.deps.Webhooks.HandleWhopWebhook)
	api.Get("/webhooks/events", middleware.OperatorAPIKeyMiddleware(h.deps.OperatorAPIKey), h.deps.Webhooks.HandleListEvents)
	api.Get("/webhooks/stats", middleware.OperatorAPIKeyMiddleware(h.deps.OperatorAPIKey), h.deps.Webhooks.HandleStats)

	// OAuth and session
	auth := api.Group("/auth")
	auth.Get("/login", h.deps.Auth.HandleLogin)
	auth.Get("/callback", h.deps.Auth.HandleCallback)
	auth.Get("/me", middleware.RequireAPISessionAuth, h.deps.Auth.HandleMe)
	auth.Post("/logout", h.deps.Auth.HandleLogout)

	// Session protected
	api.Get("/membership/check", middleware.RequireAPISessionAuth, h.deps.Memberships.HandleCheck)
	api.Get("/memberships/sync", middleware.RequireAPISessionAuth, h.deps.Memberships.HandleListStored)
	api.Post("/memberships/sync", middleware.RequireAPISessionAuth, h.deps.Memberships.HandleSync)
	api.Get("/user/profile", middleware.RequireAPISessionAuth, h.deps.Profiles.HandleGet)
	api.Put("/user/profile", middleware.RequireAPISessionAuth, h.deps.Profiles.HandleUpdate)

	api.Get("/companies/:companyId", h.deps.Companies.HandleGet)
}

// rateLimiter limits API calls per client IP. Provider webhooks are exempt.
func (h ApiRouter) rateLimiter() fiber.Handler {
	limit := h.deps.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	window := h.deps.RateLimitWindow
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	return limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == webhookPath
		},
		Max:        limit,
		Expiration: window,
		Storage:    h.deps.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
