package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/app/controllers"
	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/cache"
	"github.com/ManuelReschke/MemberGate/internal/pkg/config"
	"github.com/ManuelReschke/MemberGate/internal/pkg/database"
	"github.com/ManuelReschke/MemberGate/internal/pkg/env"
	applog "github.com/ManuelReschke/MemberGate/internal/pkg/logger"
	"github.com/ManuelReschke/MemberGate/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/MemberGate/internal/pkg/oauth"
	"github.com/ManuelReschke/MemberGate/internal/pkg/router"
	"github.com/ManuelReschke/MemberGate/internal/pkg/session"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// webhook payloads are small; anything bigger is not from the provider
const bodyLimit = 1 << 20

func main() {
	env.SetupEnvFile()
	cfg, err := config.Load(env.Environ())
	if err != nil {
		log.Fatal(err)
	}

	zlog := applog.Setup(cfg.IsDev())
	defer func() { _ = zlog.Sync() }()

	app, err := NewApplication(cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to start application", zap.Error(err))
	}

	zlog.Info("listening", zap.String("addr", cfg.App.Addr()))
	if err := app.Listen(cfg.App.Addr()); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func NewApplication(cfg *config.Config, zlog *zap.Logger) (*fiber.App, error) {
	db, err := database.Open(cfg.DB, zlog)
	if err != nil {
		return nil, err
	}

	redisClient, cacheErr := cache.Setup(cfg.Cache, zlog)
	var limiterStorage, companyStorage fiber.Storage
	if cacheErr == nil {
		limiterStorage = cache.NewFiberStorage(redisClient, cache.DatabaseLimiter)
		companyStorage = cache.NewFiberStorage(redisClient, cache.DatabaseCache)
	} else {
		zlog.Warn("cache unavailable, rate limits stay in memory and company lookups are not cached")
	}

	whopClient := whop.NewClientFromConfig(cfg.Whop, zlog)
	zlog.Info("whop client configured",
		zap.String("client_id", cfg.Whop.ClientID),
		zap.String("api_key", applog.Mask(cfg.Whop.APIKey)),
		zap.String("redirect_uri", cfg.Whop.RedirectURI),
	)
	if cfg.Whop.WebhookSecret == "" {
		zlog.Warn("WHOP_WEBHOOK_SECRET is not set, webhook deliveries will be rejected")
	}
	provider := oauth.Setup(whopClient)

	codec, err := session.NewCodec(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	actionCounters := counter.NewWebhookActions(redisClient)
	service := webhook.NewService(repos, whopClient, zlog).WithCounter(actionCounters)
	secureCookies := !cfg.IsDev()

	deps := router.Dependencies{
		Codec:       codec,
		Auth:        controllers.NewAuthController(provider, codec, service.Reconciler(), secureCookies, zlog),
		Webhooks:    controllers.NewWebhookController(service, repos.Events, zlog).WithStats(actionCounters),
		Memberships: controllers.NewMembershipController(repos.Memberships, service.Reconciler(), whopClient, zlog),
		Profiles:    controllers.NewProfileController(repos.Profiles, service.Reconciler(), zlog),
		Companies:   controllers.NewCompanyController(whopClient, companyStorage, zlog),
		Health: controllers.NewHealthController(map[string]controllers.HealthCheck{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"cache":    redisCheck(redisClient),
		}, zlog),
		OperatorAPIKey: cfg.Ops.OperatorAPIKey,
		AllowOrigins:   cfg.PublicOrigin(),
		LimiterStorage: limiterStorage,
	}

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if cfg.Ops.MetricsEnabled() {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				cfg.Ops.MetricsUser: cfg.Ops.MetricsPassword,
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		zlog.Warn("openapi spec not found, /docs/api/v1 is disabled")
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return app, nil
}

func redisCheck(client *redis.Client) controllers.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// findOpenAPISpec looks for docs/v1/openapi.yml relative to the usual working directories.
func findOpenAPISpec() string {
	for _, base := range []string{"./", "../../", "../../../"} {
		path := base + "docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
