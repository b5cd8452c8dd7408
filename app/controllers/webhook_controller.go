package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/MemberGate/app/models"
	"github.com/ManuelReschke/MemberGate/app/repository"
	"github.com/ManuelReschke/MemberGate/internal/pkg/webhook"
	"github.com/ManuelReschke/MemberGate/internal/pkg/whop"
)

// ActionStats reports how many live deliveries took each action, see counter.WebhookActions.
type ActionStats interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
}

// WebhookController receives provider deliveries and exposes the event log.
type WebhookController struct {
	service *webhook.Service
	events  repository.WebhookEventRepository
	stats   ActionStats
	log     *zap.Logger
}

func NewWebhookController(service *webhook.Service, events repository.WebhookEventRepository, log *zap.Logger) *WebhookController {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookController{service: service, events: events, log: log.Named("webhook_controller")}
}

// WithStats enables the action counters on HandleStats.
func (wc *WebhookController) WithStats(stats ActionStats) *WebhookController {
	wc.stats = stats
	return wc
}

// HandleWhopWebhook verifies, logs and reconciles one delivery.
func (wc *WebhookController) HandleWhopWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get(whop.SignatureHeader)

	ctx, cancel := requestContext()
	defer cancel()

	event, err := wc.service.Ingest(ctx, rawBody, signature)
	switch {
	case err == nil:
	case errors.Is(err, webhook.ErrInvalidSignature):
		wc.log.Warn("rejected webhook with invalid signature", zap.String("ip", c.IP()))
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, whop.ErrWebhookSecretMissing):
		wc.log.Error("webhook secret is not configured")
		return errorJSON(c, fiber.StatusInternalServerError, "Webhook secret not configured")
	case errors.Is(err, webhook.ErrLogEvent):
		wc.log.Error("failed to log webhook event", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to log event")
	default:
		wc.log.Error("webhook processing failed", zap.Error(err))
		return errorJSON(c, fiber.StatusInternalServerError, "Webhook processing failed")
	}

	return c.JSON(fiber.Map{"success": true, "eventId": event.ID})
}

// HandleListEvents returns the most recent logged events, newest first.
func (wc *WebhookController) HandleListEvents(c *fiber.Ctx) error {
	limit := parseLimit(c.Query("limit"))

	ctx, cancel := requestContext()
	defer cancel()

	events, err := wc.events.ListRecent(ctx, limit)
	if err != nil {
		wc.log.Error("failed to fetch webhook events", zap.Error(err))
		events = nil
	}
	if events == nil {
		events = []models.WebhookEvent{}
	}

	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}

// HandleStats returns the per-action delivery counters. Without a cache the
// counters are reported as unavailable.
func (wc *WebhookController) HandleStats(c *fiber.Ctx) error {
	if wc.stats == nil {
		return c.JSON(fiber.Map{"available": false, "actions": fiber.Map{}})
	}

	ctx, cancel := requestContext()
	defer cancel()

	counts, err := wc.stats.Snapshot(ctx)
	if err != nil {
		wc.log.Error("failed to read webhook counters", zap.Error(err))
		return c.JSON(fiber.Map{"available": false, "actions": fiber.Map{}})
	}
	return c.JSON(fiber.Map{"available": true, "actions": counts})
}
