package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// WebhookMetricsController exposes the webhook outcome totals.
type WebhookMetricsController struct {
	snapshot func(ctx context.Context) (map[string]int64, error)
}

func NewWebhookMetricsController(snapshot func(ctx context.Context) (map[string]int64, error)) *WebhookMetricsController {
	return &WebhookMetricsController{snapshot: snapshot}
}

// HandleWebhookMetrics is GET /metrics/billing.
func (h *WebhookMetricsController) HandleWebhookMetrics(c *fiber.Ctx) error {
	totals, err := h.snapshot(c.UserContext())
	if err != nil {
		log.Warnf("[Billing Webhook] reading outcome totals failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "metrics_unavailable"})
	}
	return c.JSON(fiber.Map{"outcomes": totals})
}
