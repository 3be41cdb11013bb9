package controllers

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/TherapyGames/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// BillingWebhookController receives provider webhooks and hands them to the
// synchronizer.
type BillingWebhookController struct {
	sync *billing.Synchronizer
}

func NewBillingWebhookController(sync *billing.Synchronizer) *BillingWebhookController {
	return &BillingWebhookController{sync: sync}
}

// HandleWebhook is POST /webhooks/billing.
func (h *BillingWebhookController) HandleWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get(billing.SignatureHeader))
	if hint := strings.TrimSpace(c.Get("X-Event-Name")); hint != "" {
		log.Debugf("[Billing Webhook] received %s", hint)
	}

	result, err := h.sync.Process(c.UserContext(), rawBody, signature)
	switch {
	case err == nil:
	case errors.Is(err, billing.ErrSecretNotConfigured):
		log.Errorf("[Billing Webhook] rejecting delivery: BILLING_WEBHOOK_SECRET is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_not_configured"})
	case errors.Is(err, billing.ErrInvalidSignature):
		log.Warnf("[Billing Webhook] rejected delivery with invalid signature from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case errors.Is(err, billing.ErrMalformedPayload):
		log.Warnf("[Billing Webhook] malformed payload (delivery %s): %v", result.DeliveryID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "account_sync_failed"})
	}

	if result.Outcome != billing.OutcomeApply {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true, "reason": result.Reason})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
