package router

import (
	"time"

	"github.com/ManuelReschke/TherapyGames/app/controllers"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Dependencies are the handlers and shared resources the routers mount.
type Dependencies struct {
	Webhooks *controllers.BillingWebhookController
	Health   *controllers.HealthController
	// RateLimit is the number of webhook requests accepted per minute and IP.
	RateLimit int
	// LimiterStorage shares limiter counters across replicas; nil keeps them in memory.
	LimiterStorage fiber.Storage
}

type WebhookRouter struct {
	webhooks  *controllers.BillingWebhookController
	rateLimit int
	storage   fiber.Storage
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	cfg := limiter.Config{
		Max:        h.rateLimit,
		Expiration: time.Minute,
		Storage:    h.storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}
	app.Post(constants.BillingWebhookRoute, limiter.New(cfg), h.webhooks.HandleWebhook)
}

func NewWebhookRouter(webhooks *controllers.BillingWebhookController, rateLimit int, storage fiber.Storage) *WebhookRouter {
	if rateLimit <= 0 {
		rateLimit = 120
	}
	return &WebhookRouter{webhooks: webhooks, rateLimit: rateLimit, storage: storage}
}

type HealthRouter struct {
	health *controllers.HealthController
}

func (h HealthRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, h.health.HandleHealth)
}

func NewHealthRouter(health *controllers.HealthController) *HealthRouter {
	if health == nil {
		health = controllers.NewHealthController(nil)
	}
	return &HealthRouter{health: health}
}
