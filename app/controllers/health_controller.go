package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthController reports liveness and database reachability.
type HealthController struct {
	ping func(ctx context.Context) error
}

func NewHealthController(ping func(ctx context.Context) error) *HealthController {
	return &HealthController{ping: ping}
}

// HandleHealth is GET /healthz.
func (h *HealthController) HandleHealth(c *fiber.Ctx) error {
	dbStatus := "ok"
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			dbStatus = "unavailable"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"status": "ok", "database": dbStatus})
}
