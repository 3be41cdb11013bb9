package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/TherapyGames/internal/pkg/billing"
	"github.com/gofiber/fiber/v2"
)

type replayOptions struct {
	url      string
	secret   string
	unsigned bool
	timeout  time.Duration
}

// replay posts payload to opts.url and returns the status and response body.
func replay(payload []byte, opts replayOptions) (int, string, error) {
	if !json.Valid(payload) {
		return 0, "", errors.New("payload is not valid JSON")
	}
	if !opts.unsigned && opts.secret == "" {
		return 0, "", errors.New("no signing secret: set BILLING_WEBHOOK_SECRET or pass --secret")
	}

	agent := fiber.Post(opts.url).
		Timeout(opts.timeout).
		ContentType(fiber.MIMEApplicationJSON).
		Body(payload)
	if !opts.unsigned {
		agent.Set(billing.SignatureHeader, billing.Sign(payload, opts.secret))
	}
	if ev, err := billing.DecodeEvent(payload); err == nil {
		agent.Set("X-Event-Name", string(ev.EventName))
	}

	status, body, errs := agent.String()
	if len(errs) > 0 {
		return 0, "", fmt.Errorf("posting webhook: %w", errors.Join(errs...))
	}
	return status, body, nil
}
