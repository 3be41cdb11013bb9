package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

const DefaultGatewayTimeout = 10 * time.Second

// Config holds the runtime settings of the synchronizer.
type Config struct {
	SigningSecret  string
	GatewayTimeout time.Duration
}

// Synchronizer mirrors provider subscription state onto local accounts.
type Synchronizer struct {
	cfg     Config
	plans   *PlanResolver
	gateway AccountGateway
	journal DeliveryJournal
	counter OutcomeCounter
}

// OutcomeCounter tallies delivery outcomes for operators.
type OutcomeCounter interface {
	AddOutcome(ctx context.Context, outcome string) error
}

// Delivery outcomes counted before a journal entry exists.
const (
	CounterOutcomeInvalidSignature = "invalid_signature"
	CounterOutcomeNotConfigured    = "not_configured"
)

// NewSynchronizer wires the synchronizer. journal may be nil.
func NewSynchronizer(cfg Config, plans *PlanResolver, gateway AccountGateway, journal DeliveryJournal) *Synchronizer {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if plans == nil {
		plans = DefaultPlanResolver()
	}
	return &Synchronizer{
		cfg:     cfg,
		plans:   plans,
		gateway: gateway,
		journal: journal,
	}
}

// WithCounter attaches an outcome counter and returns s.
func (s *Synchronizer) WithCounter(counter OutcomeCounter) *Synchronizer {
	s.counter = counter
	return s
}

// Configured reports whether a signing secret is present.
func (s *Synchronizer) Configured() bool {
	return strings.TrimSpace(s.cfg.SigningSecret) != ""
}

// Process verifies, decodes and applies one webhook delivery. The returned
// error wraps one of ErrSecretNotConfigured, ErrInvalidSignature,
// ErrMalformedPayload or ErrPersistence. A nil error means the delivery can be
// acknowledged, including no-op outcomes.
func (s *Synchronizer) Process(ctx context.Context, payload []byte, signature string) (Result, error) {
	if err := VerifySignature(payload, s.cfg.SigningSecret, signature); err != nil {
		if errors.Is(err, ErrSecretNotConfigured) {
			s.count(ctx, CounterOutcomeNotConfigured)
		} else {
			s.count(ctx, CounterOutcomeInvalidSignature)
		}
		return Result{}, err
	}

	// The transport may abandon the request; the write must still finish so
	// the response reflects what happened to the account.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.GatewayTimeout)
	defer cancel()

	result := Result{DeliveryID: uuid.NewString()}

	ev, decodeErr := DecodeEvent(payload)
	if ev != nil {
		result.EventName = ev.EventName
		result.AccountID = derefString(ev.AccountID)
	}
	entry := s.recordDelivery(ctx, payload, ev, result.DeliveryID)

	if decodeErr != nil {
		s.finish(ctx, entry, models.WebhookOutcomeInvalid, decodeErr)
		return result, decodeErr
	}
	if ev.TestMode {
		log.Infof("[Billing Webhook] %s is a test mode event (delivery %s)", ev.EventName, result.DeliveryID)
	}

	decision := Transition(ev, s.plans)
	result.Outcome = decision.Outcome
	result.Reason = decision.Reason

	switch decision.Outcome {
	case OutcomeNoAccount:
		log.Warnf("[Billing Webhook] %s without account id acknowledged without changes (delivery %s)", ev.EventName, result.DeliveryID)
		s.finish(ctx, entry, models.WebhookOutcomeNoAccount, nil)
		return result, nil
	case OutcomeInformational:
		log.Infof("[Billing Webhook] %s is informational only (delivery %s)", ev.EventName, result.DeliveryID)
		s.finish(ctx, entry, models.WebhookOutcomeIgnored, nil)
		return result, nil
	case OutcomeUnhandled:
		log.Infof("[Billing Webhook] unhandled delivery %s: %s", result.DeliveryID, decision.Reason)
		s.finish(ctx, entry, models.WebhookOutcomeIgnored, nil)
		return result, nil
	}

	result.AccountID = decision.AccountID
	result.Update = decision.Update

	if err := s.gateway.UpdateAccount(ctx, decision.AccountID, *decision.Update); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			result.Outcome = OutcomeUnknownAccount
			result.Reason = "no account matches the custom data user id"
			log.Warnf("[Billing Webhook] %s for unknown account %s acknowledged without changes (delivery %s)", ev.EventName, decision.AccountID, result.DeliveryID)
			s.finish(ctx, entry, models.WebhookOutcomeUnknownTarget, nil)
			return result, nil
		}
		log.Errorf("[Billing Webhook] %s for account %s could not be applied (delivery %s): %v", ev.EventName, decision.AccountID, result.DeliveryID, err)
		s.finish(ctx, entry, models.WebhookOutcomeFailed, err)
		return result, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Infof("[Billing Webhook] %s applied to account %s: status=%s plan=%s (delivery %s)",
		ev.EventName, decision.AccountID, decision.Update.Status, planLabel(decision.Update), result.DeliveryID)
	s.finish(ctx, entry, models.WebhookOutcomeApplied, nil)
	return result, nil
}

func (s *Synchronizer) recordDelivery(ctx context.Context, payload []byte, ev *Event, deliveryID string) *models.BillingWebhookEvent {
	if s.journal == nil {
		return nil
	}
	sum := sha256.Sum256(payload)
	entry := &models.BillingWebhookEvent{
		Provider:       models.BillingProviderLemonSqueezy,
		DeliveryKey:    "sha256:" + hex.EncodeToString(sum[:]),
		LastDeliveryID: deliveryID,
		PayloadJSON:    string(payload),
		DeliveryCount:  1,
	}
	if ev != nil {
		entry.EventName = string(ev.EventName)
		entry.AccountID = derefString(ev.AccountID)
		entry.TestMode = ev.TestMode
	}
	stored, err := s.journal.RecordDelivery(ctx, entry)
	if err != nil {
		log.Warnf("[Billing Webhook] delivery %s could not be journaled: %v", deliveryID, err)
		return nil
	}
	if stored.DeliveryCount > 1 {
		log.Infof("[Billing Webhook] delivery %s is redelivery #%d of an identical payload", deliveryID, stored.DeliveryCount)
	}
	return stored
}

func (s *Synchronizer) finish(ctx context.Context, entry *models.BillingWebhookEvent, outcome string, processingErr error) {
	s.count(ctx, outcome)
	if s.journal == nil || entry == nil {
		return
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	if err := s.journal.MarkDeliveryProcessed(ctx, entry.ID, outcome, errMsg); err != nil {
		log.Warnf("[Billing Webhook] journal entry %d could not be marked: %v", entry.ID, err)
	}
}

func (s *Synchronizer) count(ctx context.Context, outcome string) {
	if s.counter == nil {
		return
	}
	if err := s.counter.AddOutcome(ctx, outcome); err != nil {
		log.Warnf("[Billing Webhook] outcome counter %s not updated: %v", outcome, err)
	}
}

func planLabel(update *AccountUpdate) string {
	if update == nil || update.Plan == nil {
		return "unchanged"
	}
	return string(*update.Plan)
}
