package billing

import (
	"time"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/entitlements"
)

// EventName is the provider action tag from meta.event_name.
type EventName string

const (
	EventSubscriptionCreated          EventName = "subscription_created"
	EventSubscriptionUpdated          EventName = "subscription_updated"
	EventSubscriptionPlanChanged      EventName = "subscription_plan_changed"
	EventSubscriptionResumed          EventName = "subscription_resumed"
	EventSubscriptionUnpaused         EventName = "subscription_unpaused"
	EventSubscriptionPaymentSuccess   EventName = "subscription_payment_success"
	EventSubscriptionPaymentRecovered EventName = "subscription_payment_recovered"
	EventSubscriptionPaymentFailed    EventName = "subscription_payment_failed"
	EventSubscriptionCancelled        EventName = "subscription_cancelled"
	EventSubscriptionExpired          EventName = "subscription_expired"
	EventSubscriptionPaused           EventName = "subscription_paused"
	EventOrderCreated                 EventName = "order_created"
)

// Provider status vocabulary as sent in data.attributes.status.
const (
	ProviderStatusActive    = "active"
	ProviderStatusOnTrial   = "on_trial"
	ProviderStatusCancelled = "cancelled"
	ProviderStatusExpired   = "expired"
	ProviderStatusPaused    = "paused"
	ProviderStatusPastDue   = "past_due"
	ProviderStatusUnpaid    = "unpaid"
)

// Event is a decoded webhook notification. Everything except EventName is
// optional and nil when the payload did not carry a usable value.
type Event struct {
	EventName      EventName
	AccountID      *string
	SubscriptionID *string
	VariantID      *string
	ProviderStatus *string
	EndsAt         *time.Time
	RenewsAt       *time.Time
	DataType       string
	TestMode       bool
}

// AccountUpdate is the absolute target state for one account. Nil fields are
// left untouched by the gateway.
type AccountUpdate struct {
	Plan           *entitlements.Plan
	Status         models.SubscriptionStatus
	SubscriptionID *string
	EndsAt         *time.Time
}

// Outcome classifies what the transition engine decided for an event.
type Outcome string

const (
	OutcomeApply          Outcome = "apply"
	OutcomeInformational  Outcome = "informational"
	OutcomeUnhandled      Outcome = "unhandled"
	OutcomeNoAccount      Outcome = "no_account"
	OutcomeUnknownAccount Outcome = "unknown_account"
)

// Decision is the engine result. Update is set only for OutcomeApply.
type Decision struct {
	Outcome   Outcome
	AccountID string
	Update    *AccountUpdate
	Reason    string
}

// Result describes a processed delivery for the HTTP adapter and the journal.
type Result struct {
	DeliveryID string
	EventName  EventName
	AccountID  string
	Outcome    Outcome
	Reason     string
	Update     *AccountUpdate
}

func stringPtr(s string) *string {
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
