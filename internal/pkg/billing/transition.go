package billing

import (
	"fmt"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/entitlements"
)

// transitionRule computes the absolute target for an event. It never looks at
// the stored account, so replays and duplicates converge on the same row.
type transitionRule func(ev *Event, plans *PlanResolver) Decision

var transitionTable = map[EventName]transitionRule{
	EventSubscriptionCreated:          activateRule,
	EventSubscriptionResumed:          activateRule,
	EventSubscriptionUnpaused:         activateRule,
	EventSubscriptionUpdated:          mirrorStatusRule,
	EventSubscriptionPlanChanged:      mirrorStatusRule,
	EventSubscriptionPaymentSuccess:   paymentSucceededRule,
	EventSubscriptionPaymentRecovered: paymentSucceededRule,
	EventSubscriptionPaymentFailed:    revokeRule(models.SubscriptionStatusExpired, false),
	EventSubscriptionCancelled:        revokeRule(models.SubscriptionStatusCancelled, true),
	EventSubscriptionExpired:          revokeRule(models.SubscriptionStatusExpired, true),
	EventSubscriptionPaused:           revokeRule(models.SubscriptionStatusPaused, false),
	EventOrderCreated:                 informationalRule,
}

// HandledEvents lists every event name with a transition rule.
func HandledEvents() []EventName {
	names := make([]EventName, 0, len(transitionTable))
	for name := range transitionTable {
		names = append(names, name)
	}
	return names
}

// Transition maps an event to the account mutation it implies.
func Transition(ev *Event, plans *PlanResolver) Decision {
	if ev == nil {
		return Decision{Outcome: OutcomeUnhandled, Reason: "nil event"}
	}
	rule, ok := transitionTable[ev.EventName]
	if !ok {
		return Decision{Outcome: OutcomeUnhandled, Reason: fmt.Sprintf("unhandled event %q", ev.EventName)}
	}

	d := rule(ev, plans)
	if d.Outcome != OutcomeApply {
		return d
	}
	if ev.AccountID == nil {
		return Decision{Outcome: OutcomeNoAccount, Reason: "meta.custom_data.user_id is missing"}
	}
	d.AccountID = *ev.AccountID
	return d
}

func activateRule(ev *Event, plans *PlanResolver) Decision {
	status := models.SubscriptionStatusActive
	if derefString(ev.ProviderStatus) == ProviderStatusOnTrial {
		status = models.SubscriptionStatusOnTrial
	}
	return grant(ev, plans, status)
}

func mirrorStatusRule(ev *Event, plans *PlanResolver) Decision {
	switch provider := derefString(ev.ProviderStatus); provider {
	case ProviderStatusActive:
		return grant(ev, plans, models.SubscriptionStatusActive)
	case ProviderStatusOnTrial:
		return grant(ev, plans, models.SubscriptionStatusOnTrial)
	case ProviderStatusPastDue, ProviderStatusUnpaid:
		// A payment retry in progress grants no access.
		return revoke(ev, models.SubscriptionStatusExpired, true)
	case ProviderStatusCancelled:
		return revoke(ev, models.SubscriptionStatusCancelled, true)
	case ProviderStatusExpired:
		return revoke(ev, models.SubscriptionStatusExpired, true)
	case ProviderStatusPaused:
		return revoke(ev, models.SubscriptionStatusPaused, true)
	case "":
		return Decision{Outcome: OutcomeUnhandled, Reason: "update without provider status"}
	default:
		return Decision{Outcome: OutcomeUnhandled, Reason: fmt.Sprintf("unknown provider status %q", provider)}
	}
}

func paymentSucceededRule(ev *Event, plans *PlanResolver) Decision {
	return grant(ev, plans, models.SubscriptionStatusActive)
}

func revokeRule(status models.SubscriptionStatus, passEndsAt bool) transitionRule {
	return func(ev *Event, _ *PlanResolver) Decision {
		return revoke(ev, status, passEndsAt)
	}
}

func informationalRule(ev *Event, _ *PlanResolver) Decision {
	return Decision{Outcome: OutcomeInformational, Reason: fmt.Sprintf("%s carries no subscription state", ev.EventName)}
}

// grant keeps the stored plan when the payload has no variant id, e.g. on
// invoice payloads. status is always entitling here.
func grant(ev *Event, plans *PlanResolver, status models.SubscriptionStatus) Decision {
	update := &AccountUpdate{
		Status:         status,
		SubscriptionID: ev.SubscriptionID,
		EndsAt:         ev.ExpiryHint(),
	}
	if ev.VariantID != nil {
		plan := plans.Resolve(*ev.VariantID)
		update.Plan = &plan
	}
	return Decision{Outcome: OutcomeApply, Update: update}
}

func revoke(ev *Event, status models.SubscriptionStatus, passEndsAt bool) Decision {
	free := entitlements.PlanFree
	update := &AccountUpdate{
		Plan:           &free,
		Status:         status,
		SubscriptionID: ev.SubscriptionID,
	}
	if passEndsAt {
		update.EndsAt = ev.ExpiryHint()
	}
	return Decision{Outcome: OutcomeApply, Update: update}
}
