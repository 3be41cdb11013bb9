package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/entitlements"
	"github.com/stretchr/testify/require"
)

// memoryGateway applies updates with the same nil-means-untouched rule as the
// GORM gateway.
type memoryGateway struct {
	mu       sync.Mutex
	accounts map[string]*models.Profile
	calls    int
	err      error
}

func newMemoryGateway(accounts ...models.Profile) *memoryGateway {
	g := &memoryGateway{accounts: map[string]*models.Profile{}}
	for i := range accounts {
		a := accounts[i]
		g.accounts[a.ID] = &a
	}
	return g
}

func freshProfile(id string) models.Profile {
	return models.Profile{
		ID:                 id,
		Plan:               string(entitlements.PlanFree),
		SubscriptionStatus: models.SubscriptionStatusNone,
	}
}

func (g *memoryGateway) UpdateAccount(_ context.Context, accountID string, update AccountUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return g.err
	}
	acc, ok := g.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	applyUpdate(acc, update)
	return nil
}

func (g *memoryGateway) get(t *testing.T, id string) models.Profile {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	acc, ok := g.accounts[id]
	require.True(t, ok, "account %s missing", id)
	return *acc
}

func applyUpdate(acc *models.Profile, update AccountUpdate) {
	acc.SubscriptionStatus = update.Status
	if update.Plan != nil {
		acc.Plan = string(*update.Plan)
	}
	if update.SubscriptionID != nil {
		id := *update.SubscriptionID
		acc.SubscriptionID = &id
	}
	if update.EndsAt != nil {
		t := update.EndsAt.UTC()
		acc.SubscriptionEndsAt = &t
	}
}

type recordingJournal struct {
	mu        sync.Mutex
	entries   map[string]*models.BillingWebhookEvent
	outcomes  map[uint]string
	errors    map[uint]string
	nextID    uint
	recordErr error
}

func newRecordingJournal() *recordingJournal {
	return &recordingJournal{
		entries:  map[string]*models.BillingWebhookEvent{},
		outcomes: map[uint]string{},
		errors:   map[uint]string{},
	}
}

func (j *recordingJournal) RecordDelivery(_ context.Context, event *models.BillingWebhookEvent) (*models.BillingWebhookEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.recordErr != nil {
		return nil, j.recordErr
	}
	if existing, ok := j.entries[event.DeliveryKey]; ok {
		existing.DeliveryCount++
		existing.LastDeliveryID = event.LastDeliveryID
		copied := *existing
		return &copied, nil
	}
	j.nextID++
	stored := *event
	stored.ID = j.nextID
	j.entries[event.DeliveryKey] = &stored
	copied := stored
	return &copied, nil
}

func (j *recordingJournal) MarkDeliveryProcessed(_ context.Context, id uint, outcome, processingError string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes[id] = outcome
	j.errors[id] = processingError
	return nil
}

type payloadOptions struct {
	accountID      interface{}
	subscriptionID interface{}
	dataType       string
	variantID      interface{}
	status         string
	endsAt         *time.Time
	renewsAt       *time.Time
}

func buildPayload(t *testing.T, eventName EventName, opts payloadOptions) []byte {
	t.Helper()

	meta := map[string]interface{}{"event_name": string(eventName)}
	if opts.accountID != nil {
		meta["custom_data"] = map[string]interface{}{"user_id": opts.accountID}
	}
	attrs := map[string]interface{}{}
	if opts.variantID != nil {
		attrs["variant_id"] = opts.variantID
	}
	if opts.status != "" {
		attrs["status"] = opts.status
	}
	if opts.endsAt != nil {
		attrs["ends_at"] = opts.endsAt.Format(time.RFC3339)
	}
	if opts.renewsAt != nil {
		attrs["renews_at"] = opts.renewsAt.Format(time.RFC3339)
	}
	dataType := opts.dataType
	if dataType == "" {
		dataType = "subscriptions"
	}
	data := map[string]interface{}{"type": dataType, "attributes": attrs}
	if opts.subscriptionID != nil {
		data["id"] = opts.subscriptionID
	}

	body, err := json.Marshal(map[string]interface{}{"meta": meta, "data": data})
	require.NoError(t, err)
	return body
}
