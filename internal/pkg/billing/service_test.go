package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"github.com/ManuelReschke/TherapyGames/internal/pkg/entitlements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func newTestSynchronizer(gateway AccountGateway, journal DeliveryJournal) *Synchronizer {
	return NewSynchronizer(Config{SigningSecret: testSecret, GatewayTimeout: time.Second}, DefaultPlanResolver(), gateway, journal)
}

func TestProcess_TrialCreationGrantsPro(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	sync := newTestSynchronizer(gw, nil)

	body := buildPayload(t, EventSubscriptionCreated, payloadOptions{
		accountID: "acc-1", subscriptionID: "101", variantID: 482161, status: ProviderStatusOnTrial,
	})
	res, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)

	assert.Equal(t, OutcomeApply, res.Outcome)
	assert.NotEmpty(t, res.DeliveryID)
	acc := gw.get(t, "acc-1")
	assert.Equal(t, string(entitlements.PlanPro), acc.Plan)
	assert.Equal(t, models.SubscriptionStatusOnTrial, acc.SubscriptionStatus)
	require.NotNil(t, acc.SubscriptionID)
	assert.Equal(t, "101", *acc.SubscriptionID)
}

func TestProcess_PaymentFailedRevokesCabinet(t *testing.T) {
	ends := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	gw := newMemoryGateway(models.Profile{
		ID:                 "acc-2",
		Plan:               string(entitlements.PlanCabinet),
		SubscriptionStatus: models.SubscriptionStatusActive,
		SubscriptionEndsAt: &ends,
	})
	sync := newTestSynchronizer(gw, nil)

	later := ends.Add(30 * 24 * time.Hour)
	body := buildPayload(t, EventSubscriptionPaymentFailed, payloadOptions{
		accountID: "acc-2", subscriptionID: "9", dataType: "subscription-invoices", renewsAt: &later,
	})
	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)

	acc := gw.get(t, "acc-2")
	assert.Equal(t, string(entitlements.PlanFree), acc.Plan)
	assert.Equal(t, models.SubscriptionStatusExpired, acc.SubscriptionStatus)
	require.NotNil(t, acc.SubscriptionEndsAt)
	assert.True(t, acc.SubscriptionEndsAt.Equal(ends), "payment failure keeps the previous expiry")
}

func TestProcess_CancelledStoresEndsAt(t *testing.T) {
	gw := newMemoryGateway(models.Profile{ID: "acc-3", Plan: string(entitlements.PlanPro), SubscriptionStatus: models.SubscriptionStatusActive})
	sync := newTestSynchronizer(gw, nil)

	ends := time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)
	body := buildPayload(t, EventSubscriptionCancelled, payloadOptions{
		accountID: "acc-3", subscriptionID: "77", variantID: VariantProMonthly, status: ProviderStatusCancelled, endsAt: &ends,
	})
	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)

	acc := gw.get(t, "acc-3")
	assert.Equal(t, string(entitlements.PlanFree), acc.Plan)
	assert.Equal(t, models.SubscriptionStatusCancelled, acc.SubscriptionStatus)
	require.NotNil(t, acc.SubscriptionEndsAt)
	assert.True(t, acc.SubscriptionEndsAt.Equal(ends))
}

func TestProcess_ConfigurationError(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	journal := newRecordingJournal()
	sync := NewSynchronizer(Config{}, nil, gw, journal)
	assert.False(t, sync.Configured())

	body := buildPayload(t, EventSubscriptionCreated, payloadOptions{accountID: "acc-1", variantID: VariantProMonthly})
	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSecretNotConfigured))
	assert.Equal(t, 0, gw.calls)
	assert.Empty(t, journal.entries)
}

func TestProcess_InvalidSignatureTouchesNothing(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	journal := newRecordingJournal()
	sync := newTestSynchronizer(gw, journal)

	body := buildPayload(t, EventSubscriptionCreated, payloadOptions{accountID: "acc-1", variantID: VariantProMonthly})
	for _, sig := range []string{"", "deadbeef", Sign(body, "wrong-secret")} {
		_, err := sync.Process(context.Background(), body, sig)
		assert.True(t, errors.Is(err, ErrInvalidSignature), "sig %q: %v", sig, err)
	}
	assert.Equal(t, 0, gw.calls)
	assert.Empty(t, journal.entries)
	assert.Equal(t, freshProfile("acc-1"), gw.get(t, "acc-1"))
}

func TestProcess_MalformedPayload(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	journal := newRecordingJournal()
	sync := newTestSynchronizer(gw, journal)

	body := []byte(`{"meta":{"custom_data":{"user_id":"acc-1"}}}`)
	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedPayload))
	assert.Equal(t, 0, gw.calls)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, models.WebhookOutcomeInvalid, journal.outcomes[1])
	assert.NotEmpty(t, journal.errors[1])
}

func TestProcess_NoOpsAreAcknowledged(t *testing.T) {
	tests := []struct {
		name    string
		body    func(t *testing.T) []byte
		outcome Outcome
	}{
		{
			name: "missing account",
			body: func(t *testing.T) []byte {
				return buildPayload(t, EventSubscriptionCreated, payloadOptions{variantID: VariantProMonthly, status: ProviderStatusActive})
			},
			outcome: OutcomeNoAccount,
		},
		{
			name: "unknown event",
			body: func(t *testing.T) []byte {
				return buildPayload(t, EventName("affiliate_activated"), payloadOptions{accountID: "acc-1"})
			},
			outcome: OutcomeUnhandled,
		},
		{
			name: "order created",
			body: func(t *testing.T) []byte {
				return buildPayload(t, EventOrderCreated, payloadOptions{accountID: "acc-1", variantID: VariantCabinetMonthly})
			},
			outcome: OutcomeInformational,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newMemoryGateway(freshProfile("acc-1"))
			journal := newRecordingJournal()
			sync := newTestSynchronizer(gw, journal)

			body := tt.body(t)
			res, err := sync.Process(context.Background(), body, Sign(body, testSecret))
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, 0, gw.calls)
			assert.Equal(t, freshProfile("acc-1"), gw.get(t, "acc-1"))
			assert.NotEmpty(t, journal.outcomes[1])
		})
	}
}

func TestProcess_UnknownAccountIsAcknowledged(t *testing.T) {
	gw := newMemoryGateway()
	journal := newRecordingJournal()
	sync := newTestSynchronizer(gw, journal)

	body := buildPayload(t, EventSubscriptionCreated, payloadOptions{accountID: "ghost", variantID: VariantProMonthly})
	res, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownAccount, res.Outcome)
	assert.Equal(t, models.WebhookOutcomeUnknownTarget, journal.outcomes[1])
}

func TestProcess_PersistenceFailureIsSurfaced(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	gw.err = errors.New("connection refused")
	journal := newRecordingJournal()
	sync := newTestSynchronizer(gw, journal)

	body := buildPayload(t, EventSubscriptionPaymentSuccess, payloadOptions{accountID: "acc-1", variantID: VariantProMonthly})
	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, models.WebhookOutcomeFailed, journal.outcomes[1])
	assert.Equal(t, "connection refused", journal.errors[1])
}

func TestProcess_RedeliveryIsJournaledAndIdempotent(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	journal := newRecordingJournal()
	sync := newTestSynchronizer(gw, journal)

	ends := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	body := buildPayload(t, EventSubscriptionUpdated, payloadOptions{
		accountID: "acc-1", subscriptionID: 5, variantID: VariantCabinetYearly, status: ProviderStatusActive, endsAt: &ends,
	})

	_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	first := gw.get(t, "acc-1")

	for i := 0; i < 3; i++ {
		_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
		require.NoError(t, err)
	}
	assert.Equal(t, first, gw.get(t, "acc-1"))
	assert.Equal(t, 4, gw.calls)

	require.Len(t, journal.entries, 1)
	for _, entry := range journal.entries {
		assert.Equal(t, 4, entry.DeliveryCount)
		assert.Equal(t, string(EventSubscriptionUpdated), entry.EventName)
		assert.Equal(t, "acc-1", entry.AccountID)
	}
}

func TestProcess_JournalFailureDoesNotBlockSync(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	journal := newRecordingJournal()
	journal.recordErr = errors.New("journal table missing")
	sync := newTestSynchronizer(gw, journal)

	body := buildPayload(t, EventSubscriptionResumed, payloadOptions{accountID: "acc-1", variantID: VariantProYearly})
	res, err := sync.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApply, res.Outcome)
	assert.Equal(t, string(entitlements.PlanPro), gw.get(t, "acc-1").Plan)
}

type contextAwareGateway struct {
	inner *memoryGateway
	seen  error
}

func (g *contextAwareGateway) UpdateAccount(ctx context.Context, accountID string, update AccountUpdate) error {
	g.seen = ctx.Err()
	if g.seen != nil {
		return g.seen
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("gateway call without deadline")
	}
	return g.inner.UpdateAccount(ctx, accountID, update)
}

func TestProcess_AbandonedRequestStillCompletesWrite(t *testing.T) {
	gw := &contextAwareGateway{inner: newMemoryGateway(freshProfile("acc-1"))}
	sync := newTestSynchronizer(gw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := buildPayload(t, EventSubscriptionCreated, payloadOptions{accountID: "acc-1", variantID: VariantCabinetMonthly, status: ProviderStatusActive})
	_, err := sync.Process(ctx, body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.NoError(t, gw.seen)
	assert.Equal(t, string(entitlements.PlanCabinet), gw.inner.get(t, "acc-1").Plan)
}

func TestProcess_OrderTolerance(t *testing.T) {
	failed := func(t *testing.T) []byte {
		return buildPayload(t, EventSubscriptionPaymentFailed, payloadOptions{accountID: "acc-1", subscriptionID: "1"})
	}
	success := func(t *testing.T) []byte {
		return buildPayload(t, EventSubscriptionPaymentSuccess, payloadOptions{accountID: "acc-1", subscriptionID: "1", variantID: VariantProMonthly})
	}

	run := func(t *testing.T, bodies ...[]byte) models.Profile {
		gw := newMemoryGateway(freshProfile("acc-1"))
		sync := newTestSynchronizer(gw, nil)
		for _, body := range bodies {
			_, err := sync.Process(context.Background(), body, Sign(body, testSecret))
			require.NoError(t, err)
		}
		return gw.get(t, "acc-1")
	}

	acc := run(t, failed(t), success(t))
	assert.Equal(t, models.SubscriptionStatusActive, acc.SubscriptionStatus)
	assert.Equal(t, string(entitlements.PlanPro), acc.Plan)

	acc = run(t, success(t), failed(t))
	assert.Equal(t, models.SubscriptionStatusExpired, acc.SubscriptionStatus)
	assert.Equal(t, string(entitlements.PlanFree), acc.Plan)
}

type tallyCounter struct {
	counts map[string]int
}

func (c *tallyCounter) AddOutcome(_ context.Context, outcome string) error {
	c.counts[outcome]++
	return nil
}

func TestProcess_CountsOutcomes(t *testing.T) {
	gw := newMemoryGateway(freshProfile("acc-1"))
	tally := &tallyCounter{counts: map[string]int{}}
	sync := newTestSynchronizer(gw, nil).WithCounter(tally)

	applied := buildPayload(t, EventSubscriptionCreated, payloadOptions{accountID: "acc-1", variantID: VariantProMonthly})
	ignored := buildPayload(t, EventOrderCreated, payloadOptions{accountID: "acc-1"})
	malformed := []byte(`{}`)

	_, _ = sync.Process(context.Background(), applied, Sign(applied, testSecret))
	_, _ = sync.Process(context.Background(), applied, Sign(applied, testSecret))
	_, _ = sync.Process(context.Background(), ignored, Sign(ignored, testSecret))
	_, _ = sync.Process(context.Background(), malformed, Sign(malformed, testSecret))
	_, _ = sync.Process(context.Background(), applied, "")

	assert.Equal(t, map[string]int{
		models.WebhookOutcomeApplied:   2,
		models.WebhookOutcomeIgnored:   1,
		models.WebhookOutcomeInvalid:   1,
		CounterOutcomeInvalidSignature: 1,
	}, tally.counts)
}
