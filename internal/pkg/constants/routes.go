package constants

// Route constants
const (
	BillingWebhookRoute = "/webhooks/billing"
	HealthRoute         = "/healthz"
	MetricsRoute        = "/metrics"
	BillingMetricsRoute = "/metrics/billing"
)
