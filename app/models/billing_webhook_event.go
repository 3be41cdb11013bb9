package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderLemonSqueezy = "lemonsqueezy"
)

// Delivery outcomes written to the journal once a webhook was handled.
const (
	WebhookOutcomeApplied       = "applied"
	WebhookOutcomeIgnored       = "ignored"
	WebhookOutcomeNoAccount     = "no_account"
	WebhookOutcomeInvalid       = "invalid_payload"
	WebhookOutcomeFailed        = "failed"
	WebhookOutcomeUnknownTarget = "account_not_found"
)

// BillingWebhookEvent journals provider webhook deliveries. Redeliveries of the
// same payload share one row keyed by the payload hash and bump DeliveryCount.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_delivery,unique,priority:1" json:"provider"`
	DeliveryKey     string     `gorm:"type:varchar(80);not null;index:ux_billing_webhook_events_provider_delivery,unique,priority:2" json:"delivery_key"`
	LastDeliveryID  string     `gorm:"type:char(36);not null;default:''" json:"last_delivery_id"`
	EventName       string     `gorm:"type:varchar(100);not null;index" json:"event_name"`
	AccountID       string     `gorm:"type:varchar(64);not null;default:'';index" json:"account_id"`
	TestMode        bool       `gorm:"default:false" json:"test_mode"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	DeliveryCount   int        `gorm:"not null;default:1" json:"delivery_count"`
	Outcome         string     `gorm:"type:varchar(32);not null;default:''" json:"outcome"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
