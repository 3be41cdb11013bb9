package models

import "time"

// SubscriptionStatus is the locally mirrored state of a provider subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusNone      SubscriptionStatus = "none"
	SubscriptionStatusOnTrial   SubscriptionStatus = "on_trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// IsEntitling reports whether a paid plan may be stored next to this status.
func (s SubscriptionStatus) IsEntitling() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusOnTrial
}

// Profile is the account record of a clinician or parent. Rows are created by
// registration; the billing webhook only ever partial-updates the plan and
// subscription columns.
type Profile struct {
	ID                 string             `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email              string             `gorm:"type:varchar(200);default:''" json:"email"`
	DisplayName        string             `gorm:"type:varchar(150);default:''" json:"display_name"`
	Role               string             `gorm:"type:varchar(20);not null;default:'parent'" json:"role"`
	Plan               string             `gorm:"type:varchar(20);not null;default:'free';index" json:"plan"`
	SubscriptionID     *string            `gorm:"type:varchar(191);default:null;index" json:"subscription_id,omitempty"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'none'" json:"subscription_status"`
	SubscriptionEndsAt *time.Time         `gorm:"type:timestamp;default:null" json:"subscription_ends_at,omitempty"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the table shared with the profile service.
func (Profile) TableName() string {
	return "profiles"
}
