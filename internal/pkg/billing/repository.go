package billing

import (
	"context"
	"time"

	"github.com/ManuelReschke/TherapyGames/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryJournal records webhook deliveries for diagnostics. It never decides
// whether an event is applied.
type DeliveryJournal interface {
	RecordDelivery(ctx context.Context, event *models.BillingWebhookEvent) (*models.BillingWebhookEvent, error)
	MarkDeliveryProcessed(ctx context.Context, id uint, outcome, processingError string) error
}

type gormAccountGateway struct {
	db *gorm.DB
}

// NewGormAccountGateway creates an account gateway backed by GORM.
func NewGormAccountGateway(db *gorm.DB) AccountGateway {
	return &gormAccountGateway{db: db}
}

func (r *gormAccountGateway) UpdateAccount(ctx context.Context, accountID string, update AccountUpdate) error {
	tx := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", accountID).
		Updates(updateColumns(update))
	if tx.Error != nil {
		return tx.Error
	}
	// The DSN sets clientFoundRows, so an unchanged replay still counts as matched.
	if tx.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func updateColumns(update AccountUpdate) map[string]interface{} {
	cols := map[string]interface{}{
		"subscription_status": string(update.Status),
	}
	if update.Plan != nil {
		cols["plan"] = string(*update.Plan)
	}
	if update.SubscriptionID != nil {
		cols["subscription_id"] = *update.SubscriptionID
	}
	if update.EndsAt != nil {
		cols["subscription_ends_at"] = update.EndsAt.UTC()
	}
	return cols
}

type gormDeliveryJournal struct {
	db *gorm.DB
}

// NewGormDeliveryJournal creates a delivery journal backed by GORM.
func NewGormDeliveryJournal(db *gorm.DB) DeliveryJournal {
	return &gormDeliveryJournal{db: db}
}

func (r *gormDeliveryJournal) RecordDelivery(ctx context.Context, event *models.BillingWebhookEvent) (*models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "delivery_key"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"delivery_count":   gorm.Expr("delivery_count + 1"),
			"last_delivery_id": event.LastDeliveryID,
			"updated_at":       time.Now(),
		}),
	}).Create(event).Error; err != nil {
		return nil, err
	}

	// Ensure ID and counters reflect the stored row after upsert.
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND delivery_key = ?", event.Provider, event.DeliveryKey).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *gormDeliveryJournal) MarkDeliveryProcessed(ctx context.Context, id uint, outcome, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"outcome":          outcome,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
