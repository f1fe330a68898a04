package repository

import (
	"context"

	"hotelbooking/internal/domain"

	"gorm.io/gorm"
)

// PaymentEventRepository is the durable ledger of handled webhook events.
type PaymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

func (r *PaymentEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&domain.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// Record stores the event. It returns false when the event was already recorded.
func (r *PaymentEventRepository) Record(ctx context.Context, ev *domain.PaymentEvent) (bool, error) {
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
