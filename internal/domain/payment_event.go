package domain

import "time"

// PaymentEvent records a processed payment-provider webhook event.
type PaymentEvent struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	EventID       string    `json:"event_id" gorm:"size:255;uniqueIndex;not null"`
	Type          string    `json:"type" gorm:"size:64;not null"`
	TransactionID string    `json:"transaction_id" gorm:"size:255;index"`
	Outcome       string    `json:"outcome" gorm:"size:64"`
	ProcessedAt   time.Time `json:"processed_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
