package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Discount is a hotel-scoped special offer. ExpireDate is the last day the
// offer may be applied.
type Discount struct {
	ID         string          `json:"id" gorm:"primaryKey;size:64"`
	HotelID    int64           `json:"hotel_id" gorm:"index;not null"`
	Percentage decimal.Decimal `json:"percentage" gorm:"type:numeric(5,2);not null"`
	ExpireDate time.Time       `json:"expire_date" gorm:"not null"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (Discount) TableName() string { return "discounts" }
