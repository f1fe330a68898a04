package booking

import (
	"time"

	"hotelbooking/internal/domain"
)

type CreateReservationRequest struct {
	HotelID      int64    `json:"hotel_id" binding:"required,gt=0"`
	RoomNumbers  []string `json:"room_numbers" binding:"required,min=1,dive,required"`
	StartDate    string   `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate      string   `json:"end_date" binding:"required"`
	DiscountCode string   `json:"discount_code,omitempty"`
}

type ReservationResponse struct {
	ClientSecret  string         `json:"client_secret"`
	TransactionID string         `json:"transaction_id"`
	Booking       BookingSummary `json:"booking"`
}

type BookingSummary struct {
	ID              int64     `json:"id"`
	Status          string    `json:"status"`
	TransactionID   string    `json:"transaction_id"`
	HotelID         int64     `json:"hotel_id"`
	RoomNumbers     []string  `json:"room_numbers"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Nights          int       `json:"nights"`
	DiscountCode    string    `json:"discount_code,omitempty"`
	OriginalTotal   string    `json:"original_total"`
	DiscountedTotal string    `json:"discounted_total"`
	Currency        string    `json:"currency"`
	ExpiresAt       time.Time `json:"expires_at"`
}

func toSummary(b *domain.Booking) BookingSummary {
	s := BookingSummary{
		ID:              b.ID,
		Status:          string(b.Status),
		TransactionID:   b.TransactionID,
		HotelID:         b.HotelID(),
		RoomNumbers:     b.RoomNumbers(),
		StartDate:       b.StartDate.Format(domain.DateLayout),
		EndDate:         b.EndDate.Format(domain.DateLayout),
		Nights:          b.Nights(),
		OriginalTotal:   b.OriginalTotal.StringFixed(2),
		DiscountedTotal: b.DiscountedTotal.StringFixed(2),
		Currency:        b.Currency,
		ExpiresAt:       b.ExpiresAt,
	}
	if b.DiscountID != nil {
		s.DiscountCode = *b.DiscountID
	}
	return s
}
