package notification

import (
	"fmt"
	"time"

	"hotelbooking/internal/domain"
)

// Queue names double as routing keys on the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingExpired   = "booking.expired"
)

// BookingEvent carries everything needed to notify the guest without another
// database read.
type BookingEvent struct {
	Type          domain.NotificationType `json:"type"`
	BookingID     int64                   `json:"booking_id"`
	UserID        int64                   `json:"user_id"`
	UserName      string                  `json:"user_name,omitempty"`
	UserEmail     string                  `json:"user_email,omitempty"`
	HotelID       int64                   `json:"hotel_id,omitempty"`
	HotelName     string                  `json:"hotel_name,omitempty"`
	HotelCity     string                  `json:"hotel_city,omitempty"`
	HotelRating   float64                 `json:"hotel_rating,omitempty"`
	ReviewCount   int64                   `json:"review_count,omitempty"`
	RoomNumbers   []string                `json:"rooms,omitempty"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date"`
	Nights        int                     `json:"nights"`
	Total         string                  `json:"total"`
	Currency      string                  `json:"currency"`
	TransactionID string                  `json:"transaction_id"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

func (e BookingEvent) queue() string {
	if e.Type == domain.NotifBookingExpired {
		return QueueBookingExpired
	}
	return QueueBookingConfirmed
}

func confirmedEvent(user *domain.User, b *domain.Booking, hotel *domain.HotelSummary, now time.Time) BookingEvent {
	ev := bookingEvent(domain.NotifBookingConfirmed, b, now)
	ev.UserName = user.Name
	ev.UserEmail = user.Email
	if hotel != nil {
		ev.HotelID = hotel.ID
		ev.HotelName = hotel.Name
		ev.HotelCity = hotel.City
		ev.HotelRating = hotel.Rating
		ev.ReviewCount = hotel.ReviewCount
	}
	return ev
}

func bookingEvent(typ domain.NotificationType, b *domain.Booking, now time.Time) BookingEvent {
	return BookingEvent{
		Type:          typ,
		BookingID:     b.ID,
		UserID:        b.UserID,
		HotelID:       b.HotelID(),
		RoomNumbers:   b.RoomNumbers(),
		StartDate:     b.StartDate.Format(domain.DateLayout),
		EndDate:       b.EndDate.Format(domain.DateLayout),
		Nights:        b.Nights(),
		Total:         b.DiscountedTotal.StringFixed(2),
		Currency:      b.Currency,
		TransactionID: b.TransactionID,
		OccurredAt:    now,
	}
}

// toNotification renders the in-app notification for an event.
func (e BookingEvent) toNotification() *domain.Notification {
	n := &domain.Notification{
		UserID: e.UserID,
		Type:   e.Type,
		Data: map[string]any{
			"booking_id":     e.BookingID,
			"transaction_id": e.TransactionID,
			"start_date":     e.StartDate,
			"end_date":       e.EndDate,
		},
	}
	switch e.Type {
	case domain.NotifBookingExpired:
		n.Title = "Reservation expired"
		n.Message = fmt.Sprintf("Your reservation #%d for %s to %s was released because payment did not complete.",
			e.BookingID, e.StartDate, e.EndDate)
	default:
		n.Title = "Booking confirmed"
		n.Message = fmt.Sprintf("%s, your stay at %s (%s) from %s to %s is confirmed. Total paid: %s %s.",
			e.UserName, e.HotelName, e.HotelCity, e.StartDate, e.EndDate, e.Total, e.Currency)
		n.Data["hotel_id"] = e.HotelID
		n.Data["rooms"] = e.RoomNumbers
		if e.ReviewCount > 0 {
			n.Data["hotel_rating"] = e.HotelRating
		}
	}
	return n
}
