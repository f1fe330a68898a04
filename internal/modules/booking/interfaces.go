package booking

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
)

// HotelDirectory is the read-only hotel/room catalogue.
type HotelDirectory interface {
	FindHotelWithRooms(ctx context.Context, hotelID int64, roomNumbers []string) (*domain.Hotel, error)
	FindHotelSummary(ctx context.Context, hotelID int64) (*domain.HotelSummary, error)
}

type DiscountDirectory interface {
	GetDiscount(ctx context.Context, code string) (*domain.Discount, error)
}

type UserDirectory interface {
	FindUser(ctx context.Context, userID int64) (*domain.User, error)
}

type overlapFinder interface {
	HasOverlap(ctx context.Context, hotelID int64, roomNumber string, start, end time.Time) (bool, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Booking, error)
	FindPendingByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Booking, error)
}

// BookingStore is the booking persistence used outside the reservation unit of work.
type BookingStore interface {
	overlapFinder
	bookingReader
	MarkConfirmed(ctx context.Context, transactionID string, now time.Time) (*domain.Booking, bool, error)
	ExpireByTransactionID(ctx context.Context, transactionID string, now time.Time) (*domain.Booking, bool, error)
	ExpireStale(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
}

// PaymentGateway opens and cancels provider transactions.
type PaymentGateway interface {
	OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error)
	CancelTransaction(ctx context.Context, transactionID string) error
}

type Notifier interface {
	NotifyBookingConfirmed(ctx context.Context, user *domain.User, b *domain.Booking, hotel *domain.HotelSummary) error
	NotifyBookingExpired(ctx context.Context, b *domain.Booking) error
}
