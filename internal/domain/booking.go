package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingExpired   BookingStatus = "expired"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// Live bookings hold their rooms.
func (s BookingStatus) Live() bool {
	return s == BookingPending || s == BookingConfirmed
}

type Booking struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	UserID          int64           `json:"user_id" gorm:"index;not null"`
	StartDate       time.Time       `json:"start_date" gorm:"not null;index"`
	EndDate         time.Time       `json:"end_date" gorm:"not null;index"`
	DiscountID      *string         `json:"discount_id,omitempty" gorm:"size:64"`
	OriginalTotal   decimal.Decimal `json:"original_total" gorm:"type:numeric(12,2);not null"`
	DiscountedTotal decimal.Decimal `json:"discounted_total" gorm:"type:numeric(12,2);not null"`
	AmountMinor     int64           `json:"amount_minor" gorm:"not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null"`
	TransactionID   string          `json:"transaction_id" gorm:"size:255;uniqueIndex;not null"`
	IdempotencyKey  string          `json:"-" gorm:"size:64;index"`
	Status          BookingStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	ExpiresAt       time.Time       `json:"expires_at" gorm:"index"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	ExpiredAt       *time.Time      `json:"expired_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Rooms []RoomReservation `json:"rooms" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

func (Booking) TableName() string { return "bookings" }

// HotelID returns the hotel the booking's rooms belong to.
func (b *Booking) HotelID() int64 {
	if len(b.Rooms) == 0 {
		return 0
	}
	return b.Rooms[0].HotelID
}

func (b *Booking) RoomNumbers() []string {
	out := make([]string, 0, len(b.Rooms))
	for _, r := range b.Rooms {
		out = append(out, r.RoomNumber)
	}
	return out
}

func (b *Booking) Nights() int {
	return NightsBetween(b.StartDate, b.EndDate)
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != BookingPending {
		return ErrInvalidTransition
	}
	b.Status = BookingConfirmed
	b.ConfirmedAt = &now
	return nil
}

func (b *Booking) Expire(now time.Time) error {
	if b.Status != BookingPending {
		return ErrInvalidTransition
	}
	b.Status = BookingExpired
	b.ExpiredAt = &now
	return nil
}

// RoomReservation links a booking to one (hotel, room number) pair.
type RoomReservation struct {
	ID         int64  `json:"-" gorm:"primaryKey"`
	BookingID  int64  `json:"-" gorm:"index;not null"`
	HotelID    int64  `json:"hotel_id" gorm:"not null;index:idx_room_reservation_room"`
	RoomNumber string `json:"room_number" gorm:"size:32;not null;index:idx_room_reservation_room"`
}

func (RoomReservation) TableName() string { return "room_reservations" }

// RoomNight is one occupied night of a room. The unique index rejects a
// second live booking of the same room on the same night.
type RoomNight struct {
	ID         int64  `gorm:"primaryKey"`
	BookingID  int64  `gorm:"index;not null"`
	HotelID    int64  `gorm:"not null;uniqueIndex:idx_room_night"`
	RoomNumber string `gorm:"size:32;not null;uniqueIndex:idx_room_night"`
	Night      string `gorm:"size:10;not null;uniqueIndex:idx_room_night"`
}

func (RoomNight) TableName() string { return "room_nights" }

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// NightsBetween counts calendar nights from start to end, negative when end
// precedes start. Unix seconds keep the count exact for any range.
func NightsBetween(start, end time.Time) int {
	return int((DateOf(end).Unix() - DateOf(start).Unix()) / secondsPerDay)
}

// NightsOf lists the nights covered by [start, end).
func NightsOf(start, end time.Time) []string {
	n := NightsBetween(start, end)
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for d := DateOf(start); d.Before(DateOf(end)); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out
}
