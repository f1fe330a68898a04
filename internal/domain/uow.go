package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRoomTaken is returned by the store when a room night is already held.
	ErrRoomTaken = errors.New("room already reserved for one of the nights")
	// ErrDuplicateTransaction is returned when a transaction id is already bound to a booking.
	ErrDuplicateTransaction = errors.New("transaction id already bound to a booking")
)

// ReservationTx is the set of store operations available inside one
// reservation unit of work. Every call runs in the same database transaction.
type ReservationTx interface {
	// LockRooms blocks concurrent reservations of the same rooms until commit.
	LockRooms(ctx context.Context, hotelID int64, roomNumbers []string) error
	HasOverlap(ctx context.Context, hotelID int64, roomNumber string, start, end time.Time) (bool, error)
	InsertPending(ctx context.Context, b *Booking) error
}

// UnitOfWork runs fn in a transaction. The transaction commits when fn
// returns nil and rolls back on an error or a panic.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx ReservationTx) error) error
}

// PaymentTransaction is an external payment opened for a booking.
type PaymentTransaction struct {
	ID           string
	ClientSecret string
}
