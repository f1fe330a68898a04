package booking

import (
	"context"
	"time"

	"hotelbooking/internal/pkg/apperr"
)

// AvailabilityChecker decides whether a room is free for [start, end).
type AvailabilityChecker struct {
	bookings overlapFinder
}

func NewAvailabilityChecker(bookings overlapFinder) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: bookings}
}

// IsAvailable reports false when a live booking of the room satisfies
// B.start < end && B.end > start. Touching ranges do not conflict.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, hotelID int64, roomNumber string, start, end time.Time) (bool, error) {
	overlap, err := a.bookings.HasOverlap(ctx, hotelID, roomNumber, start, end)
	if err != nil {
		return false, apperr.Infrastructure(err, "check availability of room %s", roomNumber)
	}
	return !overlap, nil
}
