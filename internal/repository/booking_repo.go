package repository

import (
	"context"
	"time"

	"hotelbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) HasOverlap(ctx context.Context, hotelID int64, roomNumber string, start, end time.Time) (bool, error) {
	return hasOverlap(r.db.WithContext(ctx), hotelID, roomNumber, start, end)
}

// hasOverlap reports whether a live booking of the room intersects [start, end).
func hasOverlap(db *gorm.DB, hotelID int64, roomNumber string, start, end time.Time) (bool, error) {
	var cnt int64
	tx := db.Table("bookings").
		Joins("JOIN room_reservations rr ON rr.booking_id = bookings.id").
		Where("rr.hotel_id = ? AND rr.room_number = ?", hotelID, roomNumber).
		Where("bookings.status IN ?", []domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed}).
		Where("bookings.start_date < ? AND bookings.end_date > ?", domain.DateOf(end), domain.DateOf(start)).
		Count(&cnt)
	if tx.Error != nil {
		return false, tx.Error
	}
	return cnt > 0, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).Preload("Rooms").First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("transaction_id = ?", transactionID).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// FindPendingByIdempotencyKey returns the user's pending booking created from
// the same reservation request, if any.
func (r *BookingRepository) FindPendingByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("user_id = ? AND idempotency_key = ? AND status = ?", userID, key, domain.BookingPending).
		Order("id DESC").
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// MarkConfirmed moves the booking to confirmed under a row lock. changed is
// false when the booking was already confirmed; an expired booking yields
// domain.ErrInvalidTransition.
func (r *BookingRepository) MarkConfirmed(ctx context.Context, transactionID string, now time.Time) (*domain.Booking, bool, error) {
	var (
		out     *domain.Booking
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := lockByTransactionID(tx, transactionID)
		if err != nil {
			return err
		}
		out = b
		if b.Status == domain.BookingConfirmed {
			return nil
		}
		if err := b.Confirm(now); err != nil {
			return err
		}
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", b.ID, domain.BookingPending).
			Updates(map[string]interface{}{
				"status":       domain.BookingConfirmed,
				"confirmed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected == 1
		return nil
	})
	return out, changed, err
}

// ExpireByTransactionID expires a pending booking and releases its room nights.
func (r *BookingRepository) ExpireByTransactionID(ctx context.Context, transactionID string, now time.Time) (*domain.Booking, bool, error) {
	var (
		out     *domain.Booking
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := lockByTransactionID(tx, transactionID)
		if err != nil {
			return err
		}
		out = b
		if b.Status == domain.BookingExpired {
			return nil
		}
		if err := b.Expire(now); err != nil {
			return err
		}
		if err := expireTx(tx, b.ID, now); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return out, changed, err
}

// ExpireStale expires up to limit pending bookings whose hold ran out before now.
func (r *BookingRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	var expired []domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []domain.Booking
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND expires_at < ?", domain.BookingPending, now).
			Order("expires_at").
			Limit(limit).
			Find(&stale).Error
		if err != nil {
			return err
		}
		for i := range stale {
			if err := stale[i].Expire(now); err != nil {
				continue
			}
			if err := expireTx(tx, stale[i].ID, now); err != nil {
				return err
			}
			expired = append(expired, stale[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

func lockByTransactionID(tx *gorm.DB, transactionID string) (*domain.Booking, error) {
	var b domain.Booking
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := tx.Where("booking_id = ?", b.ID).Find(&b.Rooms).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func expireTx(tx *gorm.DB, bookingID int64, now time.Time) error {
	res := tx.Model(&domain.Booking{}).
		Where("id = ? AND status = ?", bookingID, domain.BookingPending).
		Updates(map[string]interface{}{
			"status":     domain.BookingExpired,
			"expired_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	return tx.Where("booking_id = ?", bookingID).Delete(&domain.RoomNight{}).Error
}
