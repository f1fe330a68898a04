package repository

import (
	"context"
	"sort"
	"time"

	"hotelbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UnitOfWork scopes one reservation to a single database transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(tx domain.ReservationTx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&reservationTx{db: tx})
	})
}

type reservationTx struct {
	db *gorm.DB
}

func (t *reservationTx) LockRooms(ctx context.Context, hotelID int64, roomNumbers []string) error {
	sorted := append([]string(nil), roomNumbers...)
	sort.Strings(sorted)

	var rooms []domain.Room
	return t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("hotel_id = ? AND room_number IN ?", hotelID, sorted).
		Order("room_number").
		Find(&rooms).Error
}

func (t *reservationTx) HasOverlap(ctx context.Context, hotelID int64, roomNumber string, start, end time.Time) (bool, error) {
	return hasOverlap(t.db.WithContext(ctx), hotelID, roomNumber, start, end)
}

func (t *reservationTx) InsertPending(ctx context.Context, b *domain.Booking) error {
	db := t.db.WithContext(ctx)
	if err := db.Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTransaction
		}
		return err
	}
	return insertNights(db, b)
}

// Four columns per row keeps a batch under SQLite's 32766 bound-variable cap.
const roomNightBatchSize = 500

func insertNights(db *gorm.DB, b *domain.Booking) error {
	nights := domain.NightsOf(b.StartDate, b.EndDate)
	rows := make([]domain.RoomNight, 0, len(nights)*len(b.Rooms))
	for _, room := range b.Rooms {
		for _, night := range nights {
			rows = append(rows, domain.RoomNight{
				BookingID:  b.ID,
				HotelID:    room.HotelID,
				RoomNumber: room.RoomNumber,
				Night:      night,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.CreateInBatches(&rows, roomNightBatchSize).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoomTaken
		}
		return err
	}
	return nil
}
