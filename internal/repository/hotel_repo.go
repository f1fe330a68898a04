package repository

import (
	"context"

	"hotelbooking/internal/domain"

	"gorm.io/gorm"
)

type HotelRepository struct {
	db *gorm.DB
}

func NewHotelRepository(db *gorm.DB) *HotelRepository {
	return &HotelRepository{db: db}
}

// FindHotelWithRooms loads the hotel with only the requested rooms attached.
// Unknown room numbers are simply absent from Rooms.
func (r *HotelRepository) FindHotelWithRooms(ctx context.Context, hotelID int64, roomNumbers []string) (*domain.Hotel, error) {
	var h domain.Hotel
	err := r.db.WithContext(ctx).
		Preload("Rooms", "room_number IN ?", roomNumbers).
		First(&h, hotelID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

func (r *HotelRepository) FindHotelSummary(ctx context.Context, hotelID int64) (*domain.HotelSummary, error) {
	var h domain.Hotel
	if err := r.db.WithContext(ctx).First(&h, hotelID).Error; err != nil {
		return nil, notFound(err)
	}

	var agg struct {
		Rating float64 `gorm:"column:rating"`
		Count  int64   `gorm:"column:cnt"`
	}
	tx := r.db.WithContext(ctx).
		Table("reviews").
		Select("COALESCE(AVG(rating), 0) AS rating, COUNT(*) AS cnt").
		Where("hotel_id = ?", hotelID).
		Scan(&agg)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &domain.HotelSummary{
		ID:          h.ID,
		Name:        h.Name,
		City:        h.City,
		Rating:      agg.Rating,
		ReviewCount: agg.Count,
	}, nil
}
