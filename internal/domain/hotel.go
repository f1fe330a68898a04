package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Hotel struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	City        string          `json:"city" gorm:"size:128"`
	Address     string          `json:"address,omitempty" gorm:"size:255"`
	NightlyRate decimal.Decimal `json:"nightly_rate" gorm:"type:numeric(12,2);not null"`
	Currency    string          `json:"currency" gorm:"size:3;not null;default:'usd'"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Rooms []Room `json:"rooms,omitempty" gorm:"foreignKey:HotelID"`
}

func (Hotel) TableName() string { return "hotels" }

type Room struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	HotelID    int64  `json:"hotel_id" gorm:"not null;uniqueIndex:idx_hotel_room"`
	RoomNumber string `json:"room_number" gorm:"size:32;not null;uniqueIndex:idx_hotel_room"`
	Capacity   int    `json:"capacity"`
}

func (Room) TableName() string { return "rooms" }

type Review struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	HotelID   int64     `json:"hotel_id" gorm:"index;not null"`
	UserID    int64     `json:"user_id" gorm:"index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string { return "reviews" }

// HotelSummary is the hotel view used in confirmation notifications.
type HotelSummary struct {
	ID          int64
	Name        string
	City        string
	Rating      float64
	ReviewCount int64
}
