package domain

import "time"

type NotificationType string

const (
	NotifBookingConfirmed NotificationType = "booking_confirmed"
	NotifBookingExpired   NotificationType = "booking_expired"
)

type Notification struct {
	ID        int64            `json:"id" gorm:"primaryKey"`
	UserID    int64            `json:"user_id" gorm:"index;not null"`
	Type      NotificationType `json:"type" gorm:"type:varchar(40)"`
	Title     string           `json:"title"`
	Message   string           `json:"message,omitempty" gorm:"type:text"`
	IsRead    bool             `json:"is_read"`
	Data      map[string]any   `json:"data,omitempty" gorm:"serializer:json"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
