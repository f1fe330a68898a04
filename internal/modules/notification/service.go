package notification

import (
	"context"
	"errors"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type notificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
}

// Service stores in-app notifications and pushes them to connected clients.
type Service struct {
	store   notificationStore
	hub     *Hub
	loggerf func(format string, args ...interface{})
}

func NewService(store notificationStore, hub *Hub, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{store: store, hub: hub, loggerf: loggerf}
}

// Deliver persists the notification for ev and pushes it to the user's open
// sockets. A user with no socket reads it later from the list endpoint.
func (s *Service) Deliver(ctx context.Context, ev BookingEvent) error {
	n := ev.toNotification()
	if err := s.store.Create(ctx, n); err != nil {
		return apperr.Infrastructure(err, "store notification")
	}

	if s.hub != nil {
		pushed := s.hub.Push(n.UserID, &WSEvent{Type: string(n.Type), Payload: n})
		s.loggerf("level=info msg=notification delivered type=%s user_id=%d booking_id=%d pushed=%t",
			n.Type, n.UserID, ev.BookingID, pushed)
	}
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	list, err := s.store.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, 0, apperr.Infrastructure(err, "list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, apperr.Infrastructure(err, "count unread notifications")
	}
	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, userID, notificationID int64) error {
	err := s.store.MarkAsRead(ctx, notificationID, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("notification not found")
	case err != nil:
		return apperr.Infrastructure(err, "mark notification read")
	}
	return nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	if err := s.store.MarkAllAsRead(ctx, userID); err != nil {
		return apperr.Infrastructure(err, "mark notifications read")
	}
	return nil
}
