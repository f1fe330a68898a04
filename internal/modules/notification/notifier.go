package notification

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
)

// EventPublisher hands booking events to an asynchronous worker.
type EventPublisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

// Notifier turns booking state changes into guest notifications. With a
// publisher the work goes through the queue; without one, or when the broker
// is unreachable, the notification is delivered in-process.
type Notifier struct {
	publisher EventPublisher
	service   *Service
	now       func() time.Time
	loggerf   func(format string, args ...interface{})
}

func NewNotifier(publisher EventPublisher, service *Service, loggerf func(format string, args ...interface{})) *Notifier {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Notifier{
		publisher: publisher,
		service:   service,
		now:       time.Now,
		loggerf:   loggerf,
	}
}

func (n *Notifier) NotifyBookingConfirmed(ctx context.Context, user *domain.User, b *domain.Booking, hotel *domain.HotelSummary) error {
	return n.dispatch(ctx, confirmedEvent(user, b, hotel, n.now().UTC()))
}

func (n *Notifier) NotifyBookingExpired(ctx context.Context, b *domain.Booking) error {
	return n.dispatch(ctx, bookingEvent(domain.NotifBookingExpired, b, n.now().UTC()))
}

func (n *Notifier) dispatch(ctx context.Context, ev BookingEvent) error {
	if n.publisher != nil {
		err := n.publisher.Publish(ctx, ev)
		if err == nil {
			return nil
		}
		n.loggerf("level=warn msg=publish booking event failed, delivering inline type=%s booking_id=%d err=%v",
			ev.Type, ev.BookingID, err)
	}
	return n.service.Deliver(ctx, ev)
}
