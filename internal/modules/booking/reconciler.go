package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/repository"
)

// Reconciler applies asynchronous payment outcomes to bookings.
type Reconciler struct {
	bookings BookingStore
	users    UserDirectory
	hotels   HotelDirectory
	notifier Notifier
	now      func() time.Time
	loggerf  func(format string, args ...interface{})
}

func NewReconciler(bookings BookingStore, users UserDirectory, hotels HotelDirectory, notifier Notifier, loggerf func(format string, args ...interface{})) *Reconciler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Reconciler{
		bookings: bookings,
		users:    users,
		hotels:   hotels,
		notifier: notifier,
		now:      time.Now,
		loggerf:  loggerf,
	}
}

// OnPaymentSucceeded confirms the pending booking bound to transactionID and
// sends the confirmation notification. Replayed events for an already
// confirmed booking are a no-op.
func (r *Reconciler) OnPaymentSucceeded(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrMissingTransactionID
	}

	b, changed, err := r.bookings.MarkConfirmed(ctx, transactionID, r.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.loggerf("level=warn msg=payment succeeded for unknown booking, investigate transaction_id=%s", transactionID)
		return apperr.NotFound("no booking for transaction %s", transactionID)
	case errors.Is(err, domain.ErrInvalidTransition):
		r.loggerf("level=error msg=payment succeeded for expired booking, refund required transaction_id=%s", transactionID)
		return apperr.Conflict("booking for transaction %s has expired", transactionID)
	case err != nil:
		return apperr.Infrastructure(err, "confirm booking")
	}

	if !changed {
		r.loggerf("level=info msg=booking already confirmed, event ignored booking_id=%d transaction_id=%s", b.ID, transactionID)
		return nil
	}
	r.loggerf("level=info msg=booking confirmed booking_id=%d transaction_id=%s", b.ID, transactionID)

	user, err := r.users.FindUser(ctx, b.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.loggerf("level=error msg=confirmed booking has no user booking_id=%d user_id=%d", b.ID, b.UserID)
			return apperr.NotFound("user %d of booking %d not found", b.UserID, b.ID)
		}
		return apperr.Infrastructure(err, "load user %d", b.UserID)
	}

	hotel, err := r.hotels.FindHotelSummary(ctx, b.HotelID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.loggerf("level=error msg=confirmed booking has no hotel booking_id=%d hotel_id=%d", b.ID, b.HotelID())
			return apperr.NotFound("hotel %d of booking %d not found", b.HotelID(), b.ID)
		}
		return apperr.Infrastructure(err, "load hotel %d", b.HotelID())
	}

	if err := r.notifier.NotifyBookingConfirmed(ctx, user, b, hotel); err != nil {
		r.loggerf("level=error msg=booking confirmation notification failed booking_id=%d user_id=%d err=%v", b.ID, user.ID, err)
	}
	return nil
}

// OnPaymentFailed expires the pending booking bound to transactionID and
// releases its rooms. A booking that is already expired is left alone.
func (r *Reconciler) OnPaymentFailed(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrMissingTransactionID
	}

	b, changed, err := r.bookings.ExpireByTransactionID(ctx, transactionID, r.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r.loggerf("level=warn msg=payment failed for unknown booking transaction_id=%s", transactionID)
		return apperr.NotFound("no booking for transaction %s", transactionID)
	case errors.Is(err, domain.ErrInvalidTransition):
		r.loggerf("level=error msg=payment failure event for confirmed booking transaction_id=%s", transactionID)
		return apperr.Conflict("booking for transaction %s is already confirmed", transactionID)
	case err != nil:
		return apperr.Infrastructure(err, "expire booking")
	}
	if !changed {
		return nil
	}

	r.loggerf("level=info msg=booking expired after payment failure booking_id=%d transaction_id=%s", b.ID, transactionID)
	if err := r.notifier.NotifyBookingExpired(ctx, b); err != nil {
		r.loggerf("level=error msg=booking expiry notification failed booking_id=%d err=%v", b.ID, err)
	}
	return nil
}
