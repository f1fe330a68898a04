package booking

import (
	"context"
	"time"

	"hotelbooking/internal/pkg/apperr"
)

const defaultReapBatch = 100

// Reaper expires pending bookings whose payment window has passed.
type Reaper struct {
	bookings  BookingStore
	gateway   PaymentGateway
	notifier  Notifier
	batchSize int
	now       func() time.Time
	loggerf   func(format string, args ...interface{})
}

func NewReaper(bookings BookingStore, gateway PaymentGateway, notifier Notifier, batchSize int, loggerf func(format string, args ...interface{})) *Reaper {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if batchSize <= 0 {
		batchSize = defaultReapBatch
	}
	return &Reaper{
		bookings:  bookings,
		gateway:   gateway,
		notifier:  notifier,
		batchSize: batchSize,
		now:       time.Now,
		loggerf:   loggerf,
	}
}

// ExpireStale expires every stale pending booking and returns how many were
// expired. Provider transactions are cancelled best effort.
func (r *Reaper) ExpireStale(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := r.bookings.ExpireStale(ctx, r.now().UTC(), r.batchSize)
		if err != nil {
			return total, apperr.Infrastructure(err, "expire stale bookings")
		}
		for i := range expired {
			b := &expired[i]
			r.loggerf("level=info msg=pending booking expired booking_id=%d transaction_id=%s expires_at=%s",
				b.ID, b.TransactionID, b.ExpiresAt.Format(time.RFC3339))
			if r.gateway != nil {
				if err := r.gateway.CancelTransaction(ctx, b.TransactionID); err != nil {
					r.loggerf("level=warn msg=cancel expired payment transaction failed transaction_id=%s err=%v", b.TransactionID, err)
				}
			}
			if r.notifier != nil {
				if err := r.notifier.NotifyBookingExpired(ctx, b); err != nil {
					r.loggerf("level=error msg=booking expiry notification failed booking_id=%d err=%v", b.ID, err)
				}
			}
		}
		total += len(expired)
		if len(expired) < r.batchSize {
			return total, nil
		}
	}
}

// Run calls ExpireStale every interval until ctx is done.
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ExpireStale(ctx)
			if err != nil {
				r.loggerf("level=error msg=booking reaper run failed err=%v", err)
				continue
			}
			if n > 0 {
				r.loggerf("level=info msg=booking reaper run expired=%d", n)
			}
		}
	}
}
