package payment

import (
	"context"

	"hotelbooking/internal/domain"
)

// Reconciler applies payment outcomes to bookings.
type Reconciler interface {
	OnPaymentSucceeded(ctx context.Context, transactionID string) error
	OnPaymentFailed(ctx context.Context, transactionID string) error
}

type eventLedger interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, ev *domain.PaymentEvent) (bool, error)
}

// Deduper claims an event id for the duration of its processing.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}
