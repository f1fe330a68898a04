package payment

import (
	"context"
	"errors"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
)

const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
)

// Service turns verified provider webhooks into reconciler calls. Each event
// id is applied at most once.
type Service struct {
	verifier   EventVerifier
	reconciler Reconciler
	events     eventLedger
	dedup      Deduper
	now        func() time.Time
	loggerf    func(format string, args ...interface{})
}

// NewService builds the webhook service. dedup may be nil.
func NewService(verifier EventVerifier, reconciler Reconciler, events eventLedger, dedup Deduper, loggerf func(format string, args ...interface{})) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{
		verifier:   verifier,
		reconciler: reconciler,
		events:     events,
		dedup:      dedup,
		now:        time.Now,
		loggerf:    loggerf,
	}
}

// HandleWebhook verifies and applies one provider event and returns the
// outcome recorded for it. A returned error means the provider should retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	ev, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.loggerf("level=warn msg=payment webhook rejected err=%v", err)
		return "", apperr.Validation("invalid webhook payload or signature")
	}

	seen, err := s.events.Exists(ctx, ev.ID)
	if err != nil {
		return "", apperr.Infrastructure(err, "check payment event %s", ev.ID)
	}
	if seen {
		s.loggerf("level=info msg=payment webhook replay ignored event_id=%s type=%s", ev.ID, ev.Type)
		return OutcomeDuplicate, nil
	}

	if s.dedup != nil {
		claimed, err := s.dedup.Claim(ctx, ev.ID)
		switch {
		case err != nil:
			s.loggerf("level=warn msg=webhook dedup unavailable, relying on event ledger event_id=%s err=%v", ev.ID, err)
		case !claimed:
			return "", apperr.Conflict("event %s is being processed", ev.ID)
		default:
			defer func() {
				if err := s.dedup.Release(context.WithoutCancel(ctx), ev.ID); err != nil {
					s.loggerf("level=warn msg=webhook dedup release failed event_id=%s err=%v", ev.ID, err)
				}
			}()
		}
	}

	outcome, err := s.dispatch(ctx, ev)
	if err != nil {
		return "", err
	}

	recorded, err := s.events.Record(ctx, &domain.PaymentEvent{
		EventID:       ev.ID,
		Type:          ev.Type,
		TransactionID: ev.TransactionID,
		Outcome:       outcome,
		ProcessedAt:   s.now().UTC(),
	})
	if err != nil {
		// The booking change is committed; a redelivery is a no-op in the reconciler.
		s.loggerf("level=error msg=payment event not recorded event_id=%s err=%v", ev.ID, err)
		return outcome, nil
	}
	if !recorded {
		return OutcomeDuplicate, nil
	}

	s.loggerf("level=info msg=payment webhook handled event_id=%s type=%s transaction_id=%s outcome=%s",
		ev.ID, ev.Type, ev.TransactionID, outcome)
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, ev *Event) (string, error) {
	var err error
	switch ev.Type {
	case EventPaymentSucceeded:
		err = s.reconciler.OnPaymentSucceeded(ctx, ev.TransactionID)
	case EventPaymentFailed, EventPaymentCanceled:
		err = s.reconciler.OnPaymentFailed(ctx, ev.TransactionID)
	default:
		return OutcomeIgnored, nil
	}

	switch {
	case err == nil:
		return OutcomeProcessed, nil
	case errors.Is(err, apperr.ErrConflict):
		// Terminal for this event; retrying cannot change the booking state.
		s.loggerf("level=warn msg=payment event conflicts with booking state event_id=%s type=%s err=%v", ev.ID, ev.Type, err)
		return OutcomeRejected, nil
	default:
		return "", err
	}
}
