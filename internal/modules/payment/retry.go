package payment

import (
	"context"
	"errors"
	"time"

	"hotelbooking/internal/domain"
)

// RetryingGateway retries transient provider failures with exponential
// backoff. Every attempt reuses the caller's idempotency key and runs under
// its own timeout.
type RetryingGateway struct {
	next        Gateway
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration
	loggerf     func(format string, args ...interface{})
}

func NewRetryingGateway(next Gateway, maxAttempts int, timeout, backoff time.Duration, loggerf func(format string, args ...interface{})) *RetryingGateway {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingGateway{
		next:        next,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		backoff:     backoff,
		loggerf:     loggerf,
	}
}

func (g *RetryingGateway) OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error) {
	var out *domain.PaymentTransaction
	err := g.do(ctx, "open", func(actx context.Context) error {
		tx, err := g.next.OpenTransaction(actx, amountMinor, currency, idempotencyKey)
		out = tx
		return err
	})
	return out, err
}

func (g *RetryingGateway) CancelTransaction(ctx context.Context, transactionID string) error {
	return g.do(ctx, "cancel", func(actx context.Context) error {
		return g.next.CancelTransaction(actx, transactionID)
	})
}

func (g *RetryingGateway) do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	wait := g.backoff
	var err error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, g.timeout)
		err = call(actx)
		cancel()
		if err == nil {
			return nil
		}
		if !retryable(ctx, err) || attempt == g.maxAttempts {
			break
		}
		g.loggerf("level=warn msg=payment provider call failed, retrying op=%s attempt=%d err=%v", op, attempt, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}

// retryable reports whether err is transient and the caller is still waiting.
// A per-attempt timeout counts as transient; a cancelled parent does not.
func retryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}
