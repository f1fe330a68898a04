package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hotelbooking/internal/domain"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var (
	// ErrTransient marks provider failures worth retrying with the same idempotency key.
	ErrTransient = errors.New("transient payment provider error")
	ErrRejected  = errors.New("payment provider rejected request")
)

// Gateway opens and cancels provider transactions.
type Gateway interface {
	OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error)
	CancelTransaction(ctx context.Context, transactionID string) error
}

// StripeGateway backs transactions with Stripe PaymentIntents.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &domain.PaymentTransaction{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) CancelTransaction(ctx context.Context, transactionID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := g.api.PaymentIntents.Cancel(transactionID, params); err != nil {
		return classifyStripeError(err)
	}
	return nil
}

// classifyStripeError separates retryable failures (network, rate limit,
// provider 5xx) from requests the provider refused.
func classifyStripeError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError || se.Type == stripe.ErrorTypeAPI {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

var sandboxNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hotelbooking/sandbox-payments"))

// SandboxGateway mints local transaction ids for development. The same
// idempotency key always yields the same transaction, like the real provider.
type SandboxGateway struct {
	loggerf func(format string, args ...interface{})
}

func NewSandboxGateway(loggerf func(format string, args ...interface{})) *SandboxGateway {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &SandboxGateway{loggerf: loggerf}
}

func (g *SandboxGateway) OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrRejected)
	}
	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	id := "pi_sandbox_" + strings.ReplaceAll(uuid.NewSHA1(sandboxNamespace, []byte(key)).String(), "-", "")
	g.loggerf("level=info msg=sandbox payment transaction opened transaction_id=%s amount_minor=%d currency=%s", id, amountMinor, currency)
	return &domain.PaymentTransaction{ID: id, ClientSecret: id + "_secret_sandbox"}, nil
}

func (g *SandboxGateway) CancelTransaction(ctx context.Context, transactionID string) error {
	g.loggerf("level=info msg=sandbox payment transaction cancelled transaction_id=%s", transactionID)
	return ctx.Err()
}
