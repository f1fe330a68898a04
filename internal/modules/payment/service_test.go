package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"hotelbooking/internal/database"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) OnPaymentSucceeded(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

func (m *MockReconciler) OnPaymentFailed(ctx context.Context, transactionID string) error {
	return m.Called(ctx, transactionID).Error(0)
}

type memoryDeduper struct {
	mu       sync.Mutex
	held     map[string]bool
	released []string
	err      error
}

func (d *memoryDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.held[eventID] {
		return false, nil
	}
	d.held[eventID] = true
	return true, nil
}

func (d *memoryDeduper) Release(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.held, eventID)
	d.released = append(d.released, eventID)
	return nil
}

func signedEvent(t *testing.T, id, typ, txID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":%q,"data":{"object":{"id":%q,"object":"payment_intent"}}}`,
		id, typ, txID))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: testSecret})
	return signed.Payload, signed.Header
}

func newTestService(t *testing.T, dedup Deduper) (*Service, *MockReconciler, *repository.PaymentEventRepository) {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	events := repository.NewPaymentEventRepository(db)
	rec := new(MockReconciler)
	return NewService(NewStripeVerifier(testSecret), rec, events, dedup, t.Logf), rec, events
}

func TestHandleWebhook_SucceededIsAppliedOnce(t *testing.T) {
	svc, rec, events := newTestService(t, nil)
	ctx := context.Background()
	rec.On("OnPaymentSucceeded", mock.Anything, "pi_1").Return(nil)

	payload, sig := signedEvent(t, "evt_1", EventPaymentSucceeded, "pi_1")
	outcome, err := svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	rec.AssertNumberOfCalls(t, "OnPaymentSucceeded", 1)
	seen, err := events.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHandleWebhook_FailureEventsExpireBooking(t *testing.T) {
	svc, rec, _ := newTestService(t, nil)
	rec.On("OnPaymentFailed", mock.Anything, mock.Anything).Return(nil)

	for i, typ := range []string{EventPaymentFailed, EventPaymentCanceled} {
		payload, sig := signedEvent(t, fmt.Sprintf("evt_f%d", i), typ, fmt.Sprintf("pi_f%d", i))
		outcome, err := svc.HandleWebhook(context.Background(), payload, sig)
		require.NoError(t, err)
		assert.Equal(t, OutcomeProcessed, outcome)
	}
	rec.AssertCalled(t, "OnPaymentFailed", mock.Anything, "pi_f0")
	rec.AssertCalled(t, "OnPaymentFailed", mock.Anything, "pi_f1")
}

func TestHandleWebhook_UnknownTypeIgnored(t *testing.T) {
	svc, rec, _ := newTestService(t, nil)

	payload, sig := signedEvent(t, "evt_x", "charge.refunded", "ch_1")
	outcome, err := svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	rec.AssertNotCalled(t, "OnPaymentSucceeded", mock.Anything, mock.Anything)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	payload, _ := signedEvent(t, "evt_1", EventPaymentSucceeded, "pi_1")
	_, err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestHandleWebhook_ErrorsAllowRedelivery(t *testing.T) {
	dedup := &memoryDeduper{held: map[string]bool{}}
	svc, rec, events := newTestService(t, dedup)
	ctx := context.Background()

	rec.On("OnPaymentSucceeded", mock.Anything, "pi_missing").Return(apperr.NotFound("no booking")).Once()
	rec.On("OnPaymentSucceeded", mock.Anything, "pi_missing").Return(nil).Once()

	payload, sig := signedEvent(t, "evt_2", EventPaymentSucceeded, "pi_missing")
	_, err := svc.HandleWebhook(ctx, payload, sig)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	seen, err := events.Exists(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, []string{"evt_2"}, dedup.released)

	outcome, err := svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
}

func TestHandleWebhook_ConflictIsTerminal(t *testing.T) {
	svc, rec, events := newTestService(t, nil)
	ctx := context.Background()
	rec.On("OnPaymentSucceeded", mock.Anything, "pi_late").Return(apperr.Conflict("booking expired"))

	payload, sig := signedEvent(t, "evt_3", EventPaymentSucceeded, "pi_late")
	outcome, err := svc.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)
	seen, err := events.Exists(ctx, "evt_3")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestHandleWebhook_ClaimedElsewhere(t *testing.T) {
	dedup := &memoryDeduper{held: map[string]bool{"evt_4": true}}
	svc, rec, _ := newTestService(t, dedup)

	payload, sig := signedEvent(t, "evt_4", EventPaymentSucceeded, "pi_4")
	_, err := svc.HandleWebhook(context.Background(), payload, sig)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	rec.AssertNotCalled(t, "OnPaymentSucceeded", mock.Anything, mock.Anything)
}

func TestHandleWebhook_DedupOutageFallsBackToLedger(t *testing.T) {
	dedup := &memoryDeduper{held: map[string]bool{}, err: errors.New("redis: connection refused")}
	svc, rec, _ := newTestService(t, dedup)
	rec.On("OnPaymentSucceeded", mock.Anything, "pi_5").Return(nil)

	payload, sig := signedEvent(t, "evt_5", EventPaymentSucceeded, "pi_5")
	outcome, err := svc.HandleWebhook(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Empty(t, dedup.released)
}
