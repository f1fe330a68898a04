package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/apperr"
	"hotelbooking/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu        sync.Mutex
	byKey     map[string]string
	amounts   []int64
	cancelled []string
	openErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{byKey: map[string]string{}}
}

func (g *fakeGateway) OpenTransaction(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*domain.PaymentTransaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.openErr != nil {
		return nil, g.openErr
	}
	g.amounts = append(g.amounts, amountMinor)
	id, ok := g.byKey[idempotencyKey]
	if !ok {
		id = fmt.Sprintf("pi_test_%d", len(g.byKey)+1)
		g.byKey[idempotencyKey] = id
	}
	return &domain.PaymentTransaction{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) CancelTransaction(ctx context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, transactionID)
	return nil
}

func (g *fakeGateway) openCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.amounts)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBookingConfirmed(ctx context.Context, user *domain.User, b *domain.Booking, hotel *domain.HotelSummary) error {
	args := m.Called(ctx, user, b, hotel)
	return args.Error(0)
}

func (m *MockNotifier) NotifyBookingExpired(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

type failingUoW struct {
	err error
}

func (u failingUoW) Do(ctx context.Context, fn func(tx domain.ReservationTx) error) error {
	return u.err
}

type fixture struct {
	db         *gorm.DB
	hotel      *domain.Hotel
	user       *domain.User
	gateway    *fakeGateway
	notifier   *MockNotifier
	bookings   *repository.BookingRepository
	service    *Service
	reconciler *Reconciler
}

func newFixture(t *testing.T, rooms ...string) *fixture {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := &domain.Hotel{Name: "Seaside", City: "Almaty", NightlyRate: decimal.NewFromInt(100), Currency: "usd"}
	require.NoError(t, db.Create(h).Error)
	for _, n := range rooms {
		require.NoError(t, db.Create(&domain.Room{HotelID: h.ID, RoomNumber: n, Capacity: 2}).Error)
	}
	u := &domain.User{Email: "guest@example.com", Name: "Guest", Role: domain.RoleGuest}
	require.NoError(t, db.Create(u).Error)

	f := &fixture{
		db:       db,
		hotel:    h,
		user:     u,
		gateway:  newFakeGateway(),
		notifier: new(MockNotifier),
		bookings: repository.NewBookingRepository(db),
	}
	hotels := repository.NewHotelRepository(db)
	f.service = NewService(hotels, repository.NewDiscountRepository(db), f.bookings, repository.NewUnitOfWork(db), f.gateway, 30*time.Minute, 365, t.Logf)
	f.reconciler = NewReconciler(f.bookings, repository.NewUserRepository(db), hotels, f.notifier, t.Logf)
	return f
}

func (f *fixture) request(rooms []string, startOffset, endOffset int) CreateReservationInput {
	today := domain.DateOf(time.Now())
	return CreateReservationInput{
		UserID:      f.user.ID,
		HotelID:     f.hotel.ID,
		RoomNumbers: rooms,
		Start:       today.AddDate(0, 0, startOffset),
		End:         today.AddDate(0, 0, endOffset),
	}
}

func (f *fixture) countBookings(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Booking{}).Count(&n).Error)
	return n
}

func TestCreateReservation_PersistsPendingBooking(t *testing.T) {
	f := newFixture(t, "101")

	res, err := f.service.CreateReservation(context.Background(), f.request([]string{"101"}, 1, 3))
	require.NoError(t, err)

	assert.Equal(t, "pi_test_1", res.TransactionID)
	assert.Equal(t, "pi_test_1_secret", res.ClientSecret)
	assert.True(t, decimal.NewFromInt(200).Equal(res.Booking.OriginalTotal))
	assert.True(t, decimal.NewFromInt(200).Equal(res.Booking.DiscountedTotal))
	assert.Equal(t, []int64{20000}, f.gateway.amounts)

	stored, err := f.bookings.FindByTransactionID(context.Background(), "pi_test_1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, stored.Status)
	require.Len(t, stored.Rooms, 1)
	assert.Equal(t, "101", stored.Rooms[0].RoomNumber)
	assert.Equal(t, f.hotel.ID, stored.Rooms[0].HotelID)
	assert.Equal(t, 2, stored.Nights())
	assert.True(t, stored.ExpiresAt.After(time.Now().UTC()))
}

func TestCreateReservation_OverlapIsConflict(t *testing.T) {
	f := newFixture(t, "101")
	ctx := context.Background()

	_, err := f.service.CreateReservation(ctx, f.request([]string{"101"}, 1, 3))
	require.NoError(t, err)

	other := f.request([]string{"101"}, 2, 4)
	other.RequestID = "second"
	_, err = f.service.CreateReservation(ctx, other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, int64(1), f.countBookings(t))
	assert.Equal(t, 1, f.gateway.openCalls())
}

func TestCreateReservation_TouchingRangeIsAvailable(t *testing.T) {
	f := newFixture(t, "101")
	ctx := context.Background()

	_, err := f.service.CreateReservation(ctx, f.request([]string{"101"}, 1, 3))
	require.NoError(t, err)
	_, err = f.service.CreateReservation(ctx, f.request([]string{"101"}, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.countBookings(t))
}

func TestCreateReservation_ConcurrentSameRoom(t *testing.T) {
	f := newFixture(t, "101")
	second := &domain.User{Email: "other@example.com", Name: "Other", Role: domain.RoleGuest}
	require.NoError(t, f.db.Create(second).Error)

	reqs := []CreateReservationInput{f.request([]string{"101"}, 1, 3), f.request([]string{"101"}, 2, 4)}
	reqs[1].UserID = second.ID

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, len(reqs))
	)
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.service.CreateReservation(context.Background(), reqs[i])
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), f.countBookings(t))
	// a loser that already opened a transaction must have it cancelled
	assert.Equal(t, f.gateway.openCalls()-1, len(f.gateway.cancelled))
}

func TestCreateReservation_Discounts(t *testing.T) {
	f := newFixture(t, "101")
	ctx := context.Background()
	today := domain.DateOf(time.Now())

	otherHotel := &domain.Hotel{Name: "Mountain", City: "Almaty", NightlyRate: decimal.NewFromInt(80), Currency: "usd"}
	require.NoError(t, f.db.Create(otherHotel).Error)
	for _, d := range []domain.Discount{
		{ID: "TODAY25", HotelID: f.hotel.ID, Percentage: decimal.NewFromInt(25), ExpireDate: today},
		{ID: "OLD", HotelID: f.hotel.ID, Percentage: decimal.NewFromInt(25), ExpireDate: today.AddDate(0, 0, -1)},
		{ID: "ELSEWHERE", HotelID: otherHotel.ID, Percentage: decimal.NewFromInt(25), ExpireDate: today.AddDate(0, 1, 0)},
	} {
		require.NoError(t, f.db.Create(&d).Error)
	}

	cases := []struct {
		code string
		kind error
	}{
		{"MISSING", apperr.ErrNotFound},
		{"OLD", apperr.ErrGone},
		{"ELSEWHERE", apperr.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			req := f.request([]string{"101"}, 1, 3)
			req.DiscountCode = tc.code
			_, err := f.service.CreateReservation(ctx, req)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
	assert.Equal(t, 0, f.gateway.openCalls())

	req := f.request([]string{"101"}, 1, 3)
	req.DiscountCode = "TODAY25"
	res, err := f.service.CreateReservation(ctx, req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(res.Booking.OriginalTotal))
	assert.True(t, decimal.NewFromInt(150).Equal(res.Booking.DiscountedTotal))
	assert.Equal(t, []int64{15000}, f.gateway.amounts)
	require.NotNil(t, res.Booking.DiscountID)
	assert.Equal(t, "TODAY25", *res.Booking.DiscountID)
}

func TestCreateReservation_RejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, "101")
	ctx := context.Background()

	unknownHotel := f.request([]string{"101"}, 1, 3)
	unknownHotel.HotelID = f.hotel.ID + 99

	cases := []struct {
		name string
		req  CreateReservationInput
		kind error
	}{
		{"start in past", f.request([]string{"101"}, -1, 2), apperr.ErrValidation},
		{"end before start", f.request([]string{"101"}, 3, 1), apperr.ErrValidation},
		{"same day", f.request([]string{"101"}, 2, 2), apperr.ErrValidation},
		{"no rooms", f.request([]string{" "}, 1, 3), apperr.ErrValidation},
		{"malformed room", f.request([]string{"10;1"}, 1, 3), apperr.ErrValidation},
		{"stay over max nights", f.request([]string{"101"}, 1, 367), apperr.ErrValidation},
		{"stay over centuries", f.request([]string{"101"}, 1, 150000), apperr.ErrValidation},
		{"unknown room", f.request([]string{"101", "999"}, 1, 3), apperr.ErrNotFound},
		{"unknown hotel", unknownHotel, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.CreateReservation(ctx, tc.req)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
		})
	}
	assert.Equal(t, int64(0), f.countBookings(t))
	assert.Equal(t, 0, f.gateway.openCalls())
}

func TestCreateReservation_MaxNightsIsInclusive(t *testing.T) {
	f := newFixture(t, "101")

	res, err := f.service.CreateReservation(context.Background(), f.request([]string{"101"}, 1, 366))
	require.NoError(t, err)
	assert.Equal(t, 365, res.Booking.Nights())
}

func TestCreateReservation_LongStayWritesLedgerInBatches(t *testing.T) {
	f := newFixture(t, "101")
	svc := NewService(repository.NewHotelRepository(f.db), repository.NewDiscountRepository(f.db), f.bookings,
		repository.NewUnitOfWork(f.db), f.gateway, 30*time.Minute, 10000, t.Logf)

	res, err := svc.CreateReservation(context.Background(), f.request([]string{"101"}, 1, 9001))
	require.NoError(t, err)
	assert.Equal(t, []int64{90000000}, f.gateway.amounts)
	assert.Empty(t, f.gateway.cancelled)

	var nights int64
	require.NoError(t, f.db.Model(&domain.RoomNight{}).Where("booking_id = ?", res.Booking.ID).Count(&nights).Error)
	assert.Equal(t, int64(9000), nights)
}

func TestCreateReservation_GatewayFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, "101")
	f.gateway.openErr = errors.New("dial tcp: i/o timeout")

	_, err := f.service.CreateReservation(context.Background(), f.request([]string{"101"}, 1, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInfrastructure))
	assert.Equal(t, "Service temporarily unavailable", apperr.Public(err))
	assert.Equal(t, int64(0), f.countBookings(t))
}

func TestCreateReservation_PersistFailureCancelsTransaction(t *testing.T) {
	f := newFixture(t, "101")
	f.service.uow = failingUoW{err: domain.ErrRoomTaken}

	_, err := f.service.CreateReservation(context.Background(), f.request([]string{"101"}, 1, 3))
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, []string{"pi_test_1"}, f.gateway.cancelled)

	f.service.uow = failingUoW{err: errors.New("connection reset")}
	req := f.request([]string{"101"}, 1, 3)
	req.RequestID = "retry"
	_, err = f.service.CreateReservation(context.Background(), req)
	assert.True(t, errors.Is(err, apperr.ErrInfrastructure))
	assert.Equal(t, []string{"pi_test_1", "pi_test_2"}, f.gateway.cancelled)
}

func TestCreateReservation_ReplaysSameRequest(t *testing.T) {
	f := newFixture(t, "101", "102")
	ctx := context.Background()

	req := f.request([]string{"101", "102"}, 1, 3)
	req.RequestID = "client-req-1"
	first, err := f.service.CreateReservation(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	req.RoomNumbers = []string{"102", "101", "101"}
	again, err := f.service.CreateReservation(ctx, req)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Booking.ID, again.Booking.ID)
	assert.Equal(t, first.TransactionID, again.TransactionID)
	assert.Equal(t, first.ClientSecret, again.ClientSecret)
	assert.Equal(t, int64(1), f.countBookings(t))
	assert.Empty(t, f.gateway.cancelled)
}

func TestGetReservation_OnlyOwner(t *testing.T) {
	f := newFixture(t, "101")
	ctx := context.Background()

	res, err := f.service.CreateReservation(ctx, f.request([]string{"101"}, 1, 3))
	require.NoError(t, err)

	b, err := f.service.GetReservation(ctx, f.user.ID, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, res.TransactionID, b.TransactionID)

	_, err = f.service.GetReservation(ctx, f.user.ID+1, res.Booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	_, err = f.service.GetReservation(ctx, f.user.ID, res.Booking.ID+1)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
